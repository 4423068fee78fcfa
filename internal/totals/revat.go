package totals

import (
	"github.com/shopspring/decimal"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// RevatResult describes one invoice rewritten by Revat.
type RevatResult struct {
	InvoiceID int       `json:"invoice_id"`
	Number    string    `json:"numero"`
	Before    Breakdown `json:"before"`
	After     Breakdown `json:"after"`
}

// Revat moves invoices billed at rate from to rate to. The invoice rate and
// every line item rate equal to from are replaced, missing line totals are
// filled in from quantity * price, and the cached totals are recomputed.
// Invoices with no explicit rate are treated as billed at fallback.
// It returns one entry per invoice whose figures or rates changed.
func Revat(invoices []domain.Invoice, from, to, fallback decimal.Decimal) []RevatResult {
	var results []RevatResult
	for i := range invoices {
		inv := &invoices[i]
		before := Breakdown{Subtotal: inv.Subtotal, Tax: inv.Tax, Total: inv.Total}

		changed := false
		rerated := false
		if InvoiceRate(*inv, fallback).Equal(from) {
			rate := to
			inv.VATRate = &rate
			changed, rerated = true, true
		}
		for j := range inv.Items {
			item := &inv.Items[j]
			if item.VATRate != nil && item.VATRate.Equal(from) {
				rate := to
				item.VATRate = &rate
				changed = true
			}
			if item.LineTotal.IsZero() && !item.Quantity.IsZero() {
				item.LineTotal = item.Quantity.Mul(item.UnitPrice).Round(2)
				changed = true
			}
		}
		if len(inv.Items) == 0 {
			if rerated {
				inv.Tax = inv.Subtotal.Mul(to).Div(hundred).Round(2)
				inv.Total = inv.Subtotal.Add(inv.Tax)
			}
		} else if Recompute(inv, fallback) {
			changed = true
		}

		if changed {
			results = append(results, RevatResult{
				InvoiceID: inv.ID,
				Number:    inv.Number,
				Before:    before,
				After:     Breakdown{Subtotal: inv.Subtotal, Tax: inv.Tax, Total: inv.Total},
			})
		}
	}
	return results
}
