// Package totals computes the monetary figures derived from jobs, quotes and
// invoices, and formats amounts for display.
package totals

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// Currency is the ISO code every amount is expressed in.
const Currency = money.EUR

var (
	// DefaultVATRate is the standard Italian VAT rate, in percent.
	DefaultVATRate = decimal.NewFromInt(22)

	// Tolerance is the smallest difference between two amounts that counts
	// as a real difference.
	Tolerance = decimal.RequireFromString("0.01")

	hundred = decimal.NewFromInt(100)
)

// Breakdown is the subtotal / tax / total triple cached on an invoice.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotale"`
	Tax      decimal.Decimal `json:"iva"`
	Total    decimal.Decimal `json:"totale"`
}

// JobTotal returns (hours * rate - discount) * (1 + vat/100), rounded to cents.
func JobTotal(j domain.Job) decimal.Decimal {
	net := j.Hours.Mul(j.HourlyRate).Sub(j.Discount)
	return net.Mul(decimal.NewFromInt(1).Add(j.VATRate.Div(hundred))).Round(2)
}

// LineTotal returns the stored line total, or quantity * price when the row
// has none.
func LineTotal(li domain.LineItem) decimal.Decimal {
	if !li.LineTotal.IsZero() {
		return li.LineTotal
	}
	return li.Quantity.Mul(li.UnitPrice).Round(2)
}

// LineItemsSubtotal sums the line totals of items.
func LineItemsSubtotal(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(LineTotal(li))
	}
	return sum.Round(2)
}

// InvoiceTotals computes the breakdown for items at vatRate percent. A line
// item carrying its own rate uses it instead.
func InvoiceTotals(items []domain.LineItem, vatRate decimal.Decimal) Breakdown {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, li := range items {
		line := LineTotal(li)
		rate := vatRate
		if li.VATRate != nil {
			rate = *li.VATRate
		}
		subtotal = subtotal.Add(line)
		tax = tax.Add(line.Mul(rate).Div(hundred))
	}
	subtotal = subtotal.Round(2)
	tax = tax.Round(2)
	return Breakdown{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

// InvoiceRate returns the VAT rate that applies to inv.
func InvoiceRate(inv domain.Invoice, fallback decimal.Decimal) decimal.Decimal {
	if inv.VATRate != nil {
		return *inv.VATRate
	}
	return fallback
}

// QuoteTotal returns the gross total of a quote's items.
func QuoteTotal(q domain.Quote, vatRate decimal.Decimal) decimal.Decimal {
	return InvoiceTotals(q.Items, vatRate).Total
}

// Diverges reports whether the totals cached on inv differ from the ones its
// items produce. Invoices without items have nothing to compare against.
func Diverges(inv domain.Invoice, vatRate decimal.Decimal) bool {
	if len(inv.Items) == 0 {
		return false
	}
	want := InvoiceTotals(inv.Items, InvoiceRate(inv, vatRate))
	return differs(inv.Subtotal, want.Subtotal) || differs(inv.Tax, want.Tax) || differs(inv.Total, want.Total)
}

// Recompute overwrites the cached totals of inv with the ones its items
// produce. Invoices without items are left alone.
func Recompute(inv *domain.Invoice, vatRate decimal.Decimal) bool {
	if len(inv.Items) == 0 {
		return false
	}
	want := InvoiceTotals(inv.Items, InvoiceRate(*inv, vatRate))
	changed := differs(inv.Subtotal, want.Subtotal) || differs(inv.Tax, want.Tax) || differs(inv.Total, want.Total)
	inv.Subtotal, inv.Tax, inv.Total = want.Subtotal, want.Tax, want.Total
	return changed
}

// Equal reports whether a and b are within Tolerance of each other.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

func differs(a, b decimal.Decimal) bool {
	return !Equal(a, b)
}

// Format renders amount for display, e.g. "€1,234.50".
func Format(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), Currency).Display()
}
