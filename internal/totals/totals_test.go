package totals

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestJobTotal(t *testing.T) {
	tests := []struct {
		name string
		job  domain.Job
		want string
	}{
		{
			name: "hours and vat",
			job:  domain.Job{Hours: d("4"), HourlyRate: d("35"), VATRate: d("22")},
			want: "170.8",
		},
		{
			name: "with discount",
			job:  domain.Job{Hours: d("2"), HourlyRate: d("50"), Discount: d("10"), VATRate: d("10")},
			want: "99",
		},
		{
			name: "no vat",
			job:  domain.Job{Hours: d("1.5"), HourlyRate: d("30")},
			want: "45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JobTotal(tt.job); !got.Equal(d(tt.want)) {
				t.Errorf("JobTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInvoiceTotals(t *testing.T) {
	items := []domain.LineItem{
		{Quantity: d("2"), UnitPrice: d("10"), LineTotal: d("20")},
		{Quantity: d("3"), UnitPrice: d("5")},
	}

	got := InvoiceTotals(items, DefaultVATRate)
	if !got.Subtotal.Equal(d("35")) {
		t.Errorf("Subtotal = %s, want 35", got.Subtotal)
	}
	if !got.Tax.Equal(d("7.7")) {
		t.Errorf("Tax = %s, want 7.7", got.Tax)
	}
	if !got.Total.Equal(d("42.7")) {
		t.Errorf("Total = %s, want 42.7", got.Total)
	}
}

func TestInvoiceTotalsPerItemRate(t *testing.T) {
	ten := d("10")
	items := []domain.LineItem{
		{LineTotal: d("100"), VATRate: &ten},
		{LineTotal: d("100")},
	}

	got := InvoiceTotals(items, DefaultVATRate)
	if !got.Tax.Equal(d("32")) {
		t.Errorf("Tax = %s, want 32", got.Tax)
	}
}

func TestDiverges(t *testing.T) {
	items := []domain.LineItem{{LineTotal: d("100")}}

	tests := []struct {
		name string
		inv  domain.Invoice
		want bool
	}{
		{name: "consistent", inv: domain.Invoice{Items: items, Subtotal: d("100"), Tax: d("22"), Total: d("122")}, want: false},
		{name: "within tolerance", inv: domain.Invoice{Items: items, Subtotal: d("100"), Tax: d("22.005"), Total: d("122.005")}, want: false},
		{name: "stale total", inv: domain.Invoice{Items: items, Subtotal: d("100"), Tax: d("22"), Total: d("130")}, want: true},
		{name: "no items", inv: domain.Invoice{Total: d("50")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diverges(tt.inv, DefaultVATRate); got != tt.want {
				t.Errorf("Diverges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRevat(t *testing.T) {
	twentyTwo := d("22")
	invoices := []domain.Invoice{
		{
			ID:       1,
			Number:   "F-1",
			Items:    []domain.LineItem{{Quantity: d("2"), UnitPrice: d("50"), VATRate: &twentyTwo}},
			Subtotal: d("100"),
			Tax:      d("22"),
			Total:    d("122"),
		},
		{
			ID:       2,
			Number:   "F-2",
			Subtotal: d("200"),
			Tax:      d("44"),
			Total:    d("244"),
		},
		{
			ID:       3,
			Number:   "F-3",
			Items:    []domain.LineItem{{LineTotal: d("100")}},
			VATRate:  decimalPtr(d("4")),
			Subtotal: d("100"),
			Tax:      d("4"),
			Total:    d("104"),
		},
	}

	results := Revat(invoices, d("22"), d("10"), DefaultVATRate)
	if len(results) != 2 {
		t.Fatalf("Revat() changed %d invoices, want 2: %+v", len(results), results)
	}

	first := invoices[0]
	if !first.Items[0].LineTotal.Equal(d("100")) {
		t.Errorf("line total = %s, want 100", first.Items[0].LineTotal)
	}
	if !first.Items[0].VATRate.Equal(d("10")) {
		t.Errorf("line rate = %s, want 10", first.Items[0].VATRate)
	}
	if !first.Tax.Equal(d("10")) || !first.Total.Equal(d("110")) {
		t.Errorf("invoice 1 totals = %s / %s, want 10 / 110", first.Tax, first.Total)
	}
	if !results[0].Before.Total.Equal(d("122")) {
		t.Errorf("before total = %s, want 122", results[0].Before.Total)
	}

	second := invoices[1]
	if !second.Tax.Equal(d("20")) || !second.Total.Equal(d("220")) {
		t.Errorf("invoice 2 totals = %s / %s, want 20 / 220", second.Tax, second.Total)
	}

	if !invoices[2].Total.Equal(d("104")) {
		t.Errorf("invoice at another rate should be untouched, total = %s", invoices[2].Total)
	}
}

func TestFormat(t *testing.T) {
	got := Format(d("12.5"))
	if !strings.Contains(got, "€") || !strings.Contains(got, "12.50") {
		t.Errorf("Format(12.5) = %q", got)
	}
}

func decimalPtr(v decimal.Decimal) *decimal.Decimal {
	return &v
}
