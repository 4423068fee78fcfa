package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestClient_RoundTripKeepsUnknownFields(t *testing.T) {
	in := `{"id":3,"nome":"Anna","cognome":"Rossi","email":"","telefono":"333","createdAt":"2024-01-02","tags":["vip"]}`

	var c Client
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if c.ID != 3 || c.GivenName != "Anna" || c.Phone != "333" {
		t.Fatalf("decoded client = %+v", c)
	}
	if len(c.Extra) != 2 {
		t.Fatalf("Extra = %v, want createdAt and tags", c.Extra)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal(out) error: %v", err)
	}
	if err := json.Unmarshal([]byte(in), &want); err != nil {
		t.Fatalf("Unmarshal(in) error: %v", err)
	}
	for key := range want {
		if _, ok := got[key]; !ok {
			t.Errorf("re-encoded client lost %q: %s", key, out)
		}
	}
}

func TestJob_LegacyAliases(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantClient int
		wantPaid   bool
		wantExtra  []string
	}{
		{
			name:       "canonical keys",
			in:         `{"id":1,"clienteId":4,"pagato":true}`,
			wantClient: 4,
			wantPaid:   true,
		},
		{
			name:       "legacy keys",
			in:         `{"id":1,"clientId":7,"paid":true}`,
			wantClient: 7,
			wantPaid:   true,
		},
		{
			name:       "both present keeps canonical",
			in:         `{"id":1,"clientId":7,"clienteId":9}`,
			wantClient: 9,
		},
		{
			name:       "unknown members survive",
			in:         `{"id":1,"clienteId":9,"note":"x"}`,
			wantClient: 9,
			wantExtra:  []string{"note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var j Job
			if err := json.Unmarshal([]byte(tt.in), &j); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if j.ClientID != tt.wantClient {
				t.Errorf("ClientID = %d, want %d", j.ClientID, tt.wantClient)
			}
			if j.Paid != tt.wantPaid {
				t.Errorf("Paid = %v, want %v", j.Paid, tt.wantPaid)
			}
			if len(j.Extra) != len(tt.wantExtra) {
				t.Errorf("Extra = %v, want keys %v", j.Extra, tt.wantExtra)
			}
			for _, key := range tt.wantExtra {
				if _, ok := j.Extra[key]; !ok {
					t.Errorf("Extra missing %q", key)
				}
			}
		})
	}
}

func TestJob_EncodeDropsShadowedAlias(t *testing.T) {
	var j Job
	if err := json.Unmarshal([]byte(`{"id":1,"clienteId":5,"clientId":5,"paid":true,"pagato":false}`), &j); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	j.ClientID = 2

	out, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal(out) error: %v", err)
	}
	for _, legacy := range []string{"clientId", "paid"} {
		if _, ok := got[legacy]; ok {
			t.Errorf("encoded job still carries %q: %s", legacy, out)
		}
	}
	if string(got["clienteId"]) != "2" {
		t.Errorf("clienteId = %s, want 2", got["clienteId"])
	}
}

func TestDecode_ToleratesMistypedFields(t *testing.T) {
	t.Run("material", func(t *testing.T) {
		var m Material
		if err := json.Unmarshal([]byte(`{"id":4,"descrizione":"Tubo","prezzo":"","costo":"2,5","qta":"3","iva":22}`), &m); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if m.ID != 4 || m.Description != "Tubo" {
			t.Errorf("material = %+v", m)
		}
		if !m.UnitPrice.IsZero() || !m.UnitCost.IsZero() {
			t.Errorf("unparsable prices should be zero: prezzo=%s costo=%s", m.UnitPrice, m.UnitCost)
		}
		if !m.Quantity.Equal(decimal.NewFromInt(3)) || !m.VATRate.Equal(decimal.NewFromInt(22)) {
			t.Errorf("qta=%s iva=%s, want 3 and 22", m.Quantity, m.VATRate)
		}
	})

	t.Run("client", func(t *testing.T) {
		var c Client
		if err := json.Unmarshal([]byte(`{"id":"7","nome":"Anna","telefono":3331234}`), &c); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if c.ID != 7 || c.GivenName != "Anna" || c.Phone != "3331234" {
			t.Errorf("client = %+v", c)
		}
	})

	t.Run("quote", func(t *testing.T) {
		var q Quote
		in := `{"id":2,"numero":"P-1","clienteId":1,"validita":30.5,"voci":[{"descrizione":"Cavo","quantita":"x","prezzo":4}],"totale":"abc"}`
		if err := json.Unmarshal([]byte(in), &q); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if q.ValidityDays != 30 || q.Number != "P-1" || q.ClientID != 1 {
			t.Errorf("quote = %+v", q)
		}
		if len(q.Items) != 1 || !q.Items[0].Quantity.IsZero() || !q.Items[0].UnitPrice.Equal(decimal.NewFromInt(4)) {
			t.Errorf("items = %+v", q.Items)
		}
		if q.Total == nil || !q.Total.IsZero() {
			t.Errorf("Total = %v, want zero", q.Total)
		}
	})

	t.Run("invoice flags", func(t *testing.T) {
		var inv Invoice
		if err := json.Unmarshal([]byte(`{"id":1,"numero":"F-1","clienteId":1,"pagata":"true","voci":"none"}`), &inv); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if !inv.Paid {
			t.Error("Paid = false, want true")
		}
		if inv.Items != nil {
			t.Errorf("Items = %v, want nil", inv.Items)
		}
	})
}

func TestInvoice_DecodesItemsAlias(t *testing.T) {
	in := `{"id":2,"numero":"F-1","clientId":1,"items":[{"descrizione":"Cavo","quantita":2,"prezzo":3.5,"totale":7}],"subtotale":7,"iva":1.54,"totale":8.54,"paid":false}`

	var inv Invoice
	if err := json.Unmarshal([]byte(in), &inv); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if inv.ClientID != 1 {
		t.Errorf("ClientID = %d, want 1", inv.ClientID)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("Items = %v, want 1 item", inv.Items)
	}
	if !inv.Items[0].LineTotal.Equal(decimal.NewFromInt(7)) {
		t.Errorf("LineTotal = %s, want 7", inv.Items[0].LineTotal)
	}
	if !inv.Tax.Equal(decimal.RequireFromString("1.54")) {
		t.Errorf("Tax = %s, want 1.54", inv.Tax)
	}

	out, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(out), `"voci":[`) {
		t.Errorf("encoded invoice should use voci: %s", out)
	}
	if !strings.Contains(string(out), `"totale":8.54`) {
		t.Errorf("money should encode as a number: %s", out)
	}
}

func TestAppointment_DateAndTime(t *testing.T) {
	tests := []struct {
		name     string
		appt     Appointment
		wantDate string
		wantTime string
	}{
		{name: "datetime", appt: Appointment{DateTime: "2024-05-02T09:30"}, wantDate: "2024-05-02", wantTime: "09:30"},
		{name: "split fields", appt: Appointment{Day: "2024-05-03", TimeOfDay: "14:00"}, wantDate: "2024-05-03", wantTime: "14:00"},
		{name: "date only", appt: Appointment{DateTime: "2024-05-04"}, wantDate: "2024-05-04", wantTime: ""},
		{name: "empty", appt: Appointment{}, wantDate: "", wantTime: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appt.Date(); got != tt.wantDate {
				t.Errorf("Date() = %q, want %q", got, tt.wantDate)
			}
			if got := tt.appt.Time(); got != tt.wantTime {
				t.Errorf("Time() = %q, want %q", got, tt.wantTime)
			}
		})
	}
}

func TestQuote_CloneIsIndependent(t *testing.T) {
	total := decimal.NewFromInt(10)
	q := Quote{
		ID:    1,
		Items: []LineItem{{Description: "Tubo", MaterialID: 2}},
		Total: &total,
		Extra: Extra{"x": json.RawMessage(`1`)},
	}

	c := q.Clone()
	c.Items[0].MaterialID = 9
	*c.Total = decimal.NewFromInt(99)
	c.Extra["x"] = json.RawMessage(`2`)

	if q.Items[0].MaterialID != 2 {
		t.Errorf("original item changed: %+v", q.Items[0])
	}
	if !q.Total.Equal(decimal.NewFromInt(10)) {
		t.Errorf("original total changed: %s", q.Total)
	}
	if string(q.Extra["x"]) != "1" {
		t.Errorf("original extra changed: %s", q.Extra["x"])
	}
}

func TestClient_DisplayName(t *testing.T) {
	c := Client{GivenName: "Marco", FamilyName: "Bianchi"}
	if got := c.DisplayName(); got != "Marco Bianchi" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := (Client{GivenName: "Marco"}).DisplayName(); got != "Marco" {
		t.Errorf("DisplayName() = %q", got)
	}
}
