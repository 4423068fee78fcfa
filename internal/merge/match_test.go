package merge

import (
	"testing"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

func TestMatchClient(t *testing.T) {
	merged := []domain.Client{
		{ID: 1, GivenName: "Mario", FamilyName: "Rossi", Phone: "123"},
		{ID: 2, GivenName: "Mario", FamilyName: "Rossi", Phone: ""},
	}

	tests := []struct {
		name      string
		candidate domain.Client
		want      int
	}{
		{name: "exact", candidate: domain.Client{GivenName: "Mario", FamilyName: "Rossi", Phone: "123"}, want: 0},
		{name: "case folded", candidate: domain.Client{GivenName: "MARIO", FamilyName: "rossi", Phone: "123"}, want: 0},
		{name: "different phone", candidate: domain.Client{GivenName: "Mario", FamilyName: "Rossi", Phone: "124"}, want: -1},
		{name: "no phone on both sides", candidate: domain.Client{GivenName: "mario", FamilyName: "ROSSI"}, want: 1},
		{name: "blank names", candidate: domain.Client{Phone: "123"}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchClient(tt.candidate, merged, nil); got != tt.want {
				t.Errorf("MatchClient() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchMaterial(t *testing.T) {
	merged := []domain.Material{{ID: 1, Description: "Tubo", UnitPrice: d("10.00")}}

	tests := []struct {
		name      string
		candidate domain.Material
		want      int
	}{
		{name: "within tolerance", candidate: domain.Material{Description: "tubo", UnitPrice: d("10.009")}, want: 0},
		{name: "below within tolerance", candidate: domain.Material{Description: "TUBO", UnitPrice: d("9.995")}, want: 0},
		{name: "outside tolerance", candidate: domain.Material{Description: "tubo", UnitPrice: d("10.02")}, want: -1},
		{name: "exactly one cent", candidate: domain.Material{Description: "tubo", UnitPrice: d("10.01")}, want: -1},
		{name: "other description", candidate: domain.Material{Description: "Raccordo", UnitPrice: d("10")}, want: -1},
		{name: "blank description", candidate: domain.Material{UnitPrice: d("10")}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchMaterial(tt.candidate, merged, nil); got != tt.want {
				t.Errorf("MatchMaterial() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchMaterial_MissingPriceIsZero(t *testing.T) {
	merged := []domain.Material{{ID: 1, Description: "Nastro"}}
	if got := MatchMaterial(domain.Material{Description: "nastro", UnitPrice: d("0.005")}, merged, nil); got != 0 {
		t.Errorf("MatchMaterial() = %d, want 0", got)
	}
}

func TestMatchJob(t *testing.T) {
	maps := newIDMaps()
	maps.Clients[7] = 1
	merged := []domain.Job{{ID: 1, ClientID: 1, Date: "2024-01-10", Description: "Caldaia"}}

	tests := []struct {
		name      string
		candidate domain.Job
		want      int
	}{
		{name: "remapped client", candidate: domain.Job{ClientID: 7, Date: "2024-01-10", Description: "caldaia"}, want: 0},
		{name: "unmapped client compared as is", candidate: domain.Job{ClientID: 1, Date: "2024-01-10", Description: "Caldaia"}, want: 0},
		{name: "other date", candidate: domain.Job{ClientID: 7, Date: "2024-01-11", Description: "Caldaia"}, want: -1},
		{name: "other description", candidate: domain.Job{ClientID: 7, Date: "2024-01-10", Description: "Boiler"}, want: -1},
		{name: "no date", candidate: domain.Job{ClientID: 7, Description: "Caldaia"}, want: -1},
		{name: "no client", candidate: domain.Job{Date: "2024-01-10", Description: "Caldaia"}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchJob(tt.candidate, merged, &maps); got != tt.want {
				t.Errorf("MatchJob() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchQuote(t *testing.T) {
	maps := newIDMaps()
	maps.Clients[7] = 1
	merged := []domain.Quote{
		{ID: 1, Number: "P-1", ClientID: 2, Date: "2024-01-01"},
		{ID: 2, Number: "P-2", ClientID: 1, Date: "2024-02-01"},
	}

	tests := []struct {
		name      string
		candidate domain.Quote
		want      int
	}{
		{name: "same number", candidate: domain.Quote{Number: "P-2", ClientID: 9, Date: "2030-01-01"}, want: 1},
		{name: "same client and date", candidate: domain.Quote{Number: "P-77", ClientID: 7, Date: "2024-02-01"}, want: 1},
		{name: "first match wins", candidate: domain.Quote{Number: "P-1", ClientID: 7, Date: "2024-02-01"}, want: 0},
		{name: "no number no match", candidate: domain.Quote{ClientID: 3, Date: "2024-02-01"}, want: -1},
		{name: "blank number never equal", candidate: domain.Quote{}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchQuote(tt.candidate, merged, &maps); got != tt.want {
				t.Errorf("MatchQuote() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchInvoice(t *testing.T) {
	merged := []domain.Invoice{{ID: 1, Number: "2024/001", Total: d("100")}}

	if got := MatchInvoice(domain.Invoice{Number: "2024/001", Total: d("5")}, merged, nil); got != 0 {
		t.Errorf("same number should match regardless of content, got %d", got)
	}
	if got := MatchInvoice(domain.Invoice{Number: "2024/002"}, merged, nil); got != -1 {
		t.Errorf("different number should not match, got %d", got)
	}
	if got := MatchInvoice(domain.Invoice{}, []domain.Invoice{{ID: 1}}, nil); got != -1 {
		t.Errorf("blank numbers should not match, got %d", got)
	}
}

func TestMatchAppointment(t *testing.T) {
	maps := newIDMaps()
	maps.Clients[7] = 1
	merged := []domain.Appointment{
		{ID: 1, ClientID: 1, DateTime: "2024-05-02T09:30"},
	}

	tests := []struct {
		name      string
		candidate domain.Appointment
		want      int
	}{
		{name: "same datetime", candidate: domain.Appointment{ClientID: 7, DateTime: "2024-05-02T09:30"}, want: 0},
		{name: "split fields", candidate: domain.Appointment{ClientID: 7, Day: "2024-05-02", TimeOfDay: "09:30"}, want: 0},
		{name: "other time", candidate: domain.Appointment{ClientID: 7, DateTime: "2024-05-02T10:30"}, want: -1},
		{name: "other client", candidate: domain.Appointment{ClientID: 8, DateTime: "2024-05-02T09:30"}, want: -1},
		{name: "no date", candidate: domain.Appointment{ClientID: 7}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchAppointment(tt.candidate, merged, &maps); got != tt.want {
				t.Errorf("MatchAppointment() = %d, want %d", got, tt.want)
			}
		})
	}
}
