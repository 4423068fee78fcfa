package merge

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// PriceTolerance is the absolute difference under which two unit prices are
// considered equal.
var PriceTolerance = decimal.RequireFromString("0.01")

// The match functions below report the index of the first record in merged
// that candidate duplicates, or -1. Candidates still carry their imported
// ids; maps translates them into merged ids where a comparison needs it.
//
// A record whose identifying fields are blank never matches anything, so a
// half-filled record is added rather than folded into an unrelated one.

// MatchClient compares given name and family name case-insensitively and the
// phone number exactly.
func MatchClient(candidate domain.Client, merged []domain.Client, _ *IDMaps) int {
	if blank(candidate.GivenName) && blank(candidate.FamilyName) {
		return -1
	}
	for i, c := range merged {
		if sameFold(c.GivenName, candidate.GivenName) &&
			sameFold(c.FamilyName, candidate.FamilyName) &&
			c.Phone == candidate.Phone {
			return i
		}
	}
	return -1
}

// MatchMaterial compares the description case-insensitively and the unit
// price within PriceTolerance. A missing price counts as zero.
func MatchMaterial(candidate domain.Material, merged []domain.Material, _ *IDMaps) int {
	if blank(candidate.Description) {
		return -1
	}
	for i, m := range merged {
		if sameFold(m.Description, candidate.Description) && samePrice(m.UnitPrice, candidate.UnitPrice) {
			return i
		}
	}
	return -1
}

// MatchJob compares the remapped client, the date and the description
// (case-insensitive).
func MatchJob(candidate domain.Job, merged []domain.Job, maps *IDMaps) int {
	clientID := maps.Clients.Resolve(candidate.ClientID)
	if clientID == 0 || blank(candidate.Date) {
		return -1
	}
	for i, j := range merged {
		if j.ClientID == clientID &&
			j.Date == candidate.Date &&
			sameFold(j.Description, candidate.Description) {
			return i
		}
	}
	return -1
}

// MatchQuote matches on the quote number, or on the remapped client together
// with the date.
func MatchQuote(candidate domain.Quote, merged []domain.Quote, maps *IDMaps) int {
	clientID := maps.Clients.Resolve(candidate.ClientID)
	for i, q := range merged {
		if !blank(candidate.Number) && q.Number == candidate.Number {
			return i
		}
		if clientID != 0 && !blank(candidate.Date) && q.ClientID == clientID && q.Date == candidate.Date {
			return i
		}
	}
	return -1
}

// MatchInvoice matches on the invoice number only. Two invoices with the
// same number are duplicates even if their contents differ.
func MatchInvoice(candidate domain.Invoice, merged []domain.Invoice, _ *IDMaps) int {
	if blank(candidate.Number) {
		return -1
	}
	for i, inv := range merged {
		if inv.Number == candidate.Number {
			return i
		}
	}
	return -1
}

// MatchAppointment compares the remapped client, the day and the time of
// day.
func MatchAppointment(candidate domain.Appointment, merged []domain.Appointment, maps *IDMaps) int {
	clientID := maps.Clients.Resolve(candidate.ClientID)
	date := candidate.Date()
	if clientID == 0 || blank(date) {
		return -1
	}
	clock := candidate.Time()
	for i, a := range merged {
		if a.ClientID == clientID && a.Date() == date && a.Time() == clock {
			return i
		}
	}
	return -1
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func sameFold(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

func samePrice(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(PriceTolerance)
}
