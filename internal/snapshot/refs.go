package snapshot

import (
	"fmt"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// Reference is a foreign key that does not resolve.
type Reference struct {
	Collection domain.Collection `json:"collection"`
	RecordID   int               `json:"record_id"`
	Field      string            `json:"field"`
	Target     domain.Collection `json:"target"`
	TargetID   int               `json:"target_id"`
}

func (r Reference) String() string {
	return fmt.Sprintf("%s #%d: %s=%d not found in %s", r.Collection, r.RecordID, r.Field, r.TargetID, r.Target)
}

// DuplicateID is an id that appears more than once in a collection.
type DuplicateID struct {
	Collection domain.Collection `json:"collection"`
	ID         int               `json:"id"`
	Count      int               `json:"count"`
}

type idSet map[int]struct{}

func idsOf[T any](records []T, id func(T) int) idSet {
	set := make(idSet, len(records))
	for _, r := range records {
		set[id(r)] = struct{}{}
	}
	return set
}

// DanglingReferences lists every foreign key in s that does not resolve.
// A client reference is required; job, quote and material references are
// optional and 0 means unset.
func DanglingReferences(s *Snapshot) []Reference {
	clients := idsOf(s.Clients, func(c domain.Client) int { return c.ID })
	materials := idsOf(s.Materials, func(m domain.Material) int { return m.ID })
	jobs := idsOf(s.Jobs, func(j domain.Job) int { return j.ID })
	quotes := idsOf(s.Quotes, func(q domain.Quote) int { return q.ID })

	var refs []Reference
	check := func(col domain.Collection, recordID int, field string, target domain.Collection, set idSet, id int, required bool) {
		if id == 0 && !required {
			return
		}
		if _, ok := set[id]; !ok {
			refs = append(refs, Reference{Collection: col, RecordID: recordID, Field: field, Target: target, TargetID: id})
		}
	}

	for _, j := range s.Jobs {
		check(domain.CollectionJobs, j.ID, "clienteId", domain.CollectionClients, clients, j.ClientID, true)
	}
	for _, q := range s.Quotes {
		check(domain.CollectionQuotes, q.ID, "clienteId", domain.CollectionClients, clients, q.ClientID, true)
		for _, item := range q.Items {
			check(domain.CollectionQuotes, q.ID, "voci.materialId", domain.CollectionMaterials, materials, item.MaterialID, false)
		}
	}
	for _, inv := range s.Invoices {
		check(domain.CollectionInvoices, inv.ID, "clienteId", domain.CollectionClients, clients, inv.ClientID, true)
		check(domain.CollectionInvoices, inv.ID, "jobId", domain.CollectionJobs, jobs, inv.JobID, false)
		check(domain.CollectionInvoices, inv.ID, "quoteId", domain.CollectionQuotes, quotes, inv.QuoteID, false)
		for _, item := range inv.Items {
			check(domain.CollectionInvoices, inv.ID, "voci.materialId", domain.CollectionMaterials, materials, item.MaterialID, false)
		}
	}
	for _, a := range s.Appointments {
		check(domain.CollectionAppointments, a.ID, "clienteId", domain.CollectionClients, clients, a.ClientID, true)
	}

	return refs
}

// DuplicateIDs lists ids that occur more than once within a collection.
func DuplicateIDs(s *Snapshot) []DuplicateID {
	var dups []DuplicateID
	collect := func(col domain.Collection, ids []int) {
		seen := make(map[int]int, len(ids))
		var order []int
		for _, id := range ids {
			if seen[id] == 0 {
				order = append(order, id)
			}
			seen[id]++
		}
		for _, id := range order {
			if seen[id] > 1 {
				dups = append(dups, DuplicateID{Collection: col, ID: id, Count: seen[id]})
			}
		}
	}

	collect(domain.CollectionClients, pluck(s.Clients, func(c domain.Client) int { return c.ID }))
	collect(domain.CollectionMaterials, pluck(s.Materials, func(m domain.Material) int { return m.ID }))
	collect(domain.CollectionJobs, pluck(s.Jobs, func(j domain.Job) int { return j.ID }))
	collect(domain.CollectionQuotes, pluck(s.Quotes, func(q domain.Quote) int { return q.ID }))
	collect(domain.CollectionInvoices, pluck(s.Invoices, func(inv domain.Invoice) int { return inv.ID }))
	collect(domain.CollectionAppointments, pluck(s.Appointments, func(a domain.Appointment) int { return a.ID }))
	return dups
}

func pluck[T any](records []T, id func(T) int) []int {
	ids := make([]int, len(records))
	for i, r := range records {
		ids[i] = id(r)
	}
	return ids
}
