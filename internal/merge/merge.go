// Package merge reconciles an imported backup with the current state.
//
// Merge is a pure function: it reads two snapshots and returns a new one
// together with statistics and the id remap tables it built. Collections are
// processed in dependency order so that each step can rewrite foreign keys
// through the maps produced by the steps before it.
package merge

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/totals"
)

// Options configures a merge.
type Options struct {
	// Orphans selects how unresolved imported references are handled.
	// The zero value means OrphanSkip.
	Orphans OrphanPolicy
	// RecomputeTotals replaces the cached totals of added quotes and
	// invoices with the ones their line items produce.
	RecomputeTotals bool
	// VATRate is used by RecomputeTotals for records without their own
	// rate. The zero value means totals.DefaultVATRate.
	VATRate decimal.Decimal
}

// Result is the outcome of a merge.
type Result struct {
	Merged  *snapshot.Snapshot `json:"-"`
	Stats   Stats              `json:"stats"`
	Maps    IDMaps             `json:"maps"`
	Orphans []Orphan           `json:"orphans,omitempty"`
	// Duplicates lists ids the imported snapshot uses more than once. The
	// first record with such an id owns it in Maps, so references follow
	// that record.
	Duplicates []snapshot.DuplicateID `json:"duplicates,omitempty"`
}

// state is what the steps share while a merge runs.
type state struct {
	opts    Options
	merged  *snapshot.Snapshot
	maps    IDMaps
	stats   Stats
	orphans []Orphan
}

// step merges one collection.
type step interface {
	collection() domain.Collection
	run(st *state, imported *snapshot.Snapshot) error
}

// collectionStep is the generic add-or-skip pipeline shared by every
// collection. Only the field accessors and the match function differ.
type collectionStep[T any] struct {
	name    domain.Collection
	records func(*snapshot.Snapshot) *[]T
	id      func(*T) *int
	match   func(T, []T, *IDMaps) int
	refs    func(*T, *IDMaps) []ref
	clone   func(T) T
	idMap   func(*IDMaps) IDMap
	finish  func(*T, *state)
}

func (s collectionStep[T]) collection() domain.Collection { return s.name }

func (s collectionStep[T]) run(st *state, imported *snapshot.Snapshot) error {
	merged := s.records(st.merged)
	counts := st.stats.For(s.name)

	var ids IDMap
	if s.idMap != nil {
		ids = s.idMap(&st.maps)
	}

	nextID := 1
	for i := range *merged {
		if id := *s.id(&(*merged)[i]); id >= nextID {
			nextID = id + 1
		}
	}

	res := &resolver{policy: st.opts.Orphans, collection: s.name}
	for _, candidate := range *s.records(imported) {
		oldID := *s.id(&candidate)

		if s.refs != nil {
			ok, err := res.check(oldID, s.refs(&candidate, &st.maps))
			if err != nil {
				return err
			}
			if !ok {
				counts.Orphaned++
				continue
			}
		}

		_, claimed := ids[oldID]
		if idx := s.match(candidate, *merged, &st.maps); idx >= 0 {
			if ids != nil && !claimed {
				ids[oldID] = *s.id(&(*merged)[idx])
			}
			counts.Skipped++
			continue
		}

		record := s.clone(candidate)
		*s.id(&record) = nextID
		if s.refs != nil {
			res.apply(oldID, s.refs(&record, &st.maps))
		}
		if s.finish != nil {
			s.finish(&record, st)
		}
		*merged = append(*merged, record)
		if ids != nil && !claimed {
			ids[oldID] = nextID
		}
		nextID++
		counts.Added++
	}

	st.orphans = append(st.orphans, res.orphans...)
	return nil
}

// steps lists the merge pipeline in processing order. Every step only reads
// id maps filled by earlier steps.
var steps = []step{
	collectionStep[domain.Client]{
		name:    domain.CollectionClients,
		records: func(s *snapshot.Snapshot) *[]domain.Client { return &s.Clients },
		id:      func(c *domain.Client) *int { return &c.ID },
		match:   MatchClient,
		clone:   domain.Client.Clone,
		idMap:   func(m *IDMaps) IDMap { return m.Clients },
	},
	collectionStep[domain.Material]{
		name:    domain.CollectionMaterials,
		records: func(s *snapshot.Snapshot) *[]domain.Material { return &s.Materials },
		id:      func(m *domain.Material) *int { return &m.ID },
		match:   MatchMaterial,
		clone:   domain.Material.Clone,
		idMap:   func(m *IDMaps) IDMap { return m.Materials },
	},
	collectionStep[domain.Job]{
		name:    domain.CollectionJobs,
		records: func(s *snapshot.Snapshot) *[]domain.Job { return &s.Jobs },
		id:      func(j *domain.Job) *int { return &j.ID },
		match:   MatchJob,
		refs: func(j *domain.Job, m *IDMaps) []ref {
			return []ref{{field: "clienteId", id: &j.ClientID, table: m.Clients, required: true}}
		},
		clone: domain.Job.Clone,
		idMap: func(m *IDMaps) IDMap { return m.Jobs },
	},
	collectionStep[domain.Quote]{
		name:    domain.CollectionQuotes,
		records: func(s *snapshot.Snapshot) *[]domain.Quote { return &s.Quotes },
		id:      func(q *domain.Quote) *int { return &q.ID },
		match:   MatchQuote,
		refs: func(q *domain.Quote, m *IDMaps) []ref {
			refs := []ref{{field: "clienteId", id: &q.ClientID, table: m.Clients, required: true}}
			return append(refs, itemRefs(q.Items, m)...)
		},
		clone:  domain.Quote.Clone,
		idMap:  func(m *IDMaps) IDMap { return m.Quotes },
		finish: recomputeQuote,
	},
	collectionStep[domain.Invoice]{
		name:    domain.CollectionInvoices,
		records: func(s *snapshot.Snapshot) *[]domain.Invoice { return &s.Invoices },
		id:      func(inv *domain.Invoice) *int { return &inv.ID },
		match:   MatchInvoice,
		refs: func(inv *domain.Invoice, m *IDMaps) []ref {
			refs := []ref{
				{field: "clienteId", id: &inv.ClientID, table: m.Clients, required: true},
				{field: "jobId", id: &inv.JobID, table: m.Jobs},
				{field: "quoteId", id: &inv.QuoteID, table: m.Quotes},
			}
			return append(refs, itemRefs(inv.Items, m)...)
		},
		clone:  domain.Invoice.Clone,
		finish: recomputeInvoice,
	},
	collectionStep[domain.Appointment]{
		name:    domain.CollectionAppointments,
		records: func(s *snapshot.Snapshot) *[]domain.Appointment { return &s.Appointments },
		id:      func(a *domain.Appointment) *int { return &a.ID },
		match:   MatchAppointment,
		refs: func(a *domain.Appointment, m *IDMaps) []ref {
			return []ref{{field: "clienteId", id: &a.ClientID, table: m.Clients, required: true}}
		},
		clone: domain.Appointment.Clone,
	},
}

func itemRefs(items []domain.LineItem, m *IDMaps) []ref {
	var refs []ref
	for i := range items {
		refs = append(refs, ref{field: "voci.materialId", id: &items[i].MaterialID, table: m.Materials})
	}
	return refs
}

func recomputeQuote(q *domain.Quote, st *state) {
	if !st.opts.RecomputeTotals || len(q.Items) == 0 {
		return
	}
	total := totals.QuoteTotal(*q, st.opts.VATRate)
	q.Total = &total
}

func recomputeInvoice(inv *domain.Invoice, st *state) {
	if !st.opts.RecomputeTotals {
		return
	}
	totals.Recompute(inv, st.opts.VATRate)
}

// Merge unions imported into current. Records of imported that duplicate a
// record already present are skipped; the rest are appended with fresh ids
// and their foreign keys rewritten. Neither input is modified.
//
// On error no merged snapshot is returned.
func Merge(current, imported *snapshot.Snapshot, opts Options) (*Result, error) {
	if imported == nil {
		return nil, fmt.Errorf("%w: nothing to merge", domain.ErrInvalidSnapshot)
	}
	if opts.Orphans == "" {
		opts.Orphans = OrphanSkip
	}
	if opts.VATRate.IsZero() {
		opts.VATRate = totals.DefaultVATRate
	}

	base := current
	if base == nil {
		base = &snapshot.Snapshot{}
	}

	st := &state{
		opts:   opts,
		merged: base.Clone(),
		maps:   newIDMaps(),
	}
	for _, s := range steps {
		if err := s.run(st, imported); err != nil {
			return nil, fmt.Errorf("merge %s: %w", s.collection(), err)
		}
	}
	st.merged.Normalize()

	return &Result{
		Merged:     st.merged,
		Stats:      st.stats,
		Maps:       st.maps,
		Orphans:    st.orphans,
		Duplicates: snapshot.DuplicateIDs(imported),
	}, nil
}

// Overwrite returns a copy of imported to replace the current state with.
func Overwrite(imported *snapshot.Snapshot) *snapshot.Snapshot {
	out := imported.Clone()
	out.Normalize()
	return out
}
