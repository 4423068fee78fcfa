package merge

import (
	"fmt"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// IDMap maps an imported record id to the id it has in the merged result,
// either the id of the record it matched or the id it was assigned.
type IDMap map[int]int

// Lookup returns the merged id for old.
func (m IDMap) Lookup(old int) (int, bool) {
	id, ok := m[old]
	return id, ok
}

// Resolve returns the merged id for old, or old itself when it is unmapped.
func (m IDMap) Resolve(old int) int {
	if id, ok := m[old]; ok {
		return id
	}
	return old
}

// IDMaps holds the remap tables built during one merge. Each table is
// complete once its collection's step has run.
type IDMaps struct {
	Clients   IDMap `json:"clients"`
	Materials IDMap `json:"materials"`
	Jobs      IDMap `json:"jobs"`
	Quotes    IDMap `json:"quotes"`
}

func newIDMaps() IDMaps {
	return IDMaps{
		Clients:   IDMap{},
		Materials: IDMap{},
		Jobs:      IDMap{},
		Quotes:    IDMap{},
	}
}

// OrphanPolicy selects what happens to an imported reference whose target
// is not part of the imported snapshot.
type OrphanPolicy string

const (
	// OrphanSkip drops records whose client cannot be resolved and clears
	// unresolved optional references on the records that are added.
	OrphanSkip OrphanPolicy = "skip"
	// OrphanStrict fails the whole merge on the first unresolved reference.
	OrphanStrict OrphanPolicy = "strict"
	// OrphanAllow copies unresolved references unchanged.
	OrphanAllow OrphanPolicy = "allow"
)

// ParseOrphanPolicy validates a policy name. The empty string selects
// OrphanSkip.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	if s == "" {
		return OrphanSkip, nil
	}
	if err := domain.ValidateOrphanPolicy(s); err != nil {
		return "", err
	}
	return OrphanPolicy(s), nil
}

// Orphan records an imported reference that did not resolve.
type Orphan struct {
	Collection domain.Collection `json:"collection"`
	RecordID   int               `json:"record_id"`
	Field      string            `json:"field"`
	TargetID   int               `json:"target_id"`
	Action     string            `json:"action"`
}

func (o Orphan) String() string {
	return fmt.Sprintf("%s #%d: %s=%d unresolved (%s)", o.Collection, o.RecordID, o.Field, o.TargetID, o.Action)
}

// Orphan actions.
const (
	ActionSkipped = "skipped"
	ActionCleared = "cleared"
	ActionKept    = "kept"
)

// ref is one foreign key on an imported record.
type ref struct {
	field    string
	id       *int
	table    IDMap
	required bool
}

// resolver rewrites the references of one imported record through the id
// maps according to the orphan policy.
type resolver struct {
	policy     OrphanPolicy
	collection domain.Collection
	orphans    []Orphan
}

// check reports whether the record can be considered at all. Under
// OrphanStrict any unresolved reference is an error; under OrphanSkip an
// unresolved required reference drops the record.
func (r *resolver) check(recordID int, refs []ref) (bool, error) {
	for _, rf := range refs {
		if *rf.id == 0 && !rf.required {
			continue
		}
		if _, ok := rf.table.Lookup(*rf.id); ok {
			continue
		}
		switch r.policy {
		case OrphanStrict:
			return false, fmt.Errorf("%w: %s #%d %s=%d", domain.ErrOrphanReference, r.collection, recordID, rf.field, *rf.id)
		case OrphanSkip:
			if rf.required {
				r.orphans = append(r.orphans, Orphan{
					Collection: r.collection,
					RecordID:   recordID,
					Field:      rf.field,
					TargetID:   *rf.id,
					Action:     ActionSkipped,
				})
				return false, nil
			}
		}
	}
	return true, nil
}

// apply rewrites refs in place on a record that is being added.
func (r *resolver) apply(recordID int, refs []ref) {
	for _, rf := range refs {
		if *rf.id == 0 && !rf.required {
			continue
		}
		if id, ok := rf.table.Lookup(*rf.id); ok {
			*rf.id = id
			continue
		}
		orphan := Orphan{
			Collection: r.collection,
			RecordID:   recordID,
			Field:      rf.field,
			TargetID:   *rf.id,
			Action:     ActionKept,
		}
		if r.policy == OrphanSkip {
			orphan.Action = ActionCleared
			*rf.id = 0
		}
		r.orphans = append(r.orphans, orphan)
	}
}
