// Package patch computes record-level change sets between two snapshots.
//
// Operations follow RFC 6902 naming (add, remove, replace) but address
// records by id rather than array index: "/jobs/12" is the job whose id is
// 12. Changed records are replaced whole.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

// Operation is a single change to one record.
type Operation struct {
	Op    string          `json:"op"`              // add, remove, replace
	Path  string          `json:"path"`            // /<collection>/<id>
	Value json.RawMessage `json:"value,omitempty"` // record for add/replace
}

// Patch is a sequence of operations, grouped by collection in the usual
// collection order and sorted by id within each.
type Patch []Operation

// Diff returns the operations that turn base into target. When a collection
// holds duplicate ids the last record with that id is used.
func Diff(base, target *snapshot.Snapshot) (Patch, error) {
	var ops Patch
	for _, col := range domain.Collections {
		baseRecords, err := recordsByID(base, col)
		if err != nil {
			return nil, err
		}
		targetRecords, err := recordsByID(target, col)
		if err != nil {
			return nil, err
		}
		ops = append(ops, diffRecords("/"+string(col), baseRecords, targetRecords)...)
	}
	return ops, nil
}

func recordsByID(s *snapshot.Snapshot, col domain.Collection) (map[int]json.RawMessage, error) {
	data, err := snapshot.EncodeCollection(s, col)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", col, err)
	}

	byID := make(map[int]json.RawMessage, len(records))
	for _, raw := range records {
		var head struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("failed to read %s id: %w", col, err)
		}
		byID[head.ID] = raw
	}
	return byID, nil
}

func diffRecords(basePath string, base, target map[int]json.RawMessage) Patch {
	var ops Patch

	allIDs := make(map[int]bool, len(base)+len(target))
	for id := range base {
		allIDs[id] = true
	}
	for id := range target {
		allIDs[id] = true
	}
	ids := make([]int, 0, len(allIDs))
	for id := range allIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		path := basePath + "/" + strconv.Itoa(id)
		baseVal, inBase := base[id]
		targetVal, inTarget := target[id]

		switch {
		case !inBase && inTarget:
			ops = append(ops, Operation{Op: "add", Path: path, Value: targetVal})
		case inBase && !inTarget:
			ops = append(ops, Operation{Op: "remove", Path: path})
		case !bytes.Equal(baseVal, targetVal):
			ops = append(ops, Operation{Op: "replace", Path: path, Value: targetVal})
		}
	}

	return ops
}

// CountOps returns counts of operations by type.
func (p Patch) CountOps() (adds, replaces, removes int) {
	for _, op := range p {
		switch op.Op {
		case "add":
			adds++
		case "replace":
			replaces++
		case "remove":
			removes++
		}
	}
	return
}
