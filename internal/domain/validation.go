package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSnapshot is returned when a backup lacks a required collection
	// or cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrUnknownCollection is returned for a collection name outside the six.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrOrphanReference is returned by a strict merge when an imported record
	// references an id the imported snapshot does not define.
	ErrOrphanReference = errors.New("orphan reference")
)

// ParseCollection validates a collection name (case-insensitive).
func ParseCollection(name string) (Collection, error) {
	normalized := Collection(strings.ToLower(strings.TrimSpace(name)))
	for _, c := range Collections {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be one of: clients, materials, jobs, quotes, invoices, appointments", ErrUnknownCollection, name)
}

// ValidateImportMode validates an import mode
func ValidateImportMode(mode string) error {
	switch mode {
	case "merge", "overwrite", "auto":
		return nil
	default:
		return fmt.Errorf("invalid import mode: must be one of: merge, overwrite, auto")
	}
}

// ValidateOrphanPolicy validates an orphan handling policy
func ValidateOrphanPolicy(policy string) error {
	switch policy {
	case "skip", "strict", "allow":
		return nil
	default:
		return fmt.Errorf("invalid orphan policy: must be one of: skip, strict, allow")
	}
}

// ETagMismatchError is returned when a collection changed between load and
// commit.
type ETagMismatchError struct {
	Collection Collection
	Expected   int64
	Actual     int64
}

func (e *ETagMismatchError) Error() string {
	return fmt.Sprintf("etag mismatch on %s: expected %d, got %d", e.Collection, e.Expected, e.Actual)
}

// CheckETag validates an etag against the current value
func CheckETag(collection Collection, expected, actual int64) error {
	if expected != actual {
		return &ETagMismatchError{Collection: collection, Expected: expected, Actual: actual}
	}
	return nil
}
