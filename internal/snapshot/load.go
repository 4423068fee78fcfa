package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// requiredCollections must be present in every backup. Invoices and
// appointments were added to the backup format later and default to empty.
var requiredCollections = []domain.Collection{
	domain.CollectionClients,
	domain.CollectionMaterials,
	domain.CollectionJobs,
	domain.CollectionQuotes,
}

// Parse decodes and validates a backup document.
func Parse(data []byte) (*Snapshot, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	if err := validateMembers(members); err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	snap.Normalize()
	return &snap, nil
}

// Load reads and parses a backup file. The raw bytes are returned alongside
// so callers can compute a revision of exactly what was read.
func Load(path string) (*Snapshot, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return snap, data, nil
}

// Write encodes s and writes it to path, creating parent directories.
func Write(path string, s *Snapshot, canonical bool) ([]byte, error) {
	data, err := Encode(s, canonical)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return data, nil
}

func validateMembers(members map[string]json.RawMessage) error {
	if members == nil {
		return fmt.Errorf("%w: document is not an object", domain.ErrInvalidSnapshot)
	}
	for _, col := range requiredCollections {
		raw, ok := members[string(col)]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return fmt.Errorf("%w: missing %s", domain.ErrInvalidSnapshot, col)
		}
	}
	for _, col := range domain.Collections {
		raw, ok := members[string(col)]
		if !ok {
			continue
		}
		trimmed := bytes.TrimSpace(raw)
		if bytes.Equal(trimmed, []byte("null")) {
			continue
		}
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return fmt.Errorf("%w: %s is not an array", domain.ErrInvalidSnapshot, col)
		}
	}
	return nil
}

// EncodeCollection returns one collection as a JSON array.
func EncodeCollection(s *Snapshot, col domain.Collection) ([]byte, error) {
	normalized := *s
	normalized.Normalize()

	var value any
	switch col {
	case domain.CollectionClients:
		value = normalized.Clients
	case domain.CollectionMaterials:
		value = normalized.Materials
	case domain.CollectionJobs:
		value = normalized.Jobs
	case domain.CollectionQuotes:
		value = normalized.Quotes
	case domain.CollectionInvoices:
		value = normalized.Invoices
	case domain.CollectionAppointments:
		value = normalized.Appointments
	default:
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownCollection, col)
	}
	return json.Marshal(value)
}

// DecodeCollection replaces one collection of s with the records in data.
func DecodeCollection(s *Snapshot, col domain.Collection, data []byte) error {
	var err error
	switch col {
	case domain.CollectionClients:
		s.Clients = nil
		err = json.Unmarshal(data, &s.Clients)
	case domain.CollectionMaterials:
		s.Materials = nil
		err = json.Unmarshal(data, &s.Materials)
	case domain.CollectionJobs:
		s.Jobs = nil
		err = json.Unmarshal(data, &s.Jobs)
	case domain.CollectionQuotes:
		s.Quotes = nil
		err = json.Unmarshal(data, &s.Quotes)
	case domain.CollectionInvoices:
		s.Invoices = nil
		err = json.Unmarshal(data, &s.Invoices)
	case domain.CollectionAppointments:
		s.Appointments = nil
		err = json.Unmarshal(data, &s.Appointments)
	default:
		return fmt.Errorf("%w %q", domain.ErrUnknownCollection, col)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", col, err)
	}
	s.Normalize()
	return nil
}
