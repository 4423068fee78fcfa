package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Encode serializes a snapshot.
//
// The pretty form is indented with two spaces, the layout the desktop app
// has always written. The canonical form is compact with every record's keys
// sorted, so two equal states always produce the same bytes.
func Encode(s *Snapshot, canonical bool) ([]byte, error) {
	normalized := *s
	normalized.Normalize()

	var (
		value any = &normalized
		err   error
	)
	if canonical {
		value, err = buildOrderedSnapshot(&normalized)
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if !canonical {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	// Remove trailing newline added by Encode
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// ComputeRev computes the sha256 hash of encoded snapshot bytes.
// Returns "sha256:<hex>" format.
func ComputeRev(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Rev returns the revision of the canonical form of s. Export metadata is
// left out so the same records always yield the same revision.
func Rev(s *Snapshot) (string, error) {
	bare := *s
	bare.ExportDate, bare.AppVersion, bare.AppName = "", "", ""
	data, err := Encode(&bare, true)
	if err != nil {
		return "", err
	}
	return ComputeRev(data), nil
}

// buildOrderedSnapshot lays out collections in dependency order followed by
// the export metadata.
func buildOrderedSnapshot(s *Snapshot) (orderedMap, error) {
	result := make(orderedMap, 0, 9)

	collections := []struct {
		key     string
		records any
	}{
		{"clients", s.Clients},
		{"materials", s.Materials},
		{"jobs", s.Jobs},
		{"quotes", s.Quotes},
		{"invoices", s.Invoices},
		{"appointments", s.Appointments},
	}
	for _, c := range collections {
		records, err := canonicalRecords(c.records)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", c.key, err)
		}
		result = append(result, keyValue{c.key, records})
	}

	if s.ExportDate != "" {
		result = append(result, keyValue{"exportDate", s.ExportDate})
	}
	if s.AppVersion != "" {
		result = append(result, keyValue{"appVersion", s.AppVersion})
	}
	if s.AppName != "" {
		result = append(result, keyValue{"appName", s.AppName})
	}

	return result, nil
}

// canonicalRecords re-decodes a record slice into generic values. Go encodes
// maps with sorted keys, which gives each record a stable member order
// whether or not it carries extra members. Numbers are kept as written.
func canonicalRecords(records any) (any, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var generic []any
	if err := decoder.Decode(&generic); err != nil {
		return nil, err
	}
	if generic == nil {
		generic = []any{}
	}
	return generic, nil
}

// orderedMap is a slice of key-value pairs that marshals as a JSON object
// with keys in the order they appear in the slice.
type orderedMap []keyValue

type keyValue struct {
	Key   string
	Value interface{}
}

func (om orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, kv := range om {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyJSON, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		valJSON, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
