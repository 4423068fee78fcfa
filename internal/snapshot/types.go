// Package snapshot provides the backup file format for hbdesk.
//
// A snapshot is the whole business state as one JSON document: the six
// collections plus a few export metadata fields. It is what the desktop app
// writes as HB_Backup_<date>.json and what the import command reads back.
package snapshot

import (
	"time"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// DefaultAppName is written into exported backups.
const DefaultAppName = "HB Impianti"

// Snapshot represents the complete state of an hbdesk store.
type Snapshot struct {
	Clients      []domain.Client      `json:"clients"`
	Materials    []domain.Material    `json:"materials"`
	Jobs         []domain.Job         `json:"jobs"`
	Quotes       []domain.Quote       `json:"quotes"`
	Invoices     []domain.Invoice     `json:"invoices"`
	Appointments []domain.Appointment `json:"appointments"`

	ExportDate string `json:"exportDate,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
	AppName    string `json:"appName,omitempty"`
}

// Counts holds the number of records per collection.
type Counts struct {
	Clients      int `json:"clients" yaml:"clients"`
	Materials    int `json:"materials" yaml:"materials"`
	Jobs         int `json:"jobs" yaml:"jobs"`
	Quotes       int `json:"quotes" yaml:"quotes"`
	Invoices     int `json:"invoices" yaml:"invoices"`
	Appointments int `json:"appointments" yaml:"appointments"`
}

// Total returns the number of records across all collections.
func (c Counts) Total() int {
	return c.Clients + c.Materials + c.Jobs + c.Quotes + c.Invoices + c.Appointments
}

// Get returns the count for a single collection.
func (c Counts) Get(col domain.Collection) int {
	switch col {
	case domain.CollectionClients:
		return c.Clients
	case domain.CollectionMaterials:
		return c.Materials
	case domain.CollectionJobs:
		return c.Jobs
	case domain.CollectionQuotes:
		return c.Quotes
	case domain.CollectionInvoices:
		return c.Invoices
	case domain.CollectionAppointments:
		return c.Appointments
	}
	return 0
}

// Counts returns the number of records per collection.
func (s *Snapshot) Counts() Counts {
	return Counts{
		Clients:      len(s.Clients),
		Materials:    len(s.Materials),
		Jobs:         len(s.Jobs),
		Quotes:       len(s.Quotes),
		Invoices:     len(s.Invoices),
		Appointments: len(s.Appointments),
	}
}

// IsEmpty reports whether the snapshot holds no records at all.
func (s *Snapshot) IsEmpty() bool {
	return s.Counts().Total() == 0
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (s *Snapshot) Normalize() {
	if s.Clients == nil {
		s.Clients = []domain.Client{}
	}
	if s.Materials == nil {
		s.Materials = []domain.Material{}
	}
	if s.Jobs == nil {
		s.Jobs = []domain.Job{}
	}
	if s.Quotes == nil {
		s.Quotes = []domain.Quote{}
	}
	if s.Invoices == nil {
		s.Invoices = []domain.Invoice{}
	}
	if s.Appointments == nil {
		s.Appointments = []domain.Appointment{}
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		ExportDate: s.ExportDate,
		AppVersion: s.AppVersion,
		AppName:    s.AppName,
	}
	out.Clients = make([]domain.Client, len(s.Clients))
	for i, c := range s.Clients {
		out.Clients[i] = c.Clone()
	}
	out.Materials = make([]domain.Material, len(s.Materials))
	for i, m := range s.Materials {
		out.Materials[i] = m.Clone()
	}
	out.Jobs = make([]domain.Job, len(s.Jobs))
	for i, j := range s.Jobs {
		out.Jobs[i] = j.Clone()
	}
	out.Quotes = make([]domain.Quote, len(s.Quotes))
	for i, q := range s.Quotes {
		out.Quotes[i] = q.Clone()
	}
	out.Invoices = make([]domain.Invoice, len(s.Invoices))
	for i, inv := range s.Invoices {
		out.Invoices[i] = inv.Clone()
	}
	out.Appointments = make([]domain.Appointment, len(s.Appointments))
	for i, a := range s.Appointments {
		out.Appointments[i] = a.Clone()
	}
	return out
}

// Collection returns the records of one collection as a generic slice, in
// stored order.
func (s *Snapshot) Collection(col domain.Collection) ([]any, error) {
	var out []any
	switch col {
	case domain.CollectionClients:
		for _, r := range s.Clients {
			out = append(out, r)
		}
	case domain.CollectionMaterials:
		for _, r := range s.Materials {
			out = append(out, r)
		}
	case domain.CollectionJobs:
		for _, r := range s.Jobs {
			out = append(out, r)
		}
	case domain.CollectionQuotes:
		for _, r := range s.Quotes {
			out = append(out, r)
		}
	case domain.CollectionInvoices:
		for _, r := range s.Invoices {
			out = append(out, r)
		}
	case domain.CollectionAppointments:
		for _, r := range s.Appointments {
			out = append(out, r)
		}
	default:
		return nil, domain.ErrUnknownCollection
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// BackupFilename returns the default export file name for the given day.
func BackupFilename(t time.Time) string {
	return "HB_Backup_" + t.Format("2006-01-02") + ".json"
}

// FormatTimestamp formats a time.Time the way exportDate is written.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
