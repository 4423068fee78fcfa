package merge

import (
	"fmt"
	"strings"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// Counts holds the outcome for one collection.
type Counts struct {
	Added    int `json:"added" yaml:"added"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Orphaned int `json:"orphaned,omitempty" yaml:"orphaned,omitempty"`
}

// Seen returns the number of imported records considered.
func (c Counts) Seen() int {
	return c.Added + c.Skipped + c.Orphaned
}

// Stats holds per-collection merge counts.
type Stats struct {
	Clients      Counts `json:"clients" yaml:"clients"`
	Materials    Counts `json:"materials" yaml:"materials"`
	Jobs         Counts `json:"jobs" yaml:"jobs"`
	Quotes       Counts `json:"quotes" yaml:"quotes"`
	Invoices     Counts `json:"invoices" yaml:"invoices"`
	Appointments Counts `json:"appointments" yaml:"appointments"`
}

// For returns the counts of one collection.
func (s *Stats) For(col domain.Collection) *Counts {
	switch col {
	case domain.CollectionClients:
		return &s.Clients
	case domain.CollectionMaterials:
		return &s.Materials
	case domain.CollectionJobs:
		return &s.Jobs
	case domain.CollectionQuotes:
		return &s.Quotes
	case domain.CollectionInvoices:
		return &s.Invoices
	case domain.CollectionAppointments:
		return &s.Appointments
	}
	return nil
}

// Totals sums the counts of every collection.
func (s Stats) Totals() Counts {
	var total Counts
	for _, col := range domain.Collections {
		c := s.For(col)
		total.Added += c.Added
		total.Skipped += c.Skipped
		total.Orphaned += c.Orphaned
	}
	return total
}

var collectionLabels = map[domain.Collection]string{
	domain.CollectionClients:      "Clients",
	domain.CollectionMaterials:    "Materials",
	domain.CollectionJobs:         "Jobs",
	domain.CollectionQuotes:       "Quotes",
	domain.CollectionInvoices:     "Invoices",
	domain.CollectionAppointments: "Appointments",
}

// Summary renders the counts as the message shown after an import. Sections
// list only collections with a non-zero count.
func (s Stats) Summary() string {
	var b strings.Builder
	total := s.Totals()

	b.WriteString("Merge completed.\n")

	section := func(title string, pick func(Counts) int) {
		lines := 0
		for _, col := range domain.Collections {
			n := pick(*s.For(col))
			if n == 0 {
				continue
			}
			if lines == 0 {
				fmt.Fprintf(&b, "\n%s:\n", title)
			}
			fmt.Fprintf(&b, "  %-13s %d\n", collectionLabels[col]+":", n)
			lines++
		}
	}

	if total.Added == 0 {
		b.WriteString("\nNo new records: everything in the backup is already present.\n")
	} else {
		section("Added", func(c Counts) int { return c.Added })
	}
	section("Skipped (already present)", func(c Counts) int { return c.Skipped })
	section("Skipped (unresolved client)", func(c Counts) int { return c.Orphaned })

	fmt.Fprintf(&b, "\nTotal: %d added, %d skipped", total.Added, total.Skipped)
	if total.Orphaned > 0 {
		fmt.Fprintf(&b, ", %d orphaned", total.Orphaned)
	}
	b.WriteString("\n")
	return b.String()
}
