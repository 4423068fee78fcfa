package cli

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/totals"
)

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Print record counts and revenue totals",
	Long:  `Displays the number of records and the etag of every collection, the dataset revision, and invoice and job totals.`,
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runStat),
}

var statJSON bool

func init() {
	rootCmd.AddCommand(statCmd)
	statCmd.Flags().BoolVar(&statJSON, "json", false, "Output as JSON")
}

type collectionStat struct {
	Name    domain.Collection `json:"name"`
	Records int               `json:"records"`
	ETag    int64             `json:"etag"`
}

type revenueStat struct {
	Invoiced    decimal.Decimal `json:"invoiced"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	JobsTotal   decimal.Decimal `json:"jobs_total"`
	JobsUnpaid  int             `json:"jobs_unpaid"`
}

type statReport struct {
	DBPath      string           `json:"db_path"`
	Rev         string           `json:"rev"`
	Collections []collectionStat `json:"collections"`
	Total       int              `json:"total"`
	Revenue     revenueStat      `json:"revenue"`
}

func runStat(app *appctx.App, cmd *cobra.Command, args []string) error {
	state, err := app.Store.Load(cmd.Context())
	if err != nil {
		return exitError(1, err)
	}
	rev, err := snapshot.Rev(state.Snapshot)
	if err != nil {
		return exitError(1, err)
	}

	counts := state.Snapshot.Counts()
	report := statReport{
		DBPath:  app.Config.DBPath,
		Rev:     rev,
		Total:   counts.Total(),
		Revenue: revenue(state.Snapshot),
	}
	for _, col := range domain.Collections {
		report.Collections = append(report.Collections, collectionStat{
			Name:    col,
			Records: counts.Get(col),
			ETag:    state.ETags[col],
		})
	}

	if statJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", report.DBPath)
	fmt.Fprintf(out, "Rev:      %s\n\n", report.Rev)
	for _, c := range report.Collections {
		fmt.Fprintf(out, "  %-13s %6d  (etag %d)\n", c.Name, c.Records, c.ETag)
	}
	fmt.Fprintf(out, "  %-13s %6d\n\n", "total", report.Total)
	fmt.Fprintf(out, "Invoiced:    %s\n", totals.Format(report.Revenue.Invoiced))
	fmt.Fprintf(out, "Paid:        %s\n", totals.Format(report.Revenue.Paid))
	fmt.Fprintf(out, "Outstanding: %s\n", totals.Format(report.Revenue.Outstanding))
	fmt.Fprintf(out, "Jobs:        %s (%d unpaid)\n", totals.Format(report.Revenue.JobsTotal), report.Revenue.JobsUnpaid)
	return nil
}

func revenue(s *snapshot.Snapshot) revenueStat {
	r := revenueStat{}
	for _, inv := range s.Invoices {
		r.Invoiced = r.Invoiced.Add(inv.Total)
		if inv.Paid {
			r.Paid = r.Paid.Add(inv.Total)
		}
	}
	r.Outstanding = r.Invoiced.Sub(r.Paid)
	for _, j := range s.Jobs {
		r.JobsTotal = r.JobsTotal.Add(totals.JobTotal(j))
		if !j.Paid {
			r.JobsUnpaid++
		}
	}
	return r
}
