package cli

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/events"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
	"github.com/hbimpianti/hbdesk/internal/totals"
	"github.com/hbimpianti/hbdesk/internal/webhooks"
)

var revatAdmCmd = &cobra.Command{
	Use:   "revat",
	Short: "Move invoices from one VAT rate to another",
	Long: `Revat rewrites every invoice billed at --from percent VAT to --to percent
and recomputes its totals from the line items. Invoices without an explicit
rate are treated as billed at the configured default rate.

The invoices collection is copied to collection_backups before it changes,
and the repair is recorded in the import log.

Example:
  hbdeskadm revat --from 22 --to 10 --dry-run`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runRevatAdm),
}

var (
	revatFrom   string
	revatTo     string
	revatDryRun bool
	revatJSON   bool
)

func init() {
	rootAdmCmd.AddCommand(revatAdmCmd)

	revatAdmCmd.Flags().StringVar(&revatFrom, "from", "22", "VAT rate to replace (percent)")
	revatAdmCmd.Flags().StringVar(&revatTo, "to", "10", "New VAT rate (percent)")
	revatAdmCmd.Flags().BoolVar(&revatDryRun, "dry-run", false, "Show the changes without writing")
	revatAdmCmd.Flags().BoolVar(&revatJSON, "json", false, "Output as JSON")
}

type revatReport struct {
	From       decimal.Decimal      `json:"from"`
	To         decimal.Decimal      `json:"to"`
	DryRun     bool                 `json:"dry_run"`
	Invoices   []totals.RevatResult `json:"invoices"`
	ImportUUID string               `json:"import_uuid,omitempty"`
}

func runRevatAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	from, err := decimal.NewFromString(revatFrom)
	if err != nil {
		return exitError(2, fmt.Errorf("invalid --from rate %q: %w", revatFrom, err))
	}
	to, err := decimal.NewFromString(revatTo)
	if err != nil {
		return exitError(2, fmt.Errorf("invalid --to rate %q: %w", revatTo, err))
	}
	if from.Equal(to) {
		return exitError(2, fmt.Errorf("--from and --to are the same rate"))
	}
	fallback, err := app.Config.VAT()
	if err != nil {
		return exitError(2, err)
	}

	state, err := app.Store.Load(cmd.Context())
	if err != nil {
		return exitError(1, err)
	}

	next := state.Snapshot.Clone()
	report := revatReport{
		From:     from,
		To:       to,
		DryRun:   revatDryRun,
		Invoices: totals.Revat(next.Invoices, from, to, fallback),
	}
	if report.Invoices == nil {
		report.Invoices = []totals.RevatResult{}
	}

	if !revatDryRun && len(report.Invoices) > 0 {
		rev, err := snapshot.Rev(next)
		if err != nil {
			return exitError(1, err)
		}
		entry, err := app.Store.Commit(cmd.Context(), next, store.Change{
			Mode:        events.ModeRevat,
			Source:      fmt.Sprintf("revat %s->%s", from, to),
			SnapshotRev: rev,
			Stats:       report.Invoices,
			IfMatch:     state.ETags,
			Backup:      true,
		})
		if err != nil {
			return exitError(1, fmt.Errorf("failed to save invoices: %w", err))
		}
		report.ImportUUID = entry.UUID
		app.Logger.Info("vat repair committed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Int("invoices", len(report.Invoices)))
		app.Hooks.Dispatch(cmd.Context(), webhooks.PayloadFor(entry, next.Counts()))
	}

	if revatJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	out := cmd.OutOrStdout()
	if len(report.Invoices) == 0 {
		fmt.Fprintf(out, "No invoices at %s%% VAT.\n", from)
		return nil
	}
	for _, r := range report.Invoices {
		fmt.Fprintf(out, "  %-14s %12s -> %12s\n", r.Number, totals.Format(r.Before.Total), totals.Format(r.After.Total))
	}
	verb := "Updated"
	if revatDryRun {
		verb = "Would update"
	}
	fmt.Fprintf(out, "\n%s %d invoice(s) from %s%% to %s%% VAT.\n", verb, len(report.Invoices), from, to)
	return nil
}
