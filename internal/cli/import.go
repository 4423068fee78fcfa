package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/importer"
	"github.com/hbimpianti/hbdesk/internal/merge"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

type importFlags struct {
	mode            string
	dryRun          bool
	orphans         string
	recomputeTotals bool
	json            bool
	yes             bool
}

// newImportCmd builds the import command; hbdesk and hbdeskadm each get
// their own instance.
func newImportCmd() *cobra.Command {
	f := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON backup",
		Long: `Import reads a backup file and applies it to the database.

Modes:
  merge      add the records of the backup that are not already present;
             matching records are skipped, new ones get fresh ids and their
             references are rewritten
  overwrite  replace all data with the backup (requires --yes); the
             previous collections are kept in collection_backups
  auto       overwrite when the database is empty, merge otherwise (default)

Imported references that point at records the backup does not contain are
handled by --orphans: skip drops or clears them, strict aborts the import,
allow keeps them as they are. Under skip, a job, quote, invoice or
appointment without a clienteId counts as an orphan and is not imported;
use --orphans allow to import such partial records as new.

Use - as the file to read the backup from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return runImport(app, cmd, args, f)
		}),
	}

	cmd.Flags().StringVar(&f.mode, "mode", importer.ModeAuto, "Import mode: merge, overwrite, auto")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().StringVar(&f.orphans, "orphans", "", "Unresolved reference policy: skip, strict, allow (default from config)")
	cmd.Flags().BoolVar(&f.recomputeTotals, "recompute-totals", false, "Recompute totals of added quotes and invoices from their line items")
	cmd.Flags().BoolVar(&f.json, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Confirm an overwrite import")
	return cmd
}

func runImport(app *appctx.App, cmd *cobra.Command, args []string, f *importFlags) error {
	if err := domain.ValidateImportMode(f.mode); err != nil {
		return exitError(2, err)
	}
	if f.mode == importer.ModeOverwrite && !f.dryRun && !f.yes {
		return exitError(2, fmt.Errorf("overwrite replaces all current data: pass --yes to confirm or --dry-run to preview"))
	}

	policyName := f.orphans
	if policyName == "" {
		policyName = app.Config.Orphans
	}
	policy, err := merge.ParseOrphanPolicy(policyName)
	if err != nil {
		return exitError(2, err)
	}
	rate, err := app.Config.VAT()
	if err != nil {
		return exitError(2, err)
	}

	source := args[0]
	var imported *snapshot.Snapshot
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return exitError(1, fmt.Errorf("failed to read stdin: %w", err))
		}
		imported, err = snapshot.Parse(data)
		if err != nil {
			return exitError(1, err)
		}
		source = "stdin"
	} else {
		imported, _, err = snapshot.Load(source)
		if err != nil {
			return exitError(1, err)
		}
	}

	report, err := importer.Run(cmd.Context(), app.Store, imported, importer.Options{
		Mode:            f.mode,
		DryRun:          f.dryRun,
		Orphans:         policy,
		RecomputeTotals: f.recomputeTotals,
		VATRate:         rate,
		Source:          source,
		Logger:          app.Logger,
		Hooks:           app.Hooks,
	})
	if err != nil {
		return exitError(1, err)
	}

	if f.json {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	printImportReport(cmd, source, report)
	return nil
}

func printImportReport(cmd *cobra.Command, source string, report *importer.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Import %s\n", source)
	fmt.Fprintf(out, "Mode: %s", report.Mode)
	if report.DryRun {
		fmt.Fprint(out, " (dry-run, nothing written)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Backup rev: %s\n\n", report.SnapshotRev)

	if report.Stats != nil {
		fmt.Fprint(out, report.Stats.Summary())
		for _, o := range report.Orphans {
			fmt.Fprintf(out, "  ! %s\n", o)
		}
		for _, dup := range report.Duplicates {
			fmt.Fprintf(out, "  ! %s #%d appears %d times in the backup; references follow the first\n", dup.Collection, dup.ID, dup.Count)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%-13s %8s %8s\n", "Collection", "Before", "After")
	for _, col := range domain.Collections {
		fmt.Fprintf(out, "%-13s %8d %8d\n", col, report.Before.Get(col), report.After.Get(col))
	}
	if report.ImportUUID != "" {
		fmt.Fprintf(out, "\nImport id: %s\n", report.ImportUUID)
	}
}
