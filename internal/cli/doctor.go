package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/db"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
	"github.com/hbimpianti/hbdesk/internal/totals"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database health and data integrity",
	Long: `Performs health checks on the database file, the schema, and the data:
duplicate ids, references that do not resolve, and invoices whose cached
totals disagree with their line items.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.ConfigOnly(), runDoctor),
}

var (
	doctorJSON    bool
	doctorVerbose bool
)

type checkResult struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReport struct {
	Version       string        `json:"version"`
	DBPath        string        `json:"db_path"`
	Checks        []checkResult `json:"checks"`
	Warnings      int           `json:"warnings"`
	Errors        int           `json:"errors"`
	OverallStatus string        `json:"overall_status"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "Verbose output")
}

func runDoctor(app *appctx.App, cmd *cobra.Command, args []string) error {
	rate, err := app.Config.VAT()
	if err != nil {
		return exitError(2, err)
	}

	report := buildDoctorReport(cmd.Context(), app.Config.DBPath, app.Config.BackupDir, rate)

	if doctorJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		printHumanReport(cmd, report)
	}

	if report.Errors > 0 {
		return exitError(1, fmt.Errorf("doctor found %d error(s)", report.Errors))
	}
	return nil
}

func buildDoctorReport(ctx context.Context, dbPath, backupDir string, rate decimal.Decimal) *doctorReport {
	report := &doctorReport{
		Version:       Version,
		DBPath:        dbPath,
		Checks:        []checkResult{},
		OverallStatus: "ok",
	}

	report.Checks = append(report.Checks, checkDatabaseFile(dbPath)...)
	if report.Checks[0].Status == "ok" {
		database, err := db.Open(dbPath)
		if err == nil {
			defer database.Close()
			report.Checks = append(report.Checks, checkDatabasePragmas(database)...)
			schema := checkSchema(database)
			report.Checks = append(report.Checks, schema...)
			if schema[0].Status == "ok" {
				report.Checks = append(report.Checks, checkData(ctx, store.New(database), rate)...)
			}
		} else {
			report.Checks = append(report.Checks, checkResult{
				Name:    "database_open",
				Status:  "error",
				Message: fmt.Sprintf("Failed to open database: %v", err),
			})
		}
	}
	report.Checks = append(report.Checks, checkBackupDir(backupDir))

	for _, check := range report.Checks {
		switch check.Status {
		case "warning":
			report.Warnings++
		case "error":
			report.Errors++
			report.OverallStatus = "error"
		}
	}
	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}
	return report
}

func checkDatabaseFile(dbPath string) []checkResult {
	info, err := os.Stat(dbPath)
	if err != nil {
		return []checkResult{{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
			Details: []string{"Run 'hbdeskadm init' to create it"},
		}}
	}

	results := []checkResult{{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	}}

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		results = append(results, checkResult{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	} else {
		f.Close()
		results = append(results, checkResult{
			Name:    "db_file_permissions",
			Status:  "ok",
			Message: "Database file is readable and writable",
		})
	}

	return results
}

func checkDatabasePragmas(database *db.DB) []checkResult {
	var results []checkResult

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResult{
			Name:    "wal_mode",
			Status:  "ok",
			Message: "WAL mode enabled",
		})
	} else {
		results = append(results, checkResult{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
			Details: []string{"Run 'PRAGMA journal_mode=WAL' to enable"},
		})
	}

	var integrityCheck string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrityCheck)
	if integrityCheck == "ok" {
		results = append(results, checkResult{
			Name:    "integrity_check",
			Status:  "ok",
			Message: "Database integrity check passed",
		})
	} else {
		results = append(results, checkResult{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrityCheck),
			Details: []string{"Database may be corrupted", "Restore from a backup with 'hbdesk import --mode overwrite'"},
		})
	}

	return results
}

func checkSchema(database *db.DB) []checkResult {
	applied, pending, err := database.MigrationStatus()
	if err != nil {
		return []checkResult{{
			Name:    "schema_migrations",
			Status:  "error",
			Message: fmt.Sprintf("Failed to read migration status: %v", err),
		}}
	}
	if len(pending) > 0 {
		return []checkResult{{
			Name:    "schema_migrations",
			Status:  "error",
			Message: fmt.Sprintf("%d pending migration(s)", len(pending)),
			Details: append([]string{"Run 'hbdeskadm migrate'"}, pending...),
		}}
	}
	return []checkResult{{
		Name:    "schema_migrations",
		Status:  "ok",
		Message: fmt.Sprintf("Schema up to date (%d migration(s))", len(applied)),
	}}
}

func checkData(ctx context.Context, st *store.Store, rate decimal.Decimal) []checkResult {
	state, err := st.Load(ctx)
	if err != nil {
		return []checkResult{{
			Name:    "collections",
			Status:  "error",
			Message: fmt.Sprintf("Failed to load collections: %v", err),
		}}
	}
	snap := state.Snapshot
	results := []checkResult{{
		Name:    "collections",
		Status:  "ok",
		Message: fmt.Sprintf("%d records in %d collections", snap.Counts().Total(), len(state.ETags)),
	}}

	if dups := snapshot.DuplicateIDs(snap); len(dups) > 0 {
		check := checkResult{
			Name:    "duplicate_ids",
			Status:  "error",
			Message: fmt.Sprintf("%d duplicated id(s)", len(dups)),
		}
		for _, d := range dups {
			check.Details = append(check.Details, fmt.Sprintf("%s #%d appears %d times", d.Collection, d.ID, d.Count))
		}
		results = append(results, check)
	} else {
		results = append(results, checkResult{Name: "duplicate_ids", Status: "ok", Message: "Record ids are unique"})
	}

	if refs := snapshot.DanglingReferences(snap); len(refs) > 0 {
		check := checkResult{
			Name:    "dangling_references",
			Status:  "warning",
			Message: fmt.Sprintf("%d reference(s) point at missing records", len(refs)),
		}
		for _, r := range refs {
			check.Details = append(check.Details, r.String())
		}
		results = append(results, check)
	} else {
		results = append(results, checkResult{Name: "dangling_references", Status: "ok", Message: "All references resolve"})
	}

	var diverging []string
	for _, inv := range snap.Invoices {
		if totals.Diverges(inv, rate) {
			want := totals.InvoiceTotals(inv.Items, totals.InvoiceRate(inv, rate))
			diverging = append(diverging, fmt.Sprintf("invoice %s (#%d): stored %s, items give %s",
				inv.Number, inv.ID, totals.Format(inv.Total), totals.Format(want.Total)))
		}
	}
	if len(diverging) > 0 {
		results = append(results, checkResult{
			Name:    "invoice_totals",
			Status:  "warning",
			Message: fmt.Sprintf("%d invoice(s) with totals that disagree with their line items", len(diverging)),
			Details: diverging,
		})
	} else {
		results = append(results, checkResult{Name: "invoice_totals", Status: "ok", Message: "Invoice totals match their line items"})
	}

	return results
}

func checkBackupDir(dir string) checkResult {
	info, err := os.Stat(dir)
	if err != nil {
		return checkResult{
			Name:    "backup_dir",
			Status:  "warning",
			Message: fmt.Sprintf("Backup directory not found: %s", dir),
			Details: []string{"Set HBDESK_BACKUP_DIR or create the directory"},
		}
	}
	if !info.IsDir() {
		return checkResult{
			Name:    "backup_dir",
			Status:  "error",
			Message: fmt.Sprintf("Backup path is not a directory: %s", dir),
		}
	}
	return checkResult{Name: "backup_dir", Status: "ok", Message: fmt.Sprintf("Backup directory: %s", dir)}
}

func printHumanReport(cmd *cobra.Command, report *doctorReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "hbdesk doctor %s\n\n", report.Version)
	fmt.Fprintf(out, "Database: %s\n\n", report.DBPath)

	categories := map[string][]checkResult{}
	for _, check := range report.Checks {
		category := "Configuration"
		switch check.Name {
		case "db_file_exists", "db_file_permissions", "database_open":
			category = "Database File"
		case "wal_mode", "integrity_check", "schema_migrations":
			category = "Database Health"
		case "collections", "duplicate_ids", "dangling_references", "invoice_totals":
			category = "Data Integrity"
		}
		categories[category] = append(categories[category], check)
	}

	for _, category := range []string{"Database File", "Database Health", "Data Integrity", "Configuration"} {
		checks := categories[category]
		if len(checks) == 0 {
			continue
		}

		fmt.Fprintf(out, "%s\n", category)
		for _, check := range checks {
			icon := "✓"
			if check.Status == "warning" {
				icon = "⚠"
			} else if check.Status == "error" {
				icon = "✗"
			}

			fmt.Fprintf(out, "  %s %s\n", icon, check.Message)

			if doctorVerbose {
				for _, detail := range check.Details {
					fmt.Fprintf(out, "      %s\n", detail)
				}
			}
		}
		fmt.Fprintln(out)
	}

	if report.Errors > 0 {
		fmt.Fprintf(out, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	} else if report.Warnings > 0 {
		fmt.Fprintf(out, "Summary: %d warning(s)\n", report.Warnings)
	} else {
		fmt.Fprintf(out, "Summary: All checks passed ✓\n")
	}

	if !doctorVerbose && (report.Warnings > 0 || report.Errors > 0) {
		fmt.Fprintf(out, "\nRun with --verbose for detailed information\n")
	}
}
