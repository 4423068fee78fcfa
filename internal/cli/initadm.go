package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/db"
	"github.com/hbimpianti/hbdesk/internal/importer"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
)

var initAdmCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the hbdesk database and backup directory",
	Long: `Initialize creates the SQLite database, runs migrations and creates the
backup directory. With --from, the new database is seeded from a backup
file (an overwrite import into the empty database).

Running init on an existing database only applies pending migrations.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.ConfigOnly(), runInitAdm),
}

var (
	initAdmBackupDir string
	initAdmFrom      string
)

func init() {
	rootAdmCmd.AddCommand(initAdmCmd)

	initAdmCmd.Flags().StringVar(&initAdmBackupDir, "backup-dir", "", "Directory for exported backups")
	initAdmCmd.Flags().StringVar(&initAdmFrom, "from", "", "Seed the new database from a backup file")
}

func runInitAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	cfg := app.Config
	if initAdmBackupDir != "" {
		cfg.BackupDir = initAdmBackupDir
	}
	out := cmd.OutOrStdout()

	dbExists := false
	if _, err := os.Stat(cfg.DBPath); err == nil {
		dbExists = true
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return exitError(1, fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		return exitError(1, fmt.Errorf("failed to create backup directory: %w", err))
	}

	if dbExists {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", cfg.DBPath)
		fmt.Fprintf(out, "✓ Migrations applied\n")
		if initAdmFrom != "" {
			return exitError(2, fmt.Errorf("--from only seeds a new database; use 'hbdeskadm import' instead"))
		}
		return nil
	}

	fmt.Fprintf(out, "✓ Initialized new database at %s\n", cfg.DBPath)
	fmt.Fprintf(out, "✓ Backup directory at %s\n", cfg.BackupDir)

	if initAdmFrom != "" {
		seed, _, err := snapshot.Load(initAdmFrom)
		if err != nil {
			return exitError(1, err)
		}
		report, err := importer.Run(cmd.Context(), store.New(database), seed, importer.Options{
			Mode:   importer.ModeOverwrite,
			Source: initAdmFrom,
			Logger: app.Logger,
			Hooks:  app.Hooks,
		})
		if err != nil {
			return exitError(1, err)
		}
		fmt.Fprintf(out, "✓ Seeded %d records from %s\n", report.After.Total(), initAdmFrom)
	}

	return nil
}
