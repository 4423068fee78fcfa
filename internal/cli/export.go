package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON backup of all collections",
	Long: `Export writes the six collections as one JSON backup file, the same
format the desktop app produces. Without -o the file is named
HB_Backup_<date>.json inside the configured backup directory.

Examples:
  hbdesk export
  hbdesk export -o /mnt/usb/backup.json
  hbdesk export --stdout --compact | gzip > backup.json.gz`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runExport),
}

var (
	exportOutput  string
	exportCompact bool
	exportStdout  bool
	exportNow     = time.Now
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().BoolVar(&exportCompact, "compact", false, "Write canonical compact JSON instead of indented JSON")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write the backup to stdout")
}

func runExport(app *appctx.App, cmd *cobra.Command, args []string) error {
	state, err := app.Store.Load(cmd.Context())
	if err != nil {
		return exitError(1, err)
	}

	now := exportNow()
	snap := state.Snapshot
	snap.ExportDate = snapshot.FormatTimestamp(now)
	snap.AppVersion = Version
	snap.AppName = snapshot.DefaultAppName

	if exportStdout {
		data, err := snapshot.Encode(snap, exportCompact)
		if err != nil {
			return exitError(1, err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	path := exportOutput
	if path == "" {
		path = filepath.Join(app.Config.BackupDir, snapshot.BackupFilename(now))
	}
	if _, err := snapshot.Write(path, snap, exportCompact); err != nil {
		return exitError(1, fmt.Errorf("failed to write backup: %w", err))
	}

	counts := snap.Counts()
	app.Logger.Info("backup exported", zap.String("path", path), zap.Int("records", counts.Total()))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d records to %s\n", counts.Total(), path)
	return nil
}
