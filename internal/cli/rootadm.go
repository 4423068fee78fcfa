package cli

import (
	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "hbdeskadm",
	Short: "Administrative CLI for the hbdesk database",
	Long: `hbdeskadm is the administrative companion to hbdesk. It creates and
migrates the database, imports backups and runs one-off data repairs such as
the VAT rate fix.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return rootAdmCmd.Execute()
}

func init() {
	rootAdmCmd.PersistentFlags().String("db", "", "Path to database file (overrides HBDESK_DB_PATH)")
	rootAdmCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides HBDESK_LOG_LEVEL)")

	rootAdmCmd.AddCommand(newImportCmd())
	rootAdmCmd.AddCommand(newHistoryCmd())
	rootAdmCmd.AddCommand(newVersionCmd("hbdeskadm"))
}
