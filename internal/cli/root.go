package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hbdesk",
	Short: "Clients, jobs, quotes and invoices for a small installer business",
	Long: `hbdesk keeps the six collections of the HB Impianti desk (clients,
materials, jobs, quotes, invoices, appointments) in a local SQLite file.
It exports and imports JSON backups and merges a backup into the current
data without duplicating records that are already present.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides HBDESK_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides HBDESK_LOG_LEVEL)")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd("hbdesk"))
}
