package cli

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/patch"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

var diffCmd = &cobra.Command{
	Use:   "diff <backup>",
	Short: "Compare the current data with a backup file",
	Long: `Compare the current data with a backup file and print a unified diff of
their JSON form. Export metadata (date, app version) is ignored.

With --patch the difference is printed as a JSON list of record operations
(add, remove, replace) that turn the current data into the backup; records
are addressed by id, e.g. /invoices/7.

Examples:
  hbdesk diff HB_Backup_2024-03-01.json
  hbdesk diff backup.json --unified 0
  hbdesk diff backup.json --json
  hbdesk diff backup.json --patch`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runDiff),
}

var (
	diffUnified int
	diffJSON    bool
	diffPatch   bool
)

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().IntVar(&diffUnified, "unified", 3, "Lines of unified context")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffPatch, "patch", false, "Output record operations instead of a text diff")
}

type diffResult struct {
	CurrentRev string `json:"current_rev"`
	BackupRev  string `json:"backup_rev"`
	Identical  bool   `json:"identical"`
	Diff       string `json:"diff,omitempty"`
}

func runDiff(app *appctx.App, cmd *cobra.Command, args []string) error {
	state, err := app.Store.Load(cmd.Context())
	if err != nil {
		return exitError(1, err)
	}
	backup, _, err := snapshot.Load(args[0])
	if err != nil {
		return exitError(1, err)
	}

	if diffPatch {
		ops, err := patch.Diff(state.Snapshot, backup)
		if err != nil {
			return exitError(1, err)
		}
		if ops == nil {
			ops = patch.Patch{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(ops)
	}

	result, err := diffSnapshots(state.Snapshot, backup, "current", args[0], diffUnified)
	if err != nil {
		return exitError(1, err)
	}

	if diffJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	if result.Identical {
		fmt.Fprintf(cmd.OutOrStdout(), "No differences (%s)\n", result.CurrentRev)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), result.Diff)
	return nil
}

func diffSnapshots(a, b *snapshot.Snapshot, nameA, nameB string, context int) (*diffResult, error) {
	textA, err := diffText(a)
	if err != nil {
		return nil, err
	}
	textB, err := diffText(b)
	if err != nil {
		return nil, err
	}

	result := &diffResult{}
	if result.CurrentRev, err = snapshot.Rev(a); err != nil {
		return nil, err
	}
	if result.BackupRev, err = snapshot.Rev(b); err != nil {
		return nil, err
	}
	result.Identical = result.CurrentRev == result.BackupRev
	if result.Identical {
		return result, nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(textA),
		B:        difflib.SplitLines(textB),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  context,
	}
	result.Diff, err = difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	return result, nil
}

// diffText is the pretty JSON of s without export metadata.
func diffText(s *snapshot.Snapshot) (string, error) {
	c := s.Clone()
	c.ExportDate, c.AppVersion, c.AppName = "", "", ""
	data, err := snapshot.Encode(c, false)
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
