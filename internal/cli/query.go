package cli

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

var queryCmd = &cobra.Command{
	Use:   "query <jsonpath>",
	Short: "Evaluate a JSONPath expression over the current data",
	Long: `Query evaluates a JSONPath expression against the current data in its
backup form and prints the result as JSON.

Examples:
  hbdesk query '$.clients[*].cognome'
  hbdesk query '$.invoices[?(@.pagata == false)].numero'
  hbdesk query '$.jobs[-1:]'`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runQuery),
}

var queryCompact bool

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryCompact, "compact", false, "Print compact JSON")
}

func runQuery(app *appctx.App, cmd *cobra.Command, args []string) error {
	state, err := app.Store.Load(cmd.Context())
	if err != nil {
		return exitError(1, err)
	}

	result, err := evalJSONPath(state.Snapshot, args[0])
	if err != nil {
		return exitError(2, err)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetEscapeHTML(false)
	if !queryCompact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(result)
}

// evalJSONPath runs path over the generic JSON form of s.
func evalJSONPath(s *snapshot.Snapshot, path string) (any, error) {
	data, err := snapshot.Encode(s, true)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	result, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", path, err)
	}
	return result, nil
}
