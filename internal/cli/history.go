package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/render"
)

type historyFlags struct {
	limit   int
	backups bool
}

func newHistoryCmd() *cobra.Command {
	f := &historyFlags{}
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"log"},
		Short:   "Show past imports and repairs",
		Long: `History lists the import log, newest first: every merge, overwrite and
VAT repair committed to the database. With --backups it lists the copies of
collections that were saved before an overwrite or a repair instead.`,
		Args: cobra.NoArgs,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return runHistory(app, cmd, f)
		}),
	}
	addOutputFlags(cmd)
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Maximum number of entries (0 = all)")
	cmd.Flags().BoolVar(&f.backups, "backups", false, "List saved collection backups")
	return cmd
}

func runHistory(app *appctx.App, cmd *cobra.Command, f *historyFlags) error {
	opts, err := outputOptions(cmd, app.Config.Output)
	if err != nil {
		return err
	}

	var table render.Table
	if f.backups {
		backups, err := app.Store.Backups(cmd.Context(), f.limit)
		if err != nil {
			return exitError(1, err)
		}
		table.Headers = []string{"ID", "CREATED", "COLLECTION", "REASON", "ETAG", "RECORDS"}
		for _, b := range backups {
			table.Rows = append(table.Rows, []string{
				strconv.FormatInt(b.ID, 10), b.CreatedAt, b.Name, b.Reason,
				strconv.FormatInt(b.ETag, 10), strconv.Itoa(b.Records),
			})
			table.Items = append(table.Items, b)
		}
	} else {
		entries, err := app.Store.History(cmd.Context(), f.limit)
		if err != nil {
			return exitError(1, err)
		}
		table.Headers = []string{"CREATED", "MODE", "SOURCE", "REV", "UUID"}
		for _, e := range entries {
			table.Rows = append(table.Rows, []string{e.CreatedAt, e.Mode, e.Source, shortRev(e.SnapshotRev), e.UUID})
			table.Items = append(table.Items, e)
		}
	}

	return render.NewRenderer(cmd.OutOrStdout(), opts).Render(table)
}

// shortRev trims a "sha256:<hex>" revision to its first 12 hex digits.
func shortRev(rev string) string {
	const prefix = len("sha256:")
	if len(rev) > prefix+12 {
		return rev[prefix : prefix+12]
	}
	return rev
}
