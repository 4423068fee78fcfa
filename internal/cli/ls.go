package cli

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hbimpianti/hbdesk/internal/cli/appctx"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/render"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/totals"
)

var lsCmd = &cobra.Command{
	Use:     "ls <collection>",
	Aliases: []string{"list"},
	Short:   "List the records of a collection",
	Long: `Lists the records of one collection: clients, materials, jobs, quotes,
invoices or appointments. Structured formats (--json, --yaml, --ndjson)
print the records as stored; the table view resolves client names and
formats amounts.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLs),
}

var lsLimit int

func init() {
	rootCmd.AddCommand(lsCmd)

	addOutputFlags(lsCmd)
	lsCmd.Flags().IntVar(&lsLimit, "limit", 0, "Maximum number of records to list (0 = no limit)")
}

func runLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	col, err := domain.ParseCollection(args[0])
	if err != nil {
		return exitError(2, err)
	}
	opts, err := outputOptions(cmd, app.Config.Output)
	if err != nil {
		return err
	}
	rate, err := app.Config.VAT()
	if err != nil {
		return exitError(2, err)
	}

	state, err := app.Store.Load(cmd.Context())
	if err != nil {
		return exitError(1, err)
	}

	table, err := collectionTable(state.Snapshot, col, rate)
	if err != nil {
		return exitError(1, err)
	}
	if lsLimit > 0 && len(table.Rows) > lsLimit {
		table.Rows = table.Rows[:lsLimit]
		table.Items = table.Items[:lsLimit]
	}

	return render.NewRenderer(cmd.OutOrStdout(), opts).Render(table)
}

// collectionTable lays out the records of col for display.
func collectionTable(s *snapshot.Snapshot, col domain.Collection, rate decimal.Decimal) (render.Table, error) {
	items, err := s.Collection(col)
	if err != nil {
		return render.Table{}, err
	}
	names := make(map[int]string, len(s.Clients))
	for _, c := range s.Clients {
		names[c.ID] = c.DisplayName()
	}
	client := func(id int) string {
		if name, ok := names[id]; ok {
			return name
		}
		if id == 0 {
			return "-"
		}
		return "#" + strconv.Itoa(id) + "?"
	}

	t := render.Table{Items: items}
	switch col {
	case domain.CollectionClients:
		t.Headers = []string{"ID", "NAME", "PHONE", "EMAIL"}
		for _, c := range s.Clients {
			t.Rows = append(t.Rows, []string{itoa(c.ID), c.DisplayName(), c.Phone, c.Email})
		}
	case domain.CollectionMaterials:
		t.Headers = []string{"ID", "DESCRIPTION", "QTY", "PRICE", "VAT%"}
		for _, m := range s.Materials {
			t.Rows = append(t.Rows, []string{itoa(m.ID), m.Description, m.Quantity.String(), totals.Format(m.UnitPrice), m.VATRate.String()})
		}
	case domain.CollectionJobs:
		t.Headers = []string{"ID", "DATE", "CLIENT", "DESCRIPTION", "HOURS", "TOTAL", "PAID"}
		for _, j := range s.Jobs {
			t.Rows = append(t.Rows, []string{itoa(j.ID), j.Date, client(j.ClientID), j.Description, j.Hours.String(), totals.Format(totals.JobTotal(j)), yesNo(j.Paid)})
		}
	case domain.CollectionQuotes:
		t.Headers = []string{"ID", "NUMBER", "DATE", "CLIENT", "SUBJECT", "STATUS", "TOTAL"}
		for _, q := range s.Quotes {
			total := totals.QuoteTotal(q, rate)
			if q.Total != nil {
				total = *q.Total
			}
			t.Rows = append(t.Rows, []string{itoa(q.ID), q.Number, q.Date, client(q.ClientID), q.Subject, q.Status, totals.Format(total)})
		}
	case domain.CollectionInvoices:
		t.Headers = []string{"ID", "NUMBER", "DATE", "CLIENT", "TOTAL", "PAID"}
		for _, inv := range s.Invoices {
			t.Rows = append(t.Rows, []string{itoa(inv.ID), inv.Number, inv.Date, client(inv.ClientID), totals.Format(inv.Total), yesNo(inv.Paid)})
		}
	case domain.CollectionAppointments:
		t.Headers = []string{"ID", "DATE", "TIME", "CLIENT", "KIND", "STATUS"}
		for _, a := range s.Appointments {
			t.Rows = append(t.Rows, []string{itoa(a.ID), a.Date(), a.Time(), client(a.ClientID), a.Kind, a.Status})
		}
	}
	return t, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
