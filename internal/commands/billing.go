package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kos-manager/internal/billing"
)

func BillingCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Monthly invoice generation",
	}
	cmd.AddCommand(GenerateCmd(app), RunsCmd(app))
	return cmd
}

// GenerateCmd is meant to be triggered once a day by an external scheduler.
func GenerateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate monthly invoices for rooms billed on the given day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dateFlag, _ := cmd.Flags().GetString("date")

			date := app.Today()
			if dateFlag != "" {
				d, err := time.Parse(time.DateOnly, dateFlag)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", dateFlag)
				}
				date = d
			}

			gen, err := app.Generator(cmd.Context())
			if err != nil {
				return err
			}

			res, err := gen.GenerateMonthlyInvoices(cmd.Context(), date)
			printResult(cmd.OutOrStdout(), res)
			return err
		},
	}

	cmd.Flags().String("date", "", "Reference date (YYYY-MM-DD), defaults to today")

	return cmd
}

func printResult(out io.Writer, res billing.Result) {
	fmt.Fprintf(out, "Billing %s (period %s)\n", res.Date.Format(time.DateOnly), res.Period.Format("2006-01"))
	fmt.Fprintf(out, "rooms checked: %d\n", res.RoomsChecked)
	for _, a := range res.Anomalies {
		fmt.Fprintf(out, "warning: room %s: %s: %s\n", a.RoomNumber, a.Kind, a.Message)
	}
	for _, inv := range res.Invoices {
		fmt.Fprintf(out, "invoice created: tenancy %d amount %s due %s\n",
			inv.TenancyID, inv.Amount.StringFixed(2), inv.Due().Format(time.DateOnly))
	}
	if res.Skipped > 0 {
		fmt.Fprintf(out, "already billed: %d\n", res.Skipped)
	}
	fmt.Fprintf(out, "invoices created: %d\n", res.Created())
}

func RunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent billing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			out := cmd.OutOrStdout()

			repo, err := app.Runs()
			if err != nil {
				return err
			}
			runs, err := repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list billing runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No billing runs recorded yet.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-10s  %-7s  %7s  %7s  %7s  %s\n", "Run", "Date", "Period", "Rooms", "Created", "Skipped", "Error")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-10s  %-7s  %7d  %7d  %7d  %s\n",
					r.ID,
					time.Time(r.ReferenceDay).Format(time.DateOnly),
					time.Time(r.Period).Format("2006-01"),
					r.RoomsChecked, r.Created, r.Skipped, r.Error)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Number of runs to show")

	return cmd
}
