package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"kos-manager/internal/billing"
	"kos-manager/models"
)

func ReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Financial reports",
	}
	cmd.AddCommand(MonthlyReportCmd(app))
	return cmd
}

func MonthlyReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Summarise billing and collections for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			periodFlag, _ := cmd.Flags().GetString("period")
			out := cmd.OutOrStdout()

			period := billing.PeriodOf(app.Today())
			if periodFlag != "" {
				p, err := billing.ParsePeriod(periodFlag)
				if err != nil {
					return err
				}
				period = p
			}

			svc, err := app.Finance()
			if err != nil {
				return err
			}
			r, err := svc.MonthlyReport(cmd.Context(), period)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Period:      %s\n", r.Period.Format("2006-01"))
			fmt.Fprintf(out, "Invoices:    %d\n", r.Invoices)
			fmt.Fprintf(out, "Billed:      %s\n", r.Billed.StringFixed(2))
			fmt.Fprintf(out, "Collected:   %s\n", r.Collected.StringFixed(2))
			fmt.Fprintf(out, "Outstanding: %s\n", r.Outstanding.StringFixed(2))

			statuses := make([]string, 0, len(r.ByStatus))
			for s := range r.ByStatus {
				statuses = append(statuses, string(s))
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Fprintf(out, "  %-8s %d\n", s, r.ByStatus[models.InvoiceStatus(s)])
			}
			return nil
		},
	}

	cmd.Flags().String("period", "", "Billing period (YYYY-MM), defaults to the current month")

	return cmd
}
