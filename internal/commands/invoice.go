package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kos-manager/internal/billing"
	"kos-manager/internal/finance"
	"kos-manager/models"
)

func InvoiceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Record payments and track overdue invoices",
	}
	cmd.AddCommand(ShowCmd(app), FindCmd(app), PayCmd(app), MarkOverdueCmd(app))
	return cmd
}

func printInvoice(out io.Writer, inv models.Invoice) {
	if inv.ID != 0 {
		fmt.Fprintf(out, "Invoice:     %d\n", inv.ID)
	}
	fmt.Fprintf(out, "Tenancy:     %d\n", inv.TenancyID)
	fmt.Fprintf(out, "Period:      %s\n", inv.Period().Format("2006-01"))
	fmt.Fprintf(out, "Due:         %s\n", inv.Due().Format(time.DateOnly))
	fmt.Fprintf(out, "Amount:      %s\n", inv.Amount.StringFixed(2))
	fmt.Fprintf(out, "Status:      %s\n", inv.Status)
	fmt.Fprintf(out, "Outstanding: %s\n", finance.Outstanding(inv).StringFixed(2))
	for _, p := range inv.Payments {
		fmt.Fprintf(out, "  paid %s by %s on %s (%s)\n",
			p.Amount.StringFixed(2), p.Method, p.PaidAt.Format(time.DateOnly), p.Reference)
	}
}

func ShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [invoice-id]",
		Short: "Show an invoice and its payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}

			svc, err := app.Finance()
			if err != nil {
				return err
			}
			inv, err := svc.GetInvoice(cmd.Context(), uint(id))
			if err != nil {
				return err
			}

			printInvoice(cmd.OutOrStdout(), inv)
			return nil
		},
	}
}

// FindCmd looks an invoice up by tenancy and period in whichever store
// issued it.
func FindCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the invoice of a tenancy for a billing period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenancyID, _ := cmd.Flags().GetUint("tenancy")
			periodFlag, _ := cmd.Flags().GetString("period")

			period, err := billing.ParsePeriod(periodFlag)
			if err != nil {
				return err
			}

			invoices, err := app.Invoices(cmd.Context())
			if err != nil {
				return err
			}
			inv, ok, err := invoices.FindInvoice(cmd.Context(), tenancyID, period)
			if err != nil {
				return fmt.Errorf("failed to find invoice: %w", err)
			}
			if !ok {
				return fmt.Errorf("no invoice for tenancy %d in %s", tenancyID, period.Format("2006-01"))
			}

			printInvoice(cmd.OutOrStdout(), inv)
			return nil
		},
	}

	cmd.Flags().Uint("tenancy", 0, "Tenancy id")
	cmd.Flags().String("period", "", "Billing period (YYYY-MM)")
	_ = cmd.MarkFlagRequired("tenancy")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func PayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay [invoice-id]",
		Short: "Record a payment against an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}
			amountFlag, _ := cmd.Flags().GetString("amount")
			method, _ := cmd.Flags().GetString("method")

			amount, err := decimal.NewFromString(amountFlag)
			if err != nil {
				return fmt.Errorf("invalid --amount %q", amountFlag)
			}

			svc, err := app.Finance()
			if err != nil {
				return err
			}
			inv, err := svc.RecordPayment(cmd.Context(), finance.PaymentRequest{
				InvoiceID: uint(id),
				Amount:    amount,
				Method:    method,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "invoice %d: %s, outstanding %s\n",
				inv.ID, inv.Status, finance.Outstanding(inv).StringFixed(2))
			return nil
		},
	}

	cmd.Flags().String("amount", "", "Amount paid")
	cmd.Flags().String("method", "cash", "Payment method")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func MarkOverdueCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark-overdue",
		Short: "Mark unpaid invoices past their due date as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dateFlag, _ := cmd.Flags().GetString("date")

			asOf := app.Today()
			if dateFlag != "" {
				d, err := time.Parse(time.DateOnly, dateFlag)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", dateFlag)
				}
				asOf = d
			}

			svc, err := app.Finance()
			if err != nil {
				return err
			}
			n, err := svc.MarkOverdue(cmd.Context(), asOf)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "invoices marked overdue: %d\n", n)
			return nil
		},
	}

	cmd.Flags().String("date", "", "Reference date (YYYY-MM-DD), defaults to today")

	return cmd
}
