package commands

import "github.com/spf13/cobra"

// NewRootCmd assembles the kos command tree.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kos",
		Short:         "Boarding-house billing and finance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		MigrateCmd(app),
		BillingCmd(app),
		InvoiceCmd(app),
		ReportCmd(app),
		ServeCmd(app),
	)
	return rootCmd
}
