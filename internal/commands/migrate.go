package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kos-manager/internal/config"
	"kos-manager/internal/store/dynamo"
	"kos-manager/migration"
)

func MigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.AddCommand(
		UpCmd(app),
		DownCmd(app),
		StatusCmd(app),
		HistoryCmd(app),
		ValidateCmd(app),
		RegisterCmd(),
	)
	return cmd
}

func UpCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			out := cmd.OutOrStdout()

			db, err := app.DB()
			if err != nil {
				return err
			}
			migrator := migration.NewMigrator(db)

			pending, err := migrator.Pending()
			if err != nil {
				return fmt.Errorf("failed to get applied migrations: %w", err)
			}

			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending migrations.")
			} else if dryRun {
				fmt.Fprintln(out, "Pending migrations:")
				for _, m := range pending {
					fmt.Fprintf(out, "- %s (%s)\n", m.Name, m.Version)
				}
				return nil
			} else {
				applied, err := migrator.Up()
				for _, m := range applied {
					fmt.Fprintf(out, "Successfully applied migration: %s\n", m.Name)
				}
				if err != nil {
					return err
				}
			}

			if app.Config.InvoiceStore == config.InvoiceStoreDynamoDB && !dryRun {
				client, err := dynamo.NewClient(cmd.Context(), app.Config.DynamoDB)
				if err != nil {
					return fmt.Errorf("failed to create dynamodb client: %w", err)
				}
				table := app.Config.DynamoDB.InvoicesTable
				if err := dynamo.NewInvoiceRepository(client, table).EnsureTable(cmd.Context()); err != nil {
					return fmt.Errorf("failed to create dynamodb table %s: %w", table, err)
				}
				fmt.Fprintf(out, "DynamoDB table ready: %s\n", table)
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show pending migrations without executing them")

	return cmd
}

func DownCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.DB()
			if err != nil {
				return err
			}

			reverted, err := migration.NewMigrator(db).Down()
			if err != nil {
				return err
			}
			if reverted == nil {
				return fmt.Errorf("no migrations to revert")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully reverted migration: %s\n", reverted.Name)
			return nil
		},
	}
}

func StatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			db, err := app.DB()
			if err != nil {
				return err
			}

			migrator := migration.NewMigrator(db)
			applied, err := migrator.GetAppliedVersions()
			if err != nil {
				return fmt.Errorf("failed to get applied migrations: %w", err)
			}

			fmt.Fprintf(out, "%-16s  %-30s  %-8s\n", "Version", "Name", "Status")
			for _, m := range migrator.Migrations() {
				status := "Pending"
				if applied[m.Version] {
					status = "Applied"
				}
				fmt.Fprintf(out, "%-16s  %-30s  %-8s\n", m.Version, m.Name, status)
			}

			missing, err := migration.MissingTables(db)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				fmt.Fprintf(out, "\nModels without a table: %v\n", missing)
			}
			return nil
		},
	}
}

func HistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show migration history",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			db, err := app.DB()
			if err != nil {
				return err
			}

			records, err := migration.NewMigrator(db).History()
			if err != nil {
				return fmt.Errorf("failed to get migration history: %w", err)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "No migrations have been applied yet.")
				return nil
			}

			fmt.Fprintf(out, "%-16s  %-30s  %-24s\n", "Version", "Name", "Applied At")
			for _, record := range records {
				fmt.Fprintf(out, "%-16s  %-30s  %-24s\n", record.Version, record.Name, record.AppliedAt.Format(time.RFC3339))
			}

			return nil
		},
	}
}

// ValidateCmd fails when a registered model has no table, which means a
// migration is missing or has not been applied.
func ValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.DB()
			if err != nil {
				return err
			}

			missing, err := migration.MissingTables(db)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("models without a table: %v", missing)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "All models have a table.")
			return nil
		},
	}
}

func RegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [path]",
		Short: "Generates model registry file",
		Long:  `Scans the given path for Go files containing GORM models (structs embedding gorm.Model or declaring a primaryKey) and generates a models_registry.go file. If no path is provided, it defaults to the 'models' directory.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "models"
			if len(args) == 1 {
				dir = args[0]
			}

			path, names, err := migration.WriteRegistryFile(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s with %d models.\n", path, len(names))
			return nil
		},
	}
}
