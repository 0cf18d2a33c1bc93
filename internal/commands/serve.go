package commands

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"kos-manager/internal/server"
)

func ServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gen, err := app.Generator(ctx)
			if err != nil {
				return err
			}
			runs, err := app.Runs()
			if err != nil {
				return err
			}
			var fin server.Finance
			if svc, err := app.Finance(); err == nil {
				fin = svc
			} else {
				app.Logger.Warn("finance endpoints disabled", "error", err)
			}

			gin.SetMode(gin.ReleaseMode)
			h := server.NewHandler(gen, runs, fin, app.Today, app.Logger)
			return server.Run(ctx, addr, server.NewRouter(h, app.Logger), app.Logger)
		},
	}

	cmd.Flags().String("addr", "", "Listen address, defaults to HTTP_ADDR")

	return cmd
}
