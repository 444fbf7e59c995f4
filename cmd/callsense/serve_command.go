package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"callsense/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			app, err := buildApp(cfg, false)
			if err != nil {
				return err
			}
			defer app.Close()

			server := api.NewServer(app.engine, app.catalog, app.ledger, app.dataset, app.logger)

			serveCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.ListenAndServe(serveCtx, cfg.API.Bind)
		},
	}
}
