package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring pipeline over HTTP",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.console = false
			if err := a.init(); err != nil {
				return err
			}
			if a.cfg.LogLevel != "debug" && a.cfg.LogLevel != "trace" {
				gin.SetMode(gin.ReleaseMode)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("port") {
				a.cfg.Server.Port, _ = flags.GetString("port")
			}
			if flags.Changed("history") {
				a.cfg.History.Enabled, _ = flags.GetBool("history")
			}

			predictor, err := a.loadPredictor()
			if err != nil {
				return err
			}

			deps := server.Deps{
				Config:    a.cfg,
				Predictor: predictor,
				Logger:    a.logger,
				Metrics:   a.metrics,
			}
			if a.cfg.History.Enabled {
				db, repo, err := a.openHistory()
				if err != nil {
					return err
				}
				defer db.Close()
				deps.DB, deps.Repository = db, repo
			}

			srv, err := server.New(deps)
			if err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("port", "", "listen port (default from server.port)")
	cmd.Flags().Bool("history", false, "record scored batches in SQLite")
	return cmd
}
