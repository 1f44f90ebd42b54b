package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/api"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/config"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/connlog"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/prefs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the filter key, redaction and preferences API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Get()
		log := logger.L()

		store, closeStore, err := newFilterStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		prefSvc, err := prefs.Open(ctx, cfg.Preferences.Database)
		if err != nil {
			return err
		}
		defer prefSvc.Close()

		deps := api.Deps{
			Filters:     store,
			Preferences: prefSvc,
			PageSize:    cfg.ConnLog.PageSize,
		}

		if cfg.ConnLog.DSN != "" {
			repo, err := connlog.Open(ctx, cfg.ConnLog.DSN)
			if err != nil {
				return err
			}
			defer repo.Close()
			deps.Connections = repo
		} else {
			log.Infow("connlog.dsn not set, connections endpoint disabled")
		}

		err = api.NewServer(cfg.HTTP, deps).ListenAndServe(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides http.listen)")
	_ = viper.BindPFlag("http.listen", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}
