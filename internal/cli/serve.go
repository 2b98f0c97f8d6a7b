package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"networth-tracker/internal/scheduler"
	"networth-tracker/internal/server"
)

// addServeCommand adds the HTTP API command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	var (
		addr      string
		dev       bool
		noRefresh bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled price refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(); err != nil {
				return err
			}
			if addr == "" {
				addr = app.Config.Server.Addr
			}
			log := app.Logger

			srv := server.New(server.Config{
				Addr:         addr,
				DefaultUser:  app.User(),
				Log:          log,
				Prices:       app.Fetcher,
				Holdings:     app.Store,
				Transactions: app.Transactions,
				Snapshots:    app.Snapshots,
				Breakers:     app.Breakers,
				DevMode:      dev,
			})

			sched := scheduler.New(log)
			if !noRefresh {
				job := scheduler.NewRefreshPricesJob(scheduler.RefreshPricesConfig{
					Refresher: app.Fetcher,
					Lister:    app.Store,
					Log:       log,
				})
				if err := sched.AddJob(app.Config.Prices.RefreshSchedule, job); err != nil {
					return err
				}
			}
			sched.Start()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			log.Info().Str("addr", addr).Msg("Net-worth tracker started")

			var serveErr error
			select {
			case <-ctx.Done():
				log.Info().Msg("Shutting down...")
			case serveErr = <-errCh:
				log.Error().Err(serveErr).Msg("HTTP server failed")
			}

			sched.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}

			log.Info().Msg("Server stopped")
			return serveErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development mode (no response compression)")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "disable scheduled price refreshes")

	rootCmd.AddCommand(cmd)
}
