package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the cache maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}

			container, _, err := a.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			srv := server.New(server.Config{
				Log:       a.log,
				CacheDB:   container.CacheDB,
				Portfolio: container.PortfolioService,
				Prices:    container.Prices,
				Scheduler: container.Scheduler,
				Workers:   a.cfg.Portfolio.SamplerWorkers,
				Port:      a.cfg.Port,
				DevMode:   a.cfg.DevMode,
			})

			container.Scheduler.Start()
			defer container.Scheduler.Stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			a.log.Info().
				Int("port", a.cfg.Port).
				Str("source", a.cfg.MarketData.Source).
				Msg("Markowitz API started")

			select {
			case err := <-errCh:
				if err != nil {
					a.log.Error().Err(err).Msg("HTTP server failed")
				}
				return err
			case <-cmd.Context().Done():
			}

			a.log.Info().Msg("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error().Err(err).Msg("Server forced to shutdown")
				return err
			}

			a.log.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8001, "listen port, overrides PORT")
	return cmd
}
