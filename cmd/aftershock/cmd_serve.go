package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/aftershock/internal/application/watch"
	httpapi "github.com/sawpanic/aftershock/internal/interfaces/http"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve /raw/{token}, /analyze/{token}, POST /analyze, /health and /metrics.
When the config lists watch tokens they are re-scored on the watch schedule
for as long as the server runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if cmd.Flags().Changed("host") {
				rt.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				rt.cfg.Server.Port = port
			}

			if rt.cfg.MoralisAPIKey == "" {
				log.Warn().Msg("MORALIS_API_KEY is not set; token requests will fail")
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			scheduler, err := watch.NewFromConfig(rt.service, rt.cfg.Watch,
				watch.WithTransitionHandler(func(tr watch.Transition) {
					rt.metrics.RecordTransition(tr.From, tr.To)
				}))
			if err != nil {
				return err
			}
			if len(scheduler.Jobs()) > 0 {
				scheduler.Start(ctx)
				defer scheduler.Stop()
			}

			server := httpapi.NewServer(rt.cfg.Server, httpapi.Dependencies{
				Service:       rt.service,
				Breakers:      rt.breakers,
				Budgets:       rt.budgets,
				Metrics:       rt.metrics,
				APIConfigured: rt.cfg.MoralisAPIKey != "",
				Version:       version,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config and HTTP_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config and HTTP_PORT)")
	return cmd
}
