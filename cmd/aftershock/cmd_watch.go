package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/aftershock/internal/application/watch"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

func newWatchCmd() *cobra.Command {
	var (
		schedule string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch [tokens...]",
		Short: "Re-score a watchlist on a cron schedule",
		Long: `Score every token immediately, then again on each tick of the schedule.
Each analysis is logged; verdict changes since the previous run are logged
at warn level. Tokens default to the watch section of the config.

Examples:
  aftershock watch <token> <token> --schedule "@every 5m"
  aftershock watch --schedule "*/15 * * * *"
  aftershock watch <token> --once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			tokens := args
			if len(tokens) == 0 {
				tokens = rt.cfg.Watch.Tokens
			}
			if len(tokens) == 0 {
				return errors.New("no tokens to watch: pass them as arguments or set watch.tokens")
			}
			if !cmd.Flags().Changed("schedule") {
				schedule = rt.cfg.Watch.Schedule
			}

			scheduler := watch.NewScheduler(rt.service,
				watch.WithOverrides(thresholdOverrides(cmd.Flags(), aftershock.ThresholdOverrides{})),
				watch.WithTransitionHandler(func(tr watch.Transition) {
					rt.metrics.RecordTransition(tr.From, tr.To)
				}),
			)
			if _, err := scheduler.Add(schedule, tokens); err != nil {
				return err
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			run := scheduler.RunOnce(ctx)
			log.Info().
				Int("tokens", len(run.Results)).
				Int("failed", run.Failed()).
				Dur("duration", run.Duration).
				Msg("Initial watch run complete")
			if once {
				return printJSON(cmd.OutOrStdout(), run)
			}

			scheduler.Start(ctx)
			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "@every 15m", "Cron spec or descriptor for re-scoring")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass, print it as JSON and exit")
	cmd.Flags().AddFlagSet(thresholdFlagSet())
	return cmd
}
