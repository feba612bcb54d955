package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/aftershock/internal/application/tokendata"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		inputPath string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [token]",
		Short: "Score a token's retracement setup",
		Long: `Fetch live data for a Solana token and score its setup, or score a
prepared {tokenOverview, timeframeConfigs, thresholds} document offline.

Examples:
  aftershock analyze So11111111111111111111111111111111111111112
  aftershock analyze <token> --min-liquidity 25000 --json
  aftershock analyze --input snapshot.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath != "" {
				return runAnalyzeOffline(cmd, inputPath, asJSON)
			}
			if len(args) == 0 {
				return tokendata.ErrTokenRequired
			}

			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := commandContext(cmd)
			defer stop()

			result, err := rt.service.Analyze(ctx, args[0], thresholdOverrides(cmd.Flags(), aftershock.ThresholdOverrides{}))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, asJSON)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Score a JSON input file offline (- reads stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	cmd.Flags().AddFlagSet(thresholdFlagSet())
	return cmd
}

func runAnalyzeOffline(cmd *cobra.Command, path string, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var in aftershock.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	in.Thresholds = thresholdOverrides(cmd.Flags(), in.Thresholds)

	result := aftershock.NewEngine(cfg.EngineParams()).Analyze(in)
	return printResult(cmd.OutOrStdout(), result, asJSON)
}

// thresholdFlagSet builds a fresh copy of the threshold override flags
func thresholdFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("thresholds", pflag.ContinueOnError)
	fs.String("min-liquidity", "", "Minimum DEX liquidity in USD")
	fs.String("min-volume", "", "Minimum 24h volume in USD")
	fs.String("min-price-change", "", "Minimum 24h price change in percent")
	fs.String("min-holders", "", "Minimum holder count")
	return fs
}

// thresholdOverrides layers explicitly set threshold flags over base.
// Flag values go through the same coercion as any other untrusted override.
func thresholdOverrides(flags *pflag.FlagSet, base aftershock.ThresholdOverrides) aftershock.ThresholdOverrides {
	pick := func(name string, current any) any {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return f.Value.String()
		}
		return current
	}
	return aftershock.ThresholdOverrides{
		MinLiquidity:   pick("min-liquidity", base.MinLiquidity),
		MinVolume:      pick("min-volume", base.MinVolume),
		MinPriceChange: pick("min-price-change", base.MinPriceChange),
		MinHolders:     pick("min-holders", base.MinHolders),
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
