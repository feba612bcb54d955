package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "aftershock"
	version = "v1.0.0"
)

var (
	configPath string
	logLevel   string
)

func main() {
	setupLogging("info")

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Post-pump retracement setup scanner for Solana tokens",
		Version: version,
		Long: `aftershock scores the retracement setup of a Solana token after an
impulse move. It combines liquidity, volume, 24h change and holder gates with
a Fibonacci retracement ladder, multi-timeframe trend alignment and a
wick-absorption check on the shortest timeframe.

Data comes from Moralis and DexScreener; set MORALIS_API_KEY in the
environment or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config (default config/aftershock.yaml or $AFTERSHOCK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides the config")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newRawCmd(),
		newServeCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// setupLogging uses the console writer on a terminal and JSON lines otherwise
func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
