package main

import (
	"github.com/spf13/cobra"
)

func newRawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <token>",
		Short: "Print the aggregated upstream data for a token",
		Long: `Fetch the Moralis price, holders and OHLCV series plus the DexScreener
pairs for a token and print them as one JSON document. Branches that fail are
replaced by {"error": "..."} instead of failing the whole command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := commandContext(cmd)
			defer stop()

			data, err := rt.service.Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}
