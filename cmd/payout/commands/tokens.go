package commands

import (
	"fmt"
	"text/tabwriter"

	"batch_payout/internal/infrastructure/configloader"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/pkg/logger"

	"github.com/spf13/cobra"
)

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the tokens transferable on the configured network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configloader.LoadOffline(configPath)
			if err != nil {
				return err
			}
			network := networkdefinition.Select(cfg.Network)
			registry, err := newTokenRegistry(cfg, logger.NewSlogAdapter())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "network: %s (chain %d)\n", network.Name, network.ChainID)
			fmt.Fprintln(w, "SYMBOL\tDECIMALS\tCONTRACT")
			for _, spec := range registry.List(network.Identifier) {
				contract := spec.ContractAddress
				if spec.Native {
					contract = "native"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", spec.Symbol, spec.Decimals, contract)
			}
			return w.Flush()
		},
	}
}
