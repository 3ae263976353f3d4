package commands

import (
	"os"

	"batch_payout/internal/app/port"
	"batch_payout/internal/app/provider"
	"batch_payout/internal/infrastructure/configloader"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/infrastructure/tokenloader"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yml"

var configPath string

// Execute runs the payout command tree.
func Execute() error {
	root := &cobra.Command{
		Use:           "payout",
		Short:         "Batch ETH and ERC-20 payouts from custodial wallets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			_ = godotenv.Overload(".env.local")

			if !cmd.Flags().Changed("config") {
				if v := os.Getenv("CONFIG_PATH"); v != "" {
					configPath = v
				}
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config (env CONFIG_PATH)")

	root.AddCommand(serveCmd(), planCmd(), tokensCmd())
	return root.Execute()
}

func newTokenRegistry(cfg *configloader.Config, logger port.Logger) (port.TokenRegistry, error) {
	loader := tokenloader.NewTokenLoader(cfg.Tokens.Directory, logger.Info, logger.Warn)
	return provider.NewTokenRegistry(networkdefinition.All(), loader, logger)
}
