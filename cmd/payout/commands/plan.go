package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"batch_payout/internal/app/service"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/infrastructure/configloader"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/infrastructure/walletloader"
	"batch_payout/internal/pkg/logger"
	"batch_payout/internal/pkg/utils"

	"github.com/spf13/cobra"
)

func planCmd() *cobra.Command {
	var (
		csvPath string
		token   string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate a recipient CSV and print the transfer in base units without sending anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" {
				return errors.New("--csv is required")
			}
			cfg, err := configloader.LoadOffline(configPath)
			if err != nil {
				return err
			}
			appLogger := logger.NewSlogAdapter()

			recipients, err := walletloader.NewRecipientFileLoader(cfg.Transfer.MaxRecipients, appLogger.Info).LoadRecipients(csvPath)
			if err != nil {
				return err
			}
			registry, err := newTokenRegistry(cfg, appLogger)
			if err != nil {
				return err
			}

			network := networkdefinition.Select(cfg.Network)
			planner := service.NewPlanner(registry, network, cfg.Transfer.MaxRecipients)
			plan, err := planner.Plan(entity.TransferRequest{Recipients: recipients, Token: token})
			if err != nil {
				return err
			}

			batches := utils.Chunk(plan.Addresses, cfg.Transfer.MaxRecipientsPerTx)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "network: %s\ttoken: %s (%d decimals)\n", network.Identifier, plan.Token.Symbol, plan.Token.Decimals)
			fmt.Fprintln(w, "#\tADDRESS\tAMOUNT\tBASE UNITS")
			for i, address := range plan.Addresses {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, address,
					utils.FormatUnits(plan.Amounts[i], plan.Token.Decimals), plan.Amounts[i].String())
			}
			fmt.Fprintf(w, "total\t\t%s\t%s\n", utils.FormatUnits(plan.Total, plan.Token.Decimals), plan.Total.String())
			fmt.Fprintf(w, "transactions\t%d\n", len(batches))
			if !plan.Token.Native {
				fmt.Fprintf(w, "approval\t%s %s to %s\n", utils.FormatUnits(plan.Total, plan.Token.Decimals), plan.Token.Symbol, cfg.Transfer.SpenderAddress)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "recipient CSV with address,amount rows")
	cmd.Flags().StringVar(&token, "token", "eth", "token symbol")
	return cmd
}
