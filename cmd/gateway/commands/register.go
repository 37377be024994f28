package commands

import (
	"fmt"

	"ble_gateway/internal/app"
	"ble_gateway/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	var authority string

	cmd := &cobra.Command{
		Use:   "register [account] [contract]",
		Short: "Record the presence contract deployed for a client account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range []string{args[0], args[1], authority} {
				if a != "" && !common.IsHexAddress(a) {
					return fmt.Errorf("%q is not an address", a)
				}
			}

			infra, err := app.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer infra.Close(cmd.Context())

			rec := &model.ContractRecord{
				ID:              common.HexToAddress(args[0]).Hex(),
				ContractAddress: common.HexToAddress(args[1]).Hex(),
			}
			if authority != "" {
				rec.Authority = common.HexToAddress(authority).Hex()
			}
			if err := infra.Contracts.Put(cmd.Context(), rec); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered contract %s for %s\n", rec.ContractAddress, model.AccountKey(rec.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&authority, "authority", "", "authority address that signs verifyPresence")
	return cmd
}
