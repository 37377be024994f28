package commands

import (
	"errors"
	"fmt"

	"ble_gateway/internal/app"

	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every session and contract record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}

			infra, err := app.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer infra.Close(cmd.Context())

			if err := infra.Sessions.DestroyAll(cmd.Context()); err != nil {
				return err
			}
			if err := infra.Contracts.Destroy(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Sessions and contracts removed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
