package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarancss/adpscan/lib/keygen"
)

// DeriveCmd prints the address of a private key taken from the results file.
func DeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <private key hex>",
		Short: "Print the address of a recorded private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := keygen.Derive(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())

			return nil
		},
	}
}
