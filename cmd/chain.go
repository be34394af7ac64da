package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChainCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Show a summary of the ledger chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := app.ledger.ChainInfo(cmd.Context())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "chain length: %d\n", info.Length)
			return nil
		},
	}
}
