package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chainchat/internal/adapters/render/transcript"
	"chainchat/internal/domain"
)

func newWalletCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the wallet session",
	}

	cmd.AddCommand(
		newWalletCreateCmd(app),
		newWalletConnectCmd(app),
		newWalletDisconnectCmd(app),
		newWalletBalanceCmd(app),
		newWalletSendCmd(app),
		newWalletStatusCmd(app),
	)

	return cmd
}

func newWalletCreateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet and connect to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer app.wallet.Close()

			identity, err := app.wallet.CreateWallet(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "address: %s\n", identity.Address)
			_, _ = fmt.Fprintf(out, "private key: %s\n", identity.Credential)
			_, _ = fmt.Fprintf(out, "balance: %.6f\n", app.wallet.Snapshot().Balance)
			_, _ = fmt.Fprintln(out, "Keep the private key safe; it is the only way to reconnect from another device.")
			return nil
		},
	}
}

func newWalletConnectCmd(app *app) *cobra.Command {
	var privateKey string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect the saved wallet, or import one with --key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer app.wallet.Close()

			identity, err := app.wallet.Connect(cmd.Context(), privateKey)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "connected: %s\nbalance: %.6f\n", identity.Address, app.wallet.Snapshot().Balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&privateKey, "key", "", "Private key to import (default: use the saved wallet)")

	return cmd
}

func newWalletDisconnectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect and forget the saved wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.wallet.Disconnect()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "wallet disconnected")
			return nil
		},
	}
}

func newWalletBalanceCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of the saved wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer app.wallet.Close()

			if _, err := app.wallet.Connect(cmd.Context(), ""); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", app.wallet.Snapshot().Balance)
			return nil
		},
	}
}

func newWalletSendCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient> <amount>",
		Short: "Send tokens to another wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.wallet.Close()

			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q", domain.ErrInvalidAmount, args[1])
			}

			if _, err := app.wallet.Connect(cmd.Context(), ""); err != nil {
				return err
			}

			var receipt domain.TransactionReceipt
			err = runSpinner(cmd.Context(), cmd.ErrOrStderr(), "Submitting transaction...", func() error {
				var sendErr error
				receipt, sendErr = app.wallet.SendTransaction(cmd.Context(), args[0], amount)
				return sendErr
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "tx: %s\n", receipt.TxID)
			_, _ = fmt.Fprintf(out, "balance: %.6f\n", app.wallet.Snapshot().Balance)
			return nil
		},
	}
}

func newWalletStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the wallet session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer app.wallet.Close()

			if _, err := app.wallet.Connect(cmd.Context(), ""); err != nil && !errors.Is(err, domain.ErrNoSavedWallet) {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), transcript.RenderWallet(app.wallet.Snapshot()))
			return nil
		},
	}
}
