package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chainchat",
		Short:         "chainchat: wallet-authenticated chat from the terminal",
		Long:          "chainchat pairs a chat session with a custodial-style wallet: every message and every transfer is authorized by the wallet identity, and both survive restarts through the local identity store.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newWalletCmd(app),
		newChatCmd(app),
		newChainCmd(app),
	)

	return rootCmd
}
