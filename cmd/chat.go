package cmd

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"chainchat/internal/domain"
)

func newChatCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant",
		Long: `Chat with the assistant. With a message argument the reply is printed
and the command exits; without arguments an interactive session starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.wallet.Close()

			// A connected wallet unlocks feedback and memory recall, but
			// chatting works without one.
			if _, err := app.wallet.Connect(cmd.Context(), ""); err != nil && !errors.Is(err, domain.ErrNoSavedWallet) {
				return err
			}

			if len(args) > 0 {
				return runChatOnce(cmd, app, strings.Join(args, " "))
			}

			return runChatSession(cmd, app)
		},
	}
}

func runChatOnce(cmd *cobra.Command, app *app, message string) error {
	reply, err := app.conversation.SendMessage(cmd.Context(), message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, reply.Content)
	for _, memory := range reply.UsedMemories {
		_, _ = fmt.Fprintf(out, "  memory %s: %s\n", memory.ID, memory.Content)
	}

	return nil
}

func runChatSession(cmd *cobra.Command, app *app) error {
	p := tea.NewProgram(
		newChatModel(app),
		tea.WithContext(cmd.Context()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("run chat session: %w", err)
	}

	return nil
}
