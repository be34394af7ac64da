// Package transcript renders conversation and wallet snapshots for the
// terminal. It is a read-only consumer of the session services.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chainchat/internal/application"
	"chainchat/internal/domain"
)

func Render(conversation application.ConversationSnapshot, wallet application.WalletSnapshot) string {
	return renderView(conversation, wallet, newStyles())
}

func RenderWallet(wallet application.WalletSnapshot) string {
	return renderWalletView(wallet, newStyles())
}

func renderView(conversation application.ConversationSnapshot, wallet application.WalletSnapshot, s styles) string {
	lines := []string{
		s.title.Render("chainchat"),
		s.header.Render(walletLine(wallet)),
	}

	if len(conversation.Messages) == 0 {
		lines = append(lines, s.empty.Render("No messages yet. Say something."))
	}

	for _, message := range conversation.Messages {
		lines = append(lines, renderMessage(message, s))
	}

	if conversation.Pending {
		lines = append(lines, s.pending.Render("assistant is typing..."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderMessage(message domain.Message, s styles) string {
	switch {
	case message.Sender == domain.SenderUser:
		return s.user.Render("you> ") + message.Content
	case message.IsError:
		return s.errorMsg.Render("bot> " + message.Content)
	default:
		line := s.assistant.Render("bot> " + message.Content)
		if marker := feedbackMarker(message.Feedback); marker != "" {
			line += " " + s.feedback.Render(marker)
		}
		if len(message.UsedMemories) > 0 {
			line = lipgloss.JoinVertical(lipgloss.Left, line, s.citation.Render(citationLine(message.UsedMemories)))
		}
		return line
	}
}

func renderWalletView(wallet application.WalletSnapshot, s styles) string {
	lines := []string{
		s.title.Render("Wallet"),
		s.header.Render(walletLine(wallet)),
	}

	if wallet.LastError != "" {
		lines = append(lines, s.warning.Render("error: "+wallet.LastError))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func walletLine(wallet application.WalletSnapshot) string {
	switch wallet.State {
	case application.WalletConnected:
		return fmt.Sprintf("wallet: %s  balance: %s", shortAddress(wallet.Address), formatBalance(wallet.Balance))
	case application.WalletConnecting:
		return "wallet: connecting..."
	default:
		return "wallet: not connected"
	}
}

func citationLine(memories []domain.MemoryCitation) string {
	ids := make([]string, 0, len(memories))
	for _, memory := range memories {
		ids = append(ids, memory.ID)
	}
	return "memories: " + strings.Join(ids, ", ")
}

func feedbackMarker(feedback domain.FeedbackType) string {
	switch feedback {
	case domain.FeedbackLike:
		return "[+1]"
	case domain.FeedbackDislike:
		return "[-1]"
	default:
		return ""
	}
}

func shortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:8] + "..." + address[len(address)-4:]
}

func formatBalance(balance float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", balance), "0"), ".")
}
