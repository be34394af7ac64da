package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chainchat/internal/application"
	"chainchat/internal/domain"
)

func TestRenderTranscript(t *testing.T) {
	t.Parallel()

	conversation := application.ConversationSnapshot{
		ConversationID: "conv-1",
		Messages: []domain.Message{
			{ID: "m1", Sender: domain.SenderUser, Content: "Hello"},
			{
				ID:           "resp-1",
				Sender:       domain.SenderAssistant,
				Content:      "Hi there",
				Feedback:     domain.FeedbackLike,
				UsedMemories: []domain.MemoryCitation{{ID: "mem-1"}, {ID: "mem-2"}},
			},
		},
	}
	wallet := application.WalletSnapshot{
		State:   application.WalletConnected,
		Address: "addr-1234567890abcdef",
		Balance: 99.5,
	}

	out := Render(conversation, wallet)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "[+1]")
	assert.Contains(t, out, "memories: mem-1, mem-2")
	assert.Contains(t, out, "addr-123...cdef")
	assert.Contains(t, out, "99.5")
}

func TestRenderTranscriptPendingAndEmpty(t *testing.T) {
	t.Parallel()

	out := Render(application.ConversationSnapshot{}, application.WalletSnapshot{State: application.WalletDisconnected})
	assert.Contains(t, out, "No messages yet")
	assert.Contains(t, out, "not connected")

	pending := Render(application.ConversationSnapshot{
		Messages: []domain.Message{{Sender: domain.SenderUser, Content: "Hello"}},
		Pending:  true,
	}, application.WalletSnapshot{State: application.WalletConnecting})
	assert.Contains(t, pending, "assistant is typing...")
	assert.Contains(t, pending, "connecting")
}

func TestRenderTranscriptErrorReply(t *testing.T) {
	t.Parallel()

	conversation := application.ConversationSnapshot{
		Messages: []domain.Message{
			{Sender: domain.SenderUser, Content: "Hello"},
			{Sender: domain.SenderAssistant, Content: application.SendFailureReply, IsError: true},
		},
	}

	out := Render(conversation, application.WalletSnapshot{State: application.WalletConnected, Address: "addr-1"})
	assert.Contains(t, out, application.SendFailureReply)
}

func TestRenderWallet(t *testing.T) {
	t.Parallel()

	out := RenderWallet(application.WalletSnapshot{
		State:     application.WalletConnected,
		Address:   "addr-1",
		Balance:   1000,
		LastError: "insufficient balance",
	})
	assert.Contains(t, out, "addr-1")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "error: insufficient balance")
}
