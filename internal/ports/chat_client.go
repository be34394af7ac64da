package ports

import (
	"context"

	"chainchat/internal/domain"
)

type ChatRequest struct {
	Message        string
	UserID         string
	ConversationID string
	// WalletAddress becomes the bearer token. An empty address is sent
	// as-is; authorization is enforced server-side.
	WalletAddress string
}

type ChatReply struct {
	Response     string
	ResponseID   string
	UsedMemories []domain.MemoryCitation
}

type ChatClient interface {
	SendMessage(ctx context.Context, req ChatRequest) (ChatReply, error)
	SendFeedback(ctx context.Context, walletAddress, responseID string, feedback domain.FeedbackType) error
}
