// Package chat is the HTTP adapter for the chat backend.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chainchat/internal/domain"
	"chainchat/internal/ports"
)

const maxResponseBytes = 1 << 20

type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.ChatClient = (*Client)(nil)

func New(baseURL string, httpClient *http.Client, requestTimeout time.Duration) *Client {
	return &Client{
		BaseURL:        baseURL,
		HTTPClient:     httpClient,
		RequestTimeout: requestTimeout,
	}
}

type chatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

type memoryPayload struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type chatResponse struct {
	Response     string          `json:"response"`
	ResponseID   string          `json:"response_id"`
	UsedMemories []memoryPayload `json:"used_memories"`
}

type feedbackRequest struct {
	ResponseID   string `json:"response_id"`
	FeedbackType string `json:"feedback_type"`
}

func (c *Client) SendMessage(ctx context.Context, req ports.ChatRequest) (ports.ChatReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return ports.ChatReply{}, errors.New("message is required")
	}

	var payload chatResponse
	body := chatRequest{Message: req.Message, UserID: req.UserID, ConversationID: req.ConversationID}
	if err := c.do(ctx, "/chat", req.WalletAddress, body, &payload); err != nil {
		return ports.ChatReply{}, fmt.Errorf("send chat message: %w", err)
	}

	memories := make([]domain.MemoryCitation, 0, len(payload.UsedMemories))
	for _, memory := range payload.UsedMemories {
		memories = append(memories, domain.MemoryCitation{ID: memory.ID, Content: memory.Content})
	}

	return ports.ChatReply{
		Response:     payload.Response,
		ResponseID:   payload.ResponseID,
		UsedMemories: memories,
	}, nil
}

func (c *Client) SendFeedback(ctx context.Context, walletAddress, responseID string, feedback domain.FeedbackType) error {
	if strings.TrimSpace(responseID) == "" {
		return errors.New("response id is required")
	}

	body := feedbackRequest{ResponseID: responseID, FeedbackType: string(feedback)}
	if err := c.do(ctx, "/feedback", walletAddress, body, nil); err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, path, bearer string, body, out any) error {
	endpoint, err := buildURL(c.BaseURL, path)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeRemoteError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.RequestTimeout)
}

func buildURL(baseURL, path string) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid base url %q", baseURL)
	}

	return parsed.String() + path, nil
}

func decodeRemoteError(resp *http.Response) error {
	remoteErr := &domain.RemoteError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return remoteErr
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Detail != "" {
		remoteErr.Detail = payload.Detail
	}

	return remoteErr
}
