// Package ledger is the HTTP adapter for the remote ledger node.
package ledger

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

var _ ports.LedgerClient = (*Client)(nil)

func New(baseURL string, httpClient *http.Client, requestTimeout time.Duration) *Client {
	return &Client{
		BaseURL:        baseURL,
		HTTPClient:     httpClient,
		RequestTimeout: requestTimeout,
	}
}

type walletResponse struct {
	Address    string  `json:"address"`
	PrivateKey string  `json:"private_key"`
	Balance    float64 `json:"balance"`
}

type walletCreateRequest struct {
	PrivateKey string `json:"private_key,omitempty"`
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

type transactionRequest struct {
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

type transactionResponse struct {
	Message string `json:"message"`
	TxID    string `json:"tx_id"`
}

type chainResponse struct {
	Length int `json:"length"`
}

func (c *Client) CreateWallet(ctx context.Context) (domain.Identity, error) {
	var payload walletResponse
	if err := c.do(ctx, http.MethodPost, "/wallets", "", walletCreateRequest{}, &payload); err != nil {
		return domain.Identity{}, fmt.Errorf("create wallet: %w", err)
	}
	if payload.Address == "" || payload.PrivateKey == "" {
		return domain.Identity{}, errors.New("wallet response missing required fields")
	}

	return domain.Identity{Address: payload.Address, Credential: payload.PrivateKey}, nil
}

func (c *Client) ImportWallet(ctx context.Context, privateKey string) (domain.Identity, error) {
	if strings.TrimSpace(privateKey) == "" {
		return domain.Identity{}, errors.New("private key is required")
	}

	var payload walletResponse
	if err := c.do(ctx, http.MethodPost, "/wallets", "", walletCreateRequest{PrivateKey: privateKey}, &payload); err != nil {
		return domain.Identity{}, fmt.Errorf("import wallet: %w", err)
	}
	if payload.Address == "" {
		return domain.Identity{}, errors.New("wallet response missing address")
	}

	return domain.Identity{Address: payload.Address, Credential: payload.PrivateKey}, nil
}

func (c *Client) Balance(ctx context.Context, address string) (float64, error) {
	if strings.TrimSpace(address) == "" {
		return 0, errors.New("address is required")
	}

	path := fmt.Sprintf("/wallets/%s/balance", url.PathEscape(address))
	var payload balanceResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &payload); err != nil {
		var remoteErr *domain.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Status == http.StatusNotFound {
			return 0, fmt.Errorf("wallet %s: %w", address, domain.ErrWalletNotFound)
		}
		return 0, fmt.Errorf("fetch balance: %w", err)
	}

	return payload.Balance, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, fromAddress, recipient string, amount float64) (domain.TransactionReceipt, error) {
	var payload transactionResponse
	err := c.do(ctx, http.MethodPost, "/transactions", fromAddress, transactionRequest{Recipient: recipient, Amount: amount}, &payload)
	if err != nil {
		var remoteErr *domain.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Status == http.StatusNotFound {
			return domain.TransactionReceipt{}, fmt.Errorf("wallet %s: %w", fromAddress, domain.ErrWalletNotFound)
		}
		return domain.TransactionReceipt{}, fmt.Errorf("submit transaction: %w", err)
	}

	return domain.TransactionReceipt{TxID: payload.TxID, Message: payload.Message}, nil
}

func (c *Client) ChainInfo(ctx context.Context) (domain.ChainInfo, error) {
	var payload chainResponse
	if err := c.do(ctx, http.MethodGet, "/chain", "", nil, &payload); err != nil {
		return domain.ChainInfo{}, fmt.Errorf("fetch chain info: %w", err)
	}

	return domain.ChainInfo{Length: payload.Length}, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	endpoint, err := buildURL(c.BaseURL, path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

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

// decodeRemoteError extracts the server's own message from a FastAPI
// style {"detail": ...} body when one is present.
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
