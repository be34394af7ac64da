package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainchat/internal/domain"
)

func TestCreateWallet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wallets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "private_key")

		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprint(w, `{"address":"addr-1","private_key":"key-1","balance":1000}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	identity, err := client.CreateWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "addr-1", identity.Address)
	assert.Equal(t, "key-1", identity.Credential)
	assert.False(t, identity.Connected)
}

func TestImportWalletSendsPrivateKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key-imported", body["private_key"])

		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprint(w, `{"address":"addr-imported","private_key":"key-imported","balance":0}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	identity, err := client.ImportWallet(context.Background(), "key-imported")
	require.NoError(t, err)
	assert.Equal(t, "addr-imported", identity.Address)
}

func TestImportWalletRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	client := New("http://localhost:1", nil, 0)
	_, err := client.ImportWallet(context.Background(), "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key is required")
}

func TestBalance(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wallets/addr-1/balance", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"balance":42.5}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	balance, err := client.Balance(context.Background(), "addr-1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, balance)
}

func TestBalanceUnknownAddress(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"detail":"Wallet not found"}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	_, err := client.Balance(context.Background(), "addr-unknown")
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestSubmitTransaction(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "Bearer addr-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "addr-2", body["recipient"])
		assert.Equal(t, 30.0, body["amount"])

		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprint(w, `{"message":"Transaction added to mempool","tx_id":"tx-1"}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	receipt, err := client.SubmitTransaction(context.Background(), "addr-1", "addr-2", 30)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", receipt.TxID)
	assert.Equal(t, "Transaction added to mempool", receipt.Message)
}

func TestSubmitTransactionPropagatesServerDetail(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"detail":"Invalid transaction"}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	_, err := client.SubmitTransaction(context.Background(), "addr-1", "addr-2", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid transaction")

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.Status)
}

func TestRemoteErrorWithoutDetailBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	_, err := client.Balance(context.Background(), "addr-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestChainInfo(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"length":7,"blocks":[]}`)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), 0)
	info, err := client.ChainInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, info.Length)
}

func TestInvalidBaseURL(t *testing.T) {
	t.Parallel()

	client := New("not-a-url", nil, 0)
	_, err := client.Balance(context.Background(), "addr-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base url")
}
