package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrNoSavedWallet       = errors.New("no saved wallet found")
	ErrWalletNotFound      = errors.New("wallet not found on ledger")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEmptyRecipient      = errors.New("recipient address is empty")
	ErrInvalidAmount       = errors.New("amount must be a positive finite number")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrMessageNotFound     = errors.New("message not found")
	ErrInvalidFeedback     = errors.New("unsupported feedback type")
	ErrKeyNotFound         = errors.New("identity key not found")
)

// RemoteError carries a failure reported by a remote service. Detail is
// the server's own message when the response body had one.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("remote service returned status %d", e.Status)
}
