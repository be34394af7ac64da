package ports

import (
	"context"

	"chainchat/internal/domain"
)

// LedgerClient talks to the remote ledger node. Balance reports an error
// wrapping domain.ErrWalletNotFound when the node does not know the
// address.
type LedgerClient interface {
	CreateWallet(ctx context.Context) (domain.Identity, error)
	ImportWallet(ctx context.Context, privateKey string) (domain.Identity, error)
	Balance(ctx context.Context, address string) (float64, error)
	SubmitTransaction(ctx context.Context, fromAddress, recipient string, amount float64) (domain.TransactionReceipt, error)
	ChainInfo(ctx context.Context) (domain.ChainInfo, error)
}
