package ports

import "context"

// Keys used by the identity store. Absence of a key means no saved
// identity.
const (
	KeyWalletAddress = "wallet_address"
	KeyPrivateKey    = "private_key"
	KeyUserID        = "user_id"
)

// IdentityStore is durable key-value storage for the device identity.
// Get returns an error wrapping domain.ErrKeyNotFound for absent keys.
type IdentityStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
