package merchant

import (
	"context"

	"github.com/xraph/vault/types"
)

// Store persists merchant balances. Get on an address with no entry
// returns a zero balance, not an error: an absent entry and a zero
// balance are indistinguishable to callers.
type Store interface {
	Get(ctx context.Context, merchant types.Address) (*Balance, error)
	Put(ctx context.Context, b *Balance) error
	List(ctx context.Context) ([]*Balance, error)
}
