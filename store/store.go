package store

import (
	"context"

	"github.com/xraph/vault/config"
	"github.com/xraph/vault/merchant"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

// Store is the unified storage interface for all vault entities.
// Instead of embedding the per-entity sub-interfaces, we explicitly
// declare all methods to avoid naming conflicts.
//
// Error contract: GetSubscription returns vault.ErrNotFound for an
// unknown id; InitConfig returns vault.ErrAlreadyInitialized when config
// exists; GetConfig and NextSubscriptionID return vault.ErrNotInitialized
// before InitConfig. GetMerchantBalance returns a zero balance (no error)
// for an address with no entry.
type Store interface {
	// Config methods
	InitConfig(ctx context.Context, c *config.Config) error
	GetConfig(ctx context.Context) (*config.Config, error)
	NextSubscriptionID(ctx context.Context) (uint64, error)

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, id uint64) (*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error)

	// Merchant balance methods
	GetMerchantBalance(ctx context.Context, m types.Address) (*merchant.Balance, error)
	PutMerchantBalance(ctx context.Context, b *merchant.Balance) error
	ListMerchantBalances(ctx context.Context) ([]*merchant.Balance, error)

	// ApplyCharge persists a charge settlement: the debited subscription
	// and the credited merchant balance in one call, applied as close to
	// atomically as the backend allows.
	ApplyCharge(ctx context.Context, s *subscription.Subscription, b *merchant.Balance) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
