// Package memory provides an in-memory vault store for tests and
// single-process embedding.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/vault"
	"github.com/xraph/vault/config"
	"github.com/xraph/vault/merchant"
	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Store keeps all vault state in process memory behind a single lock.
// Records are cloned on the way in and out, so a caller mutating a
// returned record never changes stored state until it writes it back.
type Store struct {
	mu sync.RWMutex

	cfg    *config.Config
	nextID uint64

	subscriptions map[uint64]*subscription.Subscription
	balances      map[types.Address]*merchant.Balance
}

func New() *Store {
	return &Store{
		subscriptions: make(map[uint64]*subscription.Subscription),
		balances:      make(map[types.Address]*merchant.Balance),
	}
}

// Config store implementation

func (s *Store) InitConfig(_ context.Context, c *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg != nil {
		return vault.ErrAlreadyInitialized
	}

	cloned := *c
	s.cfg = &cloned
	s.nextID = 1
	return nil
}

func (s *Store) GetConfig(_ context.Context) (*config.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return nil, vault.ErrNotInitialized
	}

	cloned := *s.cfg
	return &cloned, nil
}

func (s *Store) NextSubscriptionID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg == nil {
		return 0, vault.ErrNotInitialized
	}

	id := s.nextID
	s.nextID++
	return id, nil
}

// Subscription store implementation

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; exists {
		return fmt.Errorf("memory: subscription %d already exists", sub.ID)
	}

	cloned := *sub
	s.subscriptions[sub.ID] = &cloned
	return nil
}

func (s *Store) GetSubscription(_ context.Context, id uint64) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, vault.ErrNotFound
	}

	cloned := *sub
	return &cloned, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID]; !ok {
		return vault.ErrNotFound
	}

	cloned := *sub
	s.subscriptions[sub.ID] = &cloned
	return nil
}

func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		if !opts.Subscriber.IsZero() && sub.Subscriber != opts.Subscriber {
			continue
		}
		if !opts.Merchant.IsZero() && sub.Merchant != opts.Merchant {
			continue
		}
		cloned := *sub
		result = append(result, &cloned)
	}

	// Map iteration order is random; match the SQL backends' id ordering.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Merchant balance store implementation

func (s *Store) GetMerchantBalance(_ context.Context, m types.Address) (*merchant.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balanceLocked(m), nil
}

func (s *Store) PutMerchantBalance(_ context.Context, b *merchant.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *b
	s.balances[b.Merchant] = &cloned
	return nil
}

func (s *Store) ListMerchantBalances(_ context.Context) ([]*merchant.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*merchant.Balance, 0, len(s.balances))
	for _, b := range s.balances {
		cloned := *b
		result = append(result, &cloned)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Merchant < result[j].Merchant })
	return result, nil
}

// ApplyCharge persists the debited subscription and credited merchant
// balance under one lock acquisition.
func (s *Store) ApplyCharge(_ context.Context, sub *subscription.Subscription, b *merchant.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID]; !ok {
		return vault.ErrNotFound
	}

	clonedSub := *sub
	clonedBal := *b
	s.subscriptions[sub.ID] = &clonedSub
	s.balances[b.Merchant] = &clonedBal
	return nil
}

// balanceLocked returns the stored balance for m, or a zero balance if
// absent. Callers must hold at least a read lock.
func (s *Store) balanceLocked(m types.Address) *merchant.Balance {
	if b, ok := s.balances[m]; ok {
		cloned := *b
		return &cloned
	}
	return &merchant.Balance{Merchant: m}
}

// Core store implementation

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
