package subscription

import (
	"context"

	"github.com/xraph/vault/types"
)

type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, id uint64) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	List(ctx context.Context, opts ListOpts) ([]*Subscription, error)
}

type ListOpts struct {
	Status     Status
	Subscriber types.Address
	Merchant   types.Address
	Limit      int
	Offset     int
}
