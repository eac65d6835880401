// Package subscription defines the subscription record and its lifecycle.
package subscription

import (
	"math"

	"github.com/xraph/vault/types"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// Subscription is a standing agreement allowing periodic transfer of a
// fixed amount from a subscriber's prepaid balance to a merchant.
// Records are never deleted; a cancelled subscription remains queryable
// with a zero balance.
type Subscription struct {
	types.Entity
	ID                   uint64        `json:"id"`
	Subscriber           types.Address `json:"subscriber"`
	Merchant             types.Address `json:"merchant"`
	Amount               types.Amount  `json:"amount"`
	IntervalSeconds      uint64        `json:"interval_seconds"`
	LastPaymentTimestamp uint64        `json:"last_payment_timestamp"`
	Status               Status        `json:"status"`
	PrepaidBalance       types.Amount  `json:"prepaid_balance"`
	UsageEnabled         bool          `json:"usage_enabled"`
}

// IsActive returns true if the subscription is chargeable.
func (s *Subscription) IsActive() bool { return s.Status == StatusActive }

// IsCancelled returns true once the subscription reached its terminal state.
func (s *Subscription) IsCancelled() bool { return s.Status == StatusCancelled }

// CanDeposit returns true if the subscription accepts deposits
// (any state except cancelled).
func (s *Subscription) CanDeposit() bool { return s.Status != StatusCancelled }

// DueAt returns the earliest ledger time at which the next charge is
// permitted. A subscription that has never been charged is due immediately.
func (s *Subscription) DueAt() uint64 {
	if s.LastPaymentTimestamp == 0 {
		return 0
	}
	due := s.LastPaymentTimestamp + s.IntervalSeconds
	if due < s.LastPaymentTimestamp {
		return math.MaxUint64
	}
	return due
}

// ChargeDue reports whether a charge is permitted at ledger time now.
func (s *Subscription) ChargeDue(now uint64) bool {
	return now >= s.DueAt()
}
