// Package event defines the vault's lifecycle event stream.
//
// Every successful mutating operation emits exactly one event: a short
// topic symbol plus a typed payload. Off-chain indexers reconstruct vault
// state from this stream alone, so topics, payload field names, and their
// JSON encodings are stable across releases.
package event

import (
	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Topic is the short symbol identifying an event kind.
type Topic string

const (
	TopicSubscriptionCreated   Topic = "sub_new"
	TopicFundsDeposited        Topic = "deposit"
	TopicSubscriptionCharged   Topic = "charged"
	TopicSubscriptionPaused    Topic = "paused"
	TopicSubscriptionResumed   Topic = "resumed"
	TopicSubscriptionCancelled Topic = "cancelled"
	TopicMerchantWithdrawal    Topic = "withdraw"
)

// Payload is implemented by every event payload type.
type Payload interface {
	Topic() Topic
}

// SubscriptionCreated is emitted on sub_new.
type SubscriptionCreated struct {
	SubscriptionID  uint64        `json:"subscription_id"`
	Subscriber      types.Address `json:"subscriber"`
	Merchant        types.Address `json:"merchant"`
	Amount          types.Amount  `json:"amount"`
	IntervalSeconds uint64        `json:"interval_seconds"`
}

func (SubscriptionCreated) Topic() Topic { return TopicSubscriptionCreated }

// FundsDeposited is emitted on deposit.
type FundsDeposited struct {
	SubscriptionID uint64        `json:"subscription_id"`
	Subscriber     types.Address `json:"subscriber"`
	Amount         types.Amount  `json:"amount"`
	NewBalance     types.Amount  `json:"new_balance"`
}

func (FundsDeposited) Topic() Topic { return TopicFundsDeposited }

// SubscriptionCharged is emitted on charged.
type SubscriptionCharged struct {
	SubscriptionID   uint64        `json:"subscription_id"`
	Merchant         types.Address `json:"merchant"`
	Amount           types.Amount  `json:"amount"`
	RemainingBalance types.Amount  `json:"remaining_balance"`
}

func (SubscriptionCharged) Topic() Topic { return TopicSubscriptionCharged }

// SubscriptionPaused is emitted on paused.
type SubscriptionPaused struct {
	SubscriptionID uint64        `json:"subscription_id"`
	Authorizer     types.Address `json:"authorizer"`
}

func (SubscriptionPaused) Topic() Topic { return TopicSubscriptionPaused }

// SubscriptionResumed is emitted on resumed.
type SubscriptionResumed struct {
	SubscriptionID uint64        `json:"subscription_id"`
	Authorizer     types.Address `json:"authorizer"`
}

func (SubscriptionResumed) Topic() Topic { return TopicSubscriptionResumed }

// SubscriptionCancelled is emitted on cancelled. RefundAmount is zero when
// cancelling an already-cancelled subscription.
type SubscriptionCancelled struct {
	SubscriptionID uint64        `json:"subscription_id"`
	Authorizer     types.Address `json:"authorizer"`
	RefundAmount   types.Amount  `json:"refund_amount"`
}

func (SubscriptionCancelled) Topic() Topic { return TopicSubscriptionCancelled }

// MerchantWithdrawal is emitted on withdraw.
type MerchantWithdrawal struct {
	Merchant         types.Address `json:"merchant"`
	Amount           types.Amount  `json:"amount"`
	RemainingBalance types.Amount  `json:"remaining_balance"`
}

func (MerchantWithdrawal) Topic() Topic { return TopicMerchantWithdrawal }

// Event is the envelope delivered to plugins and indexer sinks. The ID is
// a fresh TypeID per emission so consumers can de-duplicate and K-sort the
// stream; LedgerTime is the vault clock reading at emission.
type Event struct {
	ID         id.EventID `json:"id"`
	Topic      Topic      `json:"topic"`
	LedgerTime uint64     `json:"ledger_time"`
	Payload    Payload    `json:"payload"`
}

// New wraps a payload in a freshly-identified envelope.
func New(ledgerTime uint64, p Payload) *Event {
	return &Event{
		ID:         id.NewEventID(),
		Topic:      p.Topic(),
		LedgerTime: ledgerTime,
		Payload:    p,
	}
}
