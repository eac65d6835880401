package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/vault/config"
	"github.com/xraph/vault/merchant"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

// configDocID pins the vault configuration to a single document.
const configDocID = "vault"

// ==================== Config model ====================

type configModel struct {
	grove.BaseModel `grove:"table:vault_config"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Token     string    `grove:"token"      bson:"token"`
	Admin     string    `grove:"admin"      bson:"admin"`
	NextID    int64     `grove:"next_id"    bson:"next_id"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toConfigModel(c *config.Config) *configModel {
	return &configModel{
		ID:        configDocID,
		Token:     string(c.Token),
		Admin:     string(c.Admin),
		NextID:    1,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromConfigModel(m *configModel) *config.Config {
	return &config.Config{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Token: types.Address(m.Token),
		Admin: types.Address(m.Admin),
	}
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:vault_subscriptions"`

	ID                   int64     `grove:"id,pk"                  bson:"_id"`
	Subscriber           string    `grove:"subscriber"             bson:"subscriber"`
	Merchant             string    `grove:"merchant"               bson:"merchant"`
	Amount               string    `grove:"amount"                 bson:"amount"`
	IntervalSeconds      int64     `grove:"interval_seconds"       bson:"interval_seconds"`
	LastPaymentTimestamp int64     `grove:"last_payment_timestamp" bson:"last_payment_timestamp"`
	Status               string    `grove:"status"                 bson:"status"`
	PrepaidBalance       string    `grove:"prepaid_balance"        bson:"prepaid_balance"`
	UsageEnabled         bool      `grove:"usage_enabled"          bson:"usage_enabled"`
	CreatedAt            time.Time `grove:"created_at"             bson:"created_at"`
	UpdatedAt            time.Time `grove:"updated_at"             bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                   int64(s.ID),
		Subscriber:           string(s.Subscriber),
		Merchant:             string(s.Merchant),
		Amount:               s.Amount.String(),
		IntervalSeconds:      int64(s.IntervalSeconds),
		LastPaymentTimestamp: int64(s.LastPaymentTimestamp),
		Status:               string(s.Status),
		PrepaidBalance:       s.PrepaidBalance.String(),
		UsageEnabled:         s.UsageEnabled,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: subscription %d amount: %w", m.ID, err)
	}
	prepaid, err := types.ParseAmount(m.PrepaidBalance)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: subscription %d prepaid balance: %w", m.ID, err)
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                   uint64(m.ID),
		Subscriber:           types.Address(m.Subscriber),
		Merchant:             types.Address(m.Merchant),
		Amount:               amount,
		IntervalSeconds:      uint64(m.IntervalSeconds),
		LastPaymentTimestamp: uint64(m.LastPaymentTimestamp),
		Status:               subscription.Status(m.Status),
		PrepaidBalance:       prepaid,
		UsageEnabled:         m.UsageEnabled,
	}, nil
}

// ==================== Merchant balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:vault_merchant_balances"`

	Merchant  string    `grove:"merchant,pk" bson:"_id"`
	Amount    string    `grove:"amount"      bson:"amount"`
	CreatedAt time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toBalanceModel(b *merchant.Balance) *balanceModel {
	return &balanceModel{
		Merchant:  string(b.Merchant),
		Amount:    b.Amount.String(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func fromBalanceModel(m *balanceModel) (*merchant.Balance, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: merchant %s balance: %w", m.Merchant, err)
	}

	return &merchant.Balance{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Merchant: types.Address(m.Merchant),
		Amount:   amount,
	}, nil
}
