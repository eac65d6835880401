package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	vault "github.com/xraph/vault"
	"github.com/xraph/vault/config"
	"github.com/xraph/vault/merchant"
	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

// Collection name constants.
const (
	colConfig           = "vault_config"
	colSubscriptions    = "vault_subscriptions"
	colMerchantBalances = "vault_merchant_balances"
)

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all vault collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("vault/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Config Store ====================

func (s *Store) InitConfig(ctx context.Context, c *config.Config) error {
	m := toConfigModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return vault.ErrAlreadyInitialized
		}
		return fmt.Errorf("vault/mongo: init config: %w", err)
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context) (*config.Config, error) {
	var m configModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": configDocID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vault.ErrNotInitialized
		}
		return nil, fmt.Errorf("vault/mongo: get config: %w", err)
	}
	return fromConfigModel(&m), nil
}

func (s *Store) NextSubscriptionID(ctx context.Context) (uint64, error) {
	// $inc on the singleton document allocates atomically; the pre-image
	// carries the id being issued.
	res := s.mdb.Collection(colConfig).FindOneAndUpdate(ctx,
		bson.M{"_id": configDocID},
		bson.M{
			"$inc": bson.M{"next_id": 1},
			"$set": bson.M{"updated_at": now()},
		},
	)

	var m configModel
	if err := res.Decode(&m); err != nil {
		if isNoDocuments(err) {
			return 0, vault.ErrNotInitialized
		}
		return 0, fmt.Errorf("vault/mongo: next subscription id: %w", err)
	}
	return uint64(m.NextID), nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(subID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, vault.ErrNotFound
		}
		return nil, fmt.Errorf("vault/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return vault.ErrNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Subscriber != "" {
		filter["subscriber"] = string(opts.Subscriber)
	}
	if opts.Merchant != "" {
		filter["merchant"] = string(opts.Merchant)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("vault/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Merchant Balance Store ====================

func (s *Store) GetMerchantBalance(ctx context.Context, merchantAddr types.Address) (*merchant.Balance, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": string(merchantAddr)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return &merchant.Balance{Merchant: merchantAddr}, nil
		}
		return nil, fmt.Errorf("vault/mongo: get merchant balance: %w", err)
	}
	return fromBalanceModel(&m)
}

func (s *Store) PutMerchantBalance(ctx context.Context, b *merchant.Balance) error {
	m := toBalanceModel(b)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Merchant}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.Merchant,
			"amount":     m.Amount,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("vault/mongo: put merchant balance: %w", err)
	}
	return nil
}

func (s *Store) ListMerchantBalances(ctx context.Context) ([]*merchant.Balance, error) {
	var models []balanceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault/mongo: list merchant balances: %w", err)
	}

	result := make([]*merchant.Balance, len(models))
	for i := range models {
		bal, err := fromBalanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = bal
	}
	return result, nil
}

// ApplyCharge writes the debited subscription and the credited merchant
// balance.
func (s *Store) ApplyCharge(ctx context.Context, sub *subscription.Subscription, b *merchant.Balance) error {
	if err := s.UpdateSubscription(ctx, sub); err != nil {
		return err
	}
	return s.PutMerchantBalance(ctx, b)
}

func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all vault collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colConfig: {},
		colSubscriptions: {
			{Keys: bson.D{{Key: "subscriber", Value: 1}}},
			{Keys: bson.D{{Key: "merchant", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colMerchantBalances: {
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
	}
}
