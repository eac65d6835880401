package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	vault "github.com/xraph/vault"
	"github.com/xraph/vault/config"
	"github.com/xraph/vault/merchant"
	vaultstore "github.com/xraph/vault/store"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

// compile-time interface check
var _ vaultstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("vault/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("vault/postgres: migration failed: %w", err)
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
	existing := new(configModel)
	err := s.pg.NewSelect(existing).
		Where("id = $1", configRowID).
		Scan(ctx)
	if err == nil {
		return vault.ErrAlreadyInitialized
	}
	if !isNoRows(err) {
		return err
	}

	_, err = s.pg.NewInsert(toConfigModel(c)).Exec(ctx)
	return err
}

func (s *Store) GetConfig(ctx context.Context) (*config.Config, error) {
	m := new(configModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", configRowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vault.ErrNotInitialized
		}
		return nil, err
	}
	return fromConfigModel(m), nil
}

func (s *Store) NextSubscriptionID(ctx context.Context) (uint64, error) {
	for {
		m := new(configModel)
		err := s.pg.NewSelect(m).
			Where("id = $1", configRowID).
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				return 0, vault.ErrNotInitialized
			}
			return 0, err
		}

		res, err := s.pg.NewUpdate((*configModel)(nil)).
			Set("next_id = $1", m.NextID+1).
			Set("updated_at = $2", now()).
			Where("id = $3", configRowID).
			Where("next_id = $4", m.NextID).
			Exec(ctx)
		if err != nil {
			return 0, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if rows > 0 {
			return uint64(m.NextID), nil
		}
		// lost an allocation race to a concurrent caller, retry
	}
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", int64(subID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, vault.ErrNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return vault.ErrNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models)

	arg := 1
	if opts.Status != "" {
		q = q.Where(fmt.Sprintf("status = $%d", arg), string(opts.Status))
		arg++
	}
	if opts.Subscriber != "" {
		q = q.Where(fmt.Sprintf("subscriber = $%d", arg), string(opts.Subscriber))
		arg++
	}
	if opts.Merchant != "" {
		q = q.Where(fmt.Sprintf("merchant = $%d", arg), string(opts.Merchant))
		arg++
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	m := new(balanceModel)
	err := s.pg.NewSelect(m).
		Where("merchant = $1", string(merchantAddr)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return &merchant.Balance{Merchant: merchantAddr}, nil
		}
		return nil, err
	}
	return fromBalanceModel(m)
}

func (s *Store) PutMerchantBalance(ctx context.Context, b *merchant.Balance) error {
	m := toBalanceModel(b)
	m.UpdatedAt = now()

	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListMerchantBalances(ctx context.Context) ([]*merchant.Balance, error) {
	var models []balanceModel
	q := s.pg.NewSelect(&models).OrderExpr("merchant ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
