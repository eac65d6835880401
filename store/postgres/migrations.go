package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Vault store.
var Migrations = migrate.NewGroup("vault")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_vault_config",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_config (
    id         BIGINT PRIMARY KEY CHECK (id = 1),
    token      TEXT NOT NULL DEFAULT '',
    admin      TEXT NOT NULL DEFAULT '',
    next_id    BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_config`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_subscriptions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_subscriptions (
    id                     BIGINT PRIMARY KEY,
    subscriber             TEXT NOT NULL DEFAULT '',
    merchant               TEXT NOT NULL DEFAULT '',
    amount                 NUMERIC(39,0) NOT NULL DEFAULT 0,
    interval_seconds       BIGINT NOT NULL DEFAULT 0,
    last_payment_timestamp BIGINT NOT NULL DEFAULT 0,
    status                 TEXT NOT NULL DEFAULT 'active',
    prepaid_balance        NUMERIC(39,0) NOT NULL DEFAULT 0,
    usage_enabled          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vault_subs_subscriber ON vault_subscriptions (subscriber);
CREATE INDEX IF NOT EXISTS idx_vault_subs_merchant ON vault_subscriptions (merchant);
CREATE INDEX IF NOT EXISTS idx_vault_subs_status ON vault_subscriptions (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_vault_merchant_balances",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vault_merchant_balances (
    merchant   TEXT PRIMARY KEY,
    amount     NUMERIC(39,0) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vault_merchant_balances`)
				return err
			},
		},
	)
}
