// Package plugin provides an extensible plugin system for the vault.
// Plugins hook into lifecycle events: indexer sinks subscribe to the raw
// event stream, audit and metrics extensions subscribe to the transitions
// they care about.
package plugin

import (
	"context"

	"github.com/xraph/vault/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, vault interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Event stream hook
// ──────────────────────────────────────────────────

// OnEvent receives every emitted event in emission order. Indexer sinks
// implement this single hook instead of one interface per topic.
type OnEvent interface {
	Plugin
	OnEvent(ctx context.Context, e *event.Event) error
}

// ──────────────────────────────────────────────────
// Per-transition hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called after a sub_new event.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, p *event.SubscriptionCreated) error
}

// OnFundsDeposited is called after a deposit event.
type OnFundsDeposited interface {
	Plugin
	OnFundsDeposited(ctx context.Context, p *event.FundsDeposited) error
}

// OnSubscriptionCharged is called after a charged event.
type OnSubscriptionCharged interface {
	Plugin
	OnSubscriptionCharged(ctx context.Context, p *event.SubscriptionCharged) error
}

// OnSubscriptionPaused is called after a paused event.
type OnSubscriptionPaused interface {
	Plugin
	OnSubscriptionPaused(ctx context.Context, p *event.SubscriptionPaused) error
}

// OnSubscriptionResumed is called after a resumed event.
type OnSubscriptionResumed interface {
	Plugin
	OnSubscriptionResumed(ctx context.Context, p *event.SubscriptionResumed) error
}

// OnSubscriptionCancelled is called after a cancelled event.
type OnSubscriptionCancelled interface {
	Plugin
	OnSubscriptionCancelled(ctx context.Context, p *event.SubscriptionCancelled) error
}

// OnMerchantWithdrawal is called after a withdraw event.
type OnMerchantWithdrawal interface {
	Plugin
	OnMerchantWithdrawal(ctx context.Context, p *event.MerchantWithdrawal) error
}
