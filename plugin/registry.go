package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/vault/event"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onEvent                 []OnEvent
	onSubscriptionCreated   []OnSubscriptionCreated
	onFundsDeposited        []OnFundsDeposited
	onSubscriptionCharged   []OnSubscriptionCharged
	onSubscriptionPaused    []OnSubscriptionPaused
	onSubscriptionResumed   []OnSubscriptionResumed
	onSubscriptionCancelled []OnSubscriptionCancelled
	onMerchantWithdrawal    []OnMerchantWithdrawal
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEvent); ok {
		r.onEvent = append(r.onEvent, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnFundsDeposited); ok {
		r.onFundsDeposited = append(r.onFundsDeposited, v)
	}
	if v, ok := p.(OnSubscriptionCharged); ok {
		r.onSubscriptionCharged = append(r.onSubscriptionCharged, v)
	}
	if v, ok := p.(OnSubscriptionPaused); ok {
		r.onSubscriptionPaused = append(r.onSubscriptionPaused, v)
	}
	if v, ok := p.(OnSubscriptionResumed); ok {
		r.onSubscriptionResumed = append(r.onSubscriptionResumed, v)
	}
	if v, ok := p.(OnSubscriptionCancelled); ok {
		r.onSubscriptionCancelled = append(r.onSubscriptionCancelled, v)
	}
	if v, ok := p.(OnMerchantWithdrawal); ok {
		r.onMerchantWithdrawal = append(r.onMerchantWithdrawal, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, vault interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, vault)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// Emit dispatches an event to the catch-all OnEvent hooks, then to the
// topic-specific hooks for its payload type.
func (r *Registry) Emit(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	onEvent := r.onEvent
	r.mu.RUnlock()

	for _, p := range onEvent {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEvent(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnEvent failed",
				"plugin", p.Name(),
				"topic", e.Topic,
				"error", err,
			)
		}
	}

	switch payload := e.Payload.(type) {
	case *event.SubscriptionCreated:
		r.emitSubscriptionCreated(ctx, payload)
	case *event.FundsDeposited:
		r.emitFundsDeposited(ctx, payload)
	case *event.SubscriptionCharged:
		r.emitSubscriptionCharged(ctx, payload)
	case *event.SubscriptionPaused:
		r.emitSubscriptionPaused(ctx, payload)
	case *event.SubscriptionResumed:
		r.emitSubscriptionResumed(ctx, payload)
	case *event.SubscriptionCancelled:
		r.emitSubscriptionCancelled(ctx, payload)
	case *event.MerchantWithdrawal:
		r.emitMerchantWithdrawal(ctx, payload)
	}
}

func (r *Registry) emitSubscriptionCreated(ctx context.Context, p *event.SubscriptionCreated) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnSubscriptionCreated(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitFundsDeposited(ctx context.Context, p *event.FundsDeposited) {
	r.mu.RLock()
	plugins := r.onFundsDeposited
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnFundsDeposited(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnFundsDeposited failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitSubscriptionCharged(ctx context.Context, p *event.SubscriptionCharged) {
	r.mu.RLock()
	plugins := r.onSubscriptionCharged
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnSubscriptionCharged(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCharged failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitSubscriptionPaused(ctx context.Context, p *event.SubscriptionPaused) {
	r.mu.RLock()
	plugins := r.onSubscriptionPaused
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnSubscriptionPaused(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionPaused failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitSubscriptionResumed(ctx context.Context, p *event.SubscriptionResumed) {
	r.mu.RLock()
	plugins := r.onSubscriptionResumed
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnSubscriptionResumed(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionResumed failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitSubscriptionCancelled(ctx context.Context, p *event.SubscriptionCancelled) {
	r.mu.RLock()
	plugins := r.onSubscriptionCancelled
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnSubscriptionCancelled(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCancelled failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitMerchantWithdrawal(ctx context.Context, p *event.MerchantWithdrawal) {
	r.mu.RLock()
	plugins := r.onMerchantWithdrawal
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnMerchantWithdrawal(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnMerchantWithdrawal failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the vault pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
