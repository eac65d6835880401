// Package observability provides a metrics extension for Vault that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"strconv"

	"github.com/xraph/vault/event"
	"github.com/xraph/vault/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated   = (*MetricsExtension)(nil)
	_ plugin.OnFundsDeposited        = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCharged   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionPaused    = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionResumed   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCancelled = (*MetricsExtension)(nil)
	_ plugin.OnMerchantWithdrawal    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Vault plugin to automatically track payment metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionCreated   Counter
	SubscriptionPaused    Counter
	SubscriptionResumed   Counter
	SubscriptionCancelled Counter

	// Funds metrics
	Deposits         Counter
	Charges          Counter
	Withdrawals      Counter
	Refunds          Counter
	DepositAmount    Histogram
	ChargeAmount     Histogram
	WithdrawalAmount Histogram
	RefundAmount     Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Subscription metrics
		SubscriptionCreated:   factory.Counter("vault.subscription.created"),
		SubscriptionPaused:    factory.Counter("vault.subscription.paused"),
		SubscriptionResumed:   factory.Counter("vault.subscription.resumed"),
		SubscriptionCancelled: factory.Counter("vault.subscription.cancelled"),

		// Funds metrics
		Deposits:         factory.Counter("vault.funds.deposits"),
		Charges:          factory.Counter("vault.funds.charges"),
		Withdrawals:      factory.Counter("vault.funds.withdrawals"),
		Refunds:          factory.Counter("vault.funds.refunds"),
		DepositAmount:    factory.Histogram("vault.funds.deposit_amount"),
		ChargeAmount:     factory.Histogram("vault.funds.charge_amount"),
		WithdrawalAmount: factory.Histogram("vault.funds.withdrawal_amount"),
		RefundAmount:     factory.Histogram("vault.funds.refund_amount"),

		// Error metrics
		StoreErrors:  factory.Counter("vault.store.errors"),
		PluginErrors: factory.Counter("vault.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ *event.SubscriptionCreated) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnSubscriptionPaused implements plugin.OnSubscriptionPaused.
func (m *MetricsExtension) OnSubscriptionPaused(_ context.Context, _ *event.SubscriptionPaused) error {
	m.SubscriptionPaused.Inc()
	return nil
}

// OnSubscriptionResumed implements plugin.OnSubscriptionResumed.
func (m *MetricsExtension) OnSubscriptionResumed(_ context.Context, _ *event.SubscriptionResumed) error {
	m.SubscriptionResumed.Inc()
	return nil
}

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (m *MetricsExtension) OnSubscriptionCancelled(_ context.Context, p *event.SubscriptionCancelled) error {
	m.SubscriptionCancelled.Inc()
	if p.RefundAmount.IsPositive() {
		m.Refunds.Inc()
		m.RefundAmount.Observe(amountValue(p.RefundAmount.String()))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Funds movement hooks
// ──────────────────────────────────────────────────

// OnFundsDeposited implements plugin.OnFundsDeposited.
func (m *MetricsExtension) OnFundsDeposited(_ context.Context, p *event.FundsDeposited) error {
	m.Deposits.Inc()
	m.DepositAmount.Observe(amountValue(p.Amount.String()))
	return nil
}

// OnSubscriptionCharged implements plugin.OnSubscriptionCharged.
func (m *MetricsExtension) OnSubscriptionCharged(_ context.Context, p *event.SubscriptionCharged) error {
	m.Charges.Inc()
	m.ChargeAmount.Observe(amountValue(p.Amount.String()))
	return nil
}

// OnMerchantWithdrawal implements plugin.OnMerchantWithdrawal.
func (m *MetricsExtension) OnMerchantWithdrawal(_ context.Context, p *event.MerchantWithdrawal) error {
	m.Withdrawals.Inc()
	m.WithdrawalAmount.Observe(amountValue(p.Amount.String()))
	return nil
}

// amountValue converts a decimal amount string for histogram observation.
// Precision loss above 2^53 is acceptable for metrics.
func amountValue(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
