// Package audithook bridges Vault lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/vault/event"
	"github.com/xraph/vault/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated   = (*Extension)(nil)
	_ plugin.OnFundsDeposited        = (*Extension)(nil)
	_ plugin.OnSubscriptionCharged   = (*Extension)(nil)
	_ plugin.OnSubscriptionPaused    = (*Extension)(nil)
	_ plugin.OnSubscriptionResumed   = (*Extension)(nil)
	_ plugin.OnSubscriptionCancelled = (*Extension)(nil)
	_ plugin.OnMerchantWithdrawal    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Vault lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, p *event.SubscriptionCreated) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(p.SubscriptionID), CategorySubscription, nil,
		"subscriber", string(p.Subscriber),
		"merchant", string(p.Merchant),
		"amount", p.Amount.String(),
		"interval_seconds", p.IntervalSeconds,
	)
}

// OnSubscriptionPaused implements plugin.OnSubscriptionPaused.
func (e *Extension) OnSubscriptionPaused(ctx context.Context, p *event.SubscriptionPaused) error {
	return e.record(ctx, ActionSubscriptionPaused, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(p.SubscriptionID), CategorySubscription, nil,
		"authorizer", string(p.Authorizer),
	)
}

// OnSubscriptionResumed implements plugin.OnSubscriptionResumed.
func (e *Extension) OnSubscriptionResumed(ctx context.Context, p *event.SubscriptionResumed) error {
	return e.record(ctx, ActionSubscriptionResumed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(p.SubscriptionID), CategorySubscription, nil,
		"authorizer", string(p.Authorizer),
	)
}

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (e *Extension) OnSubscriptionCancelled(ctx context.Context, p *event.SubscriptionCancelled) error {
	return e.record(ctx, ActionSubscriptionCancelled, SeverityWarning, OutcomeSuccess,
		ResourceSubscription, subID(p.SubscriptionID), CategorySubscription, nil,
		"authorizer", string(p.Authorizer),
		"refund_amount", p.RefundAmount.String(),
	)
}

// ──────────────────────────────────────────────────
// Funds movement hooks
// ──────────────────────────────────────────────────

// OnFundsDeposited implements plugin.OnFundsDeposited.
func (e *Extension) OnFundsDeposited(ctx context.Context, p *event.FundsDeposited) error {
	return e.record(ctx, ActionFundsDeposited, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(p.SubscriptionID), CategoryPayment, nil,
		"subscriber", string(p.Subscriber),
		"amount", p.Amount.String(),
		"new_balance", p.NewBalance.String(),
	)
}

// OnSubscriptionCharged implements plugin.OnSubscriptionCharged.
func (e *Extension) OnSubscriptionCharged(ctx context.Context, p *event.SubscriptionCharged) error {
	return e.record(ctx, ActionSubscriptionCharged, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subID(p.SubscriptionID), CategoryPayment, nil,
		"merchant", string(p.Merchant),
		"amount", p.Amount.String(),
		"remaining_balance", p.RemainingBalance.String(),
	)
}

// OnMerchantWithdrawal implements plugin.OnMerchantWithdrawal.
func (e *Extension) OnMerchantWithdrawal(ctx context.Context, p *event.MerchantWithdrawal) error {
	return e.record(ctx, ActionMerchantWithdrawal, SeverityInfo, OutcomeSuccess,
		ResourceMerchant, string(p.Merchant), CategoryPayment, nil,
		"amount", p.Amount.String(),
		"remaining_balance", p.RemainingBalance.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func subID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
