package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/vault/config"
	"github.com/xraph/vault/event"
	"github.com/xraph/vault/plugin"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

// TokenClient moves tokens between the vault and external accounts. The
// engine never holds tokens itself; every deposit, refund, and payout is
// delegated to this client. Implementations must be synchronous: a nil
// return means the transfer settled.
type TokenClient interface {
	Transfer(ctx context.Context, from, to types.Address, amount types.Amount) error
}

// Authorizer proves that the caller controls a principal address. Mutating
// operations (except charging) require authorization from the affected
// party before any state is read or written.
type Authorizer interface {
	RequireAuth(ctx context.Context, principal types.Address) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, principal types.Address) error

// RequireAuth calls f.
func (f AuthorizerFunc) RequireAuth(ctx context.Context, principal types.Address) error {
	return f(ctx, principal)
}

// Clock reads the current ledger time in seconds. Charge due-ness and event
// timestamps are derived from it.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() uint64

// Now calls f.
func (f ClockFunc) Now() uint64 { return f() }

// Vault is the subscription custody engine. It keeps prepaid subscriber
// balances and accrued merchant balances in a Store, moves tokens through a
// TokenClient, and emits exactly one event per successful mutation.
type Vault struct {
	store   store.Store
	token   TokenClient
	auth    Authorizer
	clock   Clock
	plugins *plugin.Registry
	logger  *slog.Logger

	// addr is the principal under which the vault custodies tokens.
	addr types.Address
}

// New creates a new Vault instance. By default the engine trusts the host
// process to have authenticated callers; inject an Authorizer to enforce
// per-principal checks.
func New(s store.Store, token TokenClient, opts ...Option) *Vault {
	v := &Vault{
		store:   s,
		token:   token,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock: ClockFunc(func() uint64 {
			return uint64(time.Now().Unix())
		}),
		addr: types.Address("vault"),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Option configures a Vault instance.
type Option func(*Vault)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
		v.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(v *Vault) {
		_ = v.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAuthorizer sets the authorization backend.
func WithAuthorizer(a Authorizer) Option {
	return func(v *Vault) {
		v.auth = a
	}
}

// WithClock sets the ledger time source.
func WithClock(c Clock) Option {
	return func(v *Vault) {
		v.clock = c
	}
}

// WithAddress sets the custody address used as the counterparty on token
// transfers.
func WithAddress(addr types.Address) Option {
	return func(v *Vault) {
		v.addr = addr
	}
}

// Start migrates the store and initializes plugins.
func (v *Vault) Start(ctx context.Context) error {
	if err := v.store.Migrate(ctx); err != nil {
		return err
	}

	v.plugins.EmitInit(ctx, v)

	v.logger.Info("vault started",
		"address", v.addr,
		"plugins", v.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Vault.
func (v *Vault) Stop() error {
	v.plugins.EmitShutdown(context.Background())
	return v.store.Close()
}

// Address returns the vault's custody address.
func (v *Vault) Address() types.Address {
	return v.addr
}

// ──────────────────────────────────────────────────
// Initialization
// ──────────────────────────────────────────────────

// Init records the payment token and admin for this vault. It can succeed
// at most once; every other operation fails until it has.
func (v *Vault) Init(ctx context.Context, token, admin types.Address) error {
	if token.IsZero() {
		return fmt.Errorf("%w: token address is required", ErrInvalidArgument)
	}
	if admin.IsZero() {
		return fmt.Errorf("%w: admin address is required", ErrInvalidArgument)
	}

	cfg := &config.Config{
		Entity: types.NewEntity(),
		Token:  token,
		Admin:  admin,
	}
	if err := v.store.InitConfig(ctx, cfg); err != nil {
		return err
	}

	v.logger.Info("vault initialized", "token", token, "admin", admin)
	return nil
}

// ──────────────────────────────────────────────────
// Subscription Lifecycle
// ──────────────────────────────────────────────────

// CreateSubscription opens a new subscription from subscriber to merchant
// and returns its assigned ID. The subscription starts active with a zero
// prepaid balance; the first charge is allowed as soon as funds cover it.
func (v *Vault) CreateSubscription(ctx context.Context, subscriber, merchantAddr types.Address, amount types.Amount, intervalSeconds uint64, usageEnabled bool) (uint64, error) {
	if err := v.requireAuth(ctx, subscriber); err != nil {
		return 0, err
	}
	if _, err := v.store.GetConfig(ctx); err != nil {
		return 0, err
	}

	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if intervalSeconds == 0 {
		return 0, fmt.Errorf("%w: interval must be positive", ErrInvalidArgument)
	}

	subID, err := v.store.NextSubscriptionID(ctx)
	if err != nil {
		return 0, err
	}

	sub := &subscription.Subscription{
		Entity:          types.NewEntity(),
		ID:              subID,
		Subscriber:      subscriber,
		Merchant:        merchantAddr,
		Amount:          amount,
		IntervalSeconds: intervalSeconds,
		Status:          subscription.StatusActive,
		UsageEnabled:    usageEnabled,
	}
	if err := v.store.CreateSubscription(ctx, sub); err != nil {
		return 0, err
	}

	v.emit(ctx, &event.SubscriptionCreated{
		SubscriptionID:  subID,
		Subscriber:      subscriber,
		Merchant:        merchantAddr,
		Amount:          amount,
		IntervalSeconds: intervalSeconds,
	})

	v.logger.Info("subscription created",
		"subscription_id", subID,
		"subscriber", subscriber,
		"merchant", merchantAddr,
	)

	return subID, nil
}

// DepositFunds moves amount from the depositor into the subscription's
// prepaid balance. Any authorized party may fund a subscription while it is
// active or paused; cancelled subscriptions reject deposits.
func (v *Vault) DepositFunds(ctx context.Context, subID uint64, from types.Address, amount types.Amount) error {
	if err := v.requireAuth(ctx, from); err != nil {
		return err
	}
	if _, err := v.store.GetConfig(ctx); err != nil {
		return err
	}

	sub, err := v.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if !sub.CanDeposit() {
		return fmt.Errorf("%w: subscription %d is %s", ErrInvalidState, subID, sub.Status)
	}

	newBalance, err := sub.PrepaidBalance.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: prepaid balance", ErrArithmeticOverflow)
	}

	if err := v.token.Transfer(ctx, from, v.addr, amount); err != nil {
		return fmt.Errorf("deposit transfer: %w", err)
	}

	sub.PrepaidBalance = newBalance
	sub.Touch()
	if err := v.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	v.emit(ctx, &event.FundsDeposited{
		SubscriptionID: subID,
		Subscriber:     from,
		Amount:         amount,
		NewBalance:     newBalance,
	})

	v.logger.Debug("funds deposited",
		"subscription_id", subID,
		"amount", amount,
		"new_balance", newBalance,
	)

	return nil
}

// ChargeSubscription settles one billing period: it moves the subscription
// amount from the prepaid balance to the merchant's accrued balance and
// stamps the charge time. Anyone may call it; due-ness and funding are the
// only gates. The first charge of a subscription ignores the interval.
func (v *Vault) ChargeSubscription(ctx context.Context, subID uint64) error {
	if _, err := v.store.GetConfig(ctx); err != nil {
		return err
	}

	sub, err := v.store.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	if !sub.IsActive() {
		return fmt.Errorf("%w: subscription %d is %s", ErrInvalidState, subID, sub.Status)
	}
	if sub.PrepaidBalance.LessThan(sub.Amount) {
		return fmt.Errorf("%w: prepaid balance %s below charge amount %s", ErrInsufficientBalance, sub.PrepaidBalance, sub.Amount)
	}

	now := v.clock.Now()
	if !sub.ChargeDue(now) {
		return fmt.Errorf("%w: next charge at %d, now %d", ErrNotDue, sub.DueAt(), now)
	}

	newPrepaid, err := sub.PrepaidBalance.Sub(sub.Amount)
	if err != nil {
		return fmt.Errorf("%w: prepaid balance", ErrArithmeticOverflow)
	}

	bal, err := v.store.GetMerchantBalance(ctx, sub.Merchant)
	if err != nil {
		return err
	}
	newAccrued, err := bal.Amount.Add(sub.Amount)
	if err != nil {
		return fmt.Errorf("%w: merchant balance", ErrArithmeticOverflow)
	}

	sub.PrepaidBalance = newPrepaid
	sub.LastPaymentTimestamp = now
	sub.Touch()
	if bal.CreatedAt.IsZero() {
		bal.Entity = types.NewEntity()
	}
	bal.Amount = newAccrued
	bal.Touch()

	if err := v.store.ApplyCharge(ctx, sub, bal); err != nil {
		return err
	}

	v.emit(ctx, &event.SubscriptionCharged{
		SubscriptionID:   subID,
		Merchant:         sub.Merchant,
		Amount:           sub.Amount,
		RemainingBalance: newPrepaid,
	})

	v.logger.Info("subscription charged",
		"subscription_id", subID,
		"merchant", sub.Merchant,
		"amount", sub.Amount,
		"remaining_balance", newPrepaid,
	)

	return nil
}

// PauseSubscription suspends charging. Only the subscriber on record can
// pause, and only an active subscription.
func (v *Vault) PauseSubscription(ctx context.Context, subID uint64, authorizer types.Address) error {
	sub, err := v.gateLifecycle(ctx, subID, authorizer)
	if err != nil {
		return err
	}
	if sub.Status != subscription.StatusActive {
		return fmt.Errorf("%w: subscription %d is %s", ErrInvalidState, subID, sub.Status)
	}

	sub.Status = subscription.StatusPaused
	sub.Touch()
	if err := v.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	v.emit(ctx, &event.SubscriptionPaused{
		SubscriptionID: subID,
		Authorizer:     authorizer,
	})

	v.logger.Debug("subscription paused", "subscription_id", subID)
	return nil
}

// ResumeSubscription reactivates a paused subscription. The charge schedule
// is unchanged: periods that elapsed while paused are immediately due.
func (v *Vault) ResumeSubscription(ctx context.Context, subID uint64, authorizer types.Address) error {
	sub, err := v.gateLifecycle(ctx, subID, authorizer)
	if err != nil {
		return err
	}
	if sub.Status != subscription.StatusPaused {
		return fmt.Errorf("%w: subscription %d is %s", ErrInvalidState, subID, sub.Status)
	}

	sub.Status = subscription.StatusActive
	sub.Touch()
	if err := v.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	v.emit(ctx, &event.SubscriptionResumed{
		SubscriptionID: subID,
		Authorizer:     authorizer,
	})

	v.logger.Debug("subscription resumed", "subscription_id", subID)
	return nil
}

// CancelSubscription terminally closes a subscription and refunds the
// remaining prepaid balance to the subscriber. Cancelling an already
// cancelled subscription is a no-op that reports a zero refund.
func (v *Vault) CancelSubscription(ctx context.Context, subID uint64, authorizer types.Address) error {
	sub, err := v.gateLifecycle(ctx, subID, authorizer)
	if err != nil {
		return err
	}

	if sub.IsCancelled() {
		v.emit(ctx, &event.SubscriptionCancelled{
			SubscriptionID: subID,
			Authorizer:     authorizer,
			RefundAmount:   types.Amount{},
		})
		return nil
	}

	refund := sub.PrepaidBalance
	if refund.IsPositive() {
		if err := v.token.Transfer(ctx, v.addr, sub.Subscriber, refund); err != nil {
			return fmt.Errorf("refund transfer: %w", err)
		}
	}

	sub.PrepaidBalance = types.Amount{}
	sub.Status = subscription.StatusCancelled
	sub.Touch()
	if err := v.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	v.emit(ctx, &event.SubscriptionCancelled{
		SubscriptionID: subID,
		Authorizer:     authorizer,
		RefundAmount:   refund,
	})

	v.logger.Info("subscription cancelled",
		"subscription_id", subID,
		"refund_amount", refund,
	)

	return nil
}

// ──────────────────────────────────────────────────
// Merchant Settlement
// ──────────────────────────────────────────────────

// WithdrawMerchantFunds pays out part of a merchant's accrued balance. Only
// the merchant can withdraw, up to what charging has accrued for them.
func (v *Vault) WithdrawMerchantFunds(ctx context.Context, merchantAddr types.Address, amount types.Amount) error {
	if err := v.requireAuth(ctx, merchantAddr); err != nil {
		return err
	}
	if _, err := v.store.GetConfig(ctx); err != nil {
		return err
	}

	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	bal, err := v.store.GetMerchantBalance(ctx, merchantAddr)
	if err != nil {
		return err
	}
	if bal.Amount.LessThan(amount) {
		return fmt.Errorf("%w: merchant balance %s below withdrawal %s", ErrInsufficientBalance, bal.Amount, amount)
	}

	remaining, err := bal.Amount.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: merchant balance", ErrArithmeticOverflow)
	}

	if err := v.token.Transfer(ctx, v.addr, merchantAddr, amount); err != nil {
		return fmt.Errorf("withdrawal transfer: %w", err)
	}

	if bal.CreatedAt.IsZero() {
		bal.Entity = types.NewEntity()
	}
	bal.Amount = remaining
	bal.Touch()
	if err := v.store.PutMerchantBalance(ctx, bal); err != nil {
		return err
	}

	v.emit(ctx, &event.MerchantWithdrawal{
		Merchant:         merchantAddr,
		Amount:           amount,
		RemainingBalance: remaining,
	})

	v.logger.Info("merchant withdrawal",
		"merchant", merchantAddr,
		"amount", amount,
		"remaining_balance", remaining,
	)

	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetSubscription returns a subscription by ID.
func (v *Vault) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	if _, err := v.store.GetConfig(ctx); err != nil {
		return nil, err
	}
	return v.store.GetSubscription(ctx, subID)
}

// ListSubscriptions returns subscriptions matching the given filters.
func (v *Vault) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	if _, err := v.store.GetConfig(ctx); err != nil {
		return nil, err
	}
	return v.store.ListSubscriptions(ctx, opts)
}

// MerchantBalance returns the merchant's accrued balance. Merchants that
// were never charged for have a zero balance.
func (v *Vault) MerchantBalance(ctx context.Context, merchantAddr types.Address) (types.Amount, error) {
	if _, err := v.store.GetConfig(ctx); err != nil {
		return types.Amount{}, err
	}
	bal, err := v.store.GetMerchantBalance(ctx, merchantAddr)
	if err != nil {
		return types.Amount{}, err
	}
	return bal.Amount, nil
}

// Token returns the configured payment token address.
func (v *Vault) Token(ctx context.Context) (types.Address, error) {
	cfg, err := v.store.GetConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Token, nil
}

// Admin returns the configured admin address.
func (v *Vault) Admin(ctx context.Context) (types.Address, error) {
	cfg, err := v.store.GetConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Admin, nil
}

// TotalLiabilities returns the sum of all prepaid balances and accrued
// merchant balances, which should match the vault's token holdings.
func (v *Vault) TotalLiabilities(ctx context.Context) (types.Amount, error) {
	if _, err := v.store.GetConfig(ctx); err != nil {
		return types.Amount{}, err
	}

	subs, err := v.store.ListSubscriptions(ctx, subscription.ListOpts{})
	if err != nil {
		return types.Amount{}, err
	}
	balances, err := v.store.ListMerchantBalances(ctx)
	if err != nil {
		return types.Amount{}, err
	}

	amounts := make([]types.Amount, 0, len(subs)+len(balances))
	for _, sub := range subs {
		amounts = append(amounts, sub.PrepaidBalance)
	}
	for _, bal := range balances {
		amounts = append(amounts, bal.Amount)
	}

	total, err := types.SumAmounts(amounts...)
	if err != nil {
		return types.Amount{}, fmt.Errorf("%w: total liabilities", ErrArithmeticOverflow)
	}
	return total, nil
}

// ──────────────────────────────────────────────────
// Internal Helpers
// ──────────────────────────────────────────────────

// gateLifecycle performs the checks shared by pause, resume, and cancel:
// host authorization, vault initialization, subscription existence, and the
// authorizer matching the subscriber on record.
func (v *Vault) gateLifecycle(ctx context.Context, subID uint64, authorizer types.Address) (*subscription.Subscription, error) {
	if err := v.requireAuth(ctx, authorizer); err != nil {
		return nil, err
	}
	if _, err := v.store.GetConfig(ctx); err != nil {
		return nil, err
	}

	sub, err := v.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if authorizer != sub.Subscriber {
		return nil, fmt.Errorf("%w: only the subscriber can manage subscription %d", ErrUnauthorized, subID)
	}
	return sub, nil
}

func (v *Vault) requireAuth(ctx context.Context, principal types.Address) error {
	if v.auth == nil {
		return nil
	}
	if err := v.auth.RequireAuth(ctx, principal); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

func (v *Vault) emit(ctx context.Context, p event.Payload) {
	v.plugins.Emit(ctx, event.New(v.clock.Now(), p))
}
