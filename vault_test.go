package vault_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	vault "github.com/xraph/vault"
	"github.com/xraph/vault/event"
	"github.com/xraph/vault/eventlog"
	"github.com/xraph/vault/store/memory"
	"github.com/xraph/vault/subscription"
	"github.com/xraph/vault/types"
)

const (
	tokenAddr = types.Address("token-contract")
	adminAddr = types.Address("admin")
	aliceAddr = types.Address("alice")
	acmeAddr  = types.Address("acme")
)

// Amounts from the reference scenarios: a 100-unit monthly charge with a
// 7-decimal token.
var (
	chargeAmount  = types.NewAmount(100_000_000_000)
	depositAmount = types.NewAmount(500_000_000_000)
	monthSeconds  = uint64(2_592_000)
)

type transfer struct {
	from, to types.Address
	amount   types.Amount
}

// fakeToken records transfers and can be made to fail.
type fakeToken struct {
	mu        sync.Mutex
	transfers []transfer
	failWith  error
}

func (f *fakeToken) Transfer(_ context.Context, from, to types.Address, amount types.Amount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.transfers = append(f.transfers, transfer{from: from, to: to, amount: amount})
	return nil
}

func (f *fakeToken) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

func (f *fakeToken) last() transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transfers[len(f.transfers)-1]
}

type harness struct {
	v     *vault.Vault
	token *fakeToken
	log   *eventlog.Log
	now   uint64
}

func (h *harness) advance(seconds uint64) { h.now += seconds }

// newTestVault builds a started, initialized vault on the memory store with
// a recording token client, a controllable clock, and an event recorder.
func newTestVault(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		token: &fakeToken{},
		log:   eventlog.New(),
		now:   1_700_000_000,
	}
	h.v = vault.New(memory.New(), h.token,
		vault.WithClock(vault.ClockFunc(func() uint64 { return h.now })),
		vault.WithPlugin(h.log),
	)

	ctx := context.Background()
	if err := h.v.Start(ctx); err != nil {
		t.Fatalf("start vault: %v", err)
	}
	t.Cleanup(func() { _ = h.v.Stop() })

	if err := h.v.Init(ctx, tokenAddr, adminAddr); err != nil {
		t.Fatalf("init vault: %v", err)
	}
	return h
}

func createSubscription(t *testing.T, h *harness) uint64 {
	t.Helper()
	id, err := h.v.CreateSubscription(context.Background(), aliceAddr, acmeAddr, chargeAmount, monthSeconds, false)
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return id
}

func deposit(t *testing.T, h *harness, id uint64, amount types.Amount) {
	t.Helper()
	if err := h.v.DepositFunds(context.Background(), id, aliceAddr, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func wantCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", code)
	}
	if got := vault.Code(err); got != code {
		t.Fatalf("expected code %d, got %d (%v)", code, got, err)
	}
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondInitRejected", func(t *testing.T) {
		h := newTestVault(t)
		err := h.v.Init(ctx, tokenAddr, adminAddr)
		wantCode(t, err, 409)
	})

	t.Run("OperationsBeforeInit", func(t *testing.T) {
		v := vault.New(memory.New(), &fakeToken{})
		if err := v.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
		defer v.Stop()

		_, err := v.CreateSubscription(ctx, aliceAddr, acmeAddr, chargeAmount, monthSeconds, false)
		wantCode(t, err, 410)

		wantCode(t, v.DepositFunds(ctx, 1, aliceAddr, chargeAmount), 410)
		wantCode(t, v.ChargeSubscription(ctx, 1), 410)
		wantCode(t, v.PauseSubscription(ctx, 1, aliceAddr), 410)
		wantCode(t, v.ResumeSubscription(ctx, 1, aliceAddr), 410)
		wantCode(t, v.CancelSubscription(ctx, 1, aliceAddr), 410)
		wantCode(t, v.WithdrawMerchantFunds(ctx, acmeAddr, chargeAmount), 410)

		_, err = v.GetSubscription(ctx, 1)
		wantCode(t, err, 410)
	})

	t.Run("ConfigReadable", func(t *testing.T) {
		h := newTestVault(t)
		token, err := h.v.Token(ctx)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if token != tokenAddr {
			t.Errorf("token = %q, want %q", token, tokenAddr)
		}
		admin, err := h.v.Admin(ctx)
		if err != nil {
			t.Fatalf("admin: %v", err)
		}
		if admin != adminAddr {
			t.Errorf("admin = %q, want %q", admin, adminAddr)
		}
	})
}

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsSequentialIDs", func(t *testing.T) {
		h := newTestVault(t)
		first := createSubscription(t, h)
		second := createSubscription(t, h)
		if first != 1 || second != 2 {
			t.Errorf("ids = %d, %d, want 1, 2", first, second)
		}
	})

	t.Run("InitialState", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		sub, err := h.v.GetSubscription(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if sub.Status != subscription.StatusActive {
			t.Errorf("status = %q, want active", sub.Status)
		}
		if !sub.PrepaidBalance.IsZero() {
			t.Errorf("prepaid balance = %s, want 0", sub.PrepaidBalance)
		}
		if sub.LastPaymentTimestamp != 0 {
			t.Errorf("last payment = %d, want 0", sub.LastPaymentTimestamp)
		}
		if h.token.count() != 0 {
			t.Errorf("create moved %d transfers, want 0", h.token.count())
		}
	})

	t.Run("EmitsEvent", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		e := h.log.Last()
		if e == nil || e.Topic != event.TopicSubscriptionCreated {
			t.Fatalf("last event = %+v, want sub_new", e)
		}
		p, ok := e.Payload.(*event.SubscriptionCreated)
		if !ok {
			t.Fatalf("payload type = %T", e.Payload)
		}
		if p.SubscriptionID != id || p.Subscriber != aliceAddr || p.Merchant != acmeAddr {
			t.Errorf("payload = %+v", p)
		}
		if !p.Amount.Equal(chargeAmount) || p.IntervalSeconds != monthSeconds {
			t.Errorf("payload terms = %s / %d", p.Amount, p.IntervalSeconds)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		h := newTestVault(t)

		_, err := h.v.CreateSubscription(ctx, aliceAddr, acmeAddr, types.Amount{}, monthSeconds, false)
		wantCode(t, err, 400)

		_, err = h.v.CreateSubscription(ctx, aliceAddr, acmeAddr, types.NewAmount(-1), monthSeconds, false)
		wantCode(t, err, 400)

		_, err = h.v.CreateSubscription(ctx, aliceAddr, acmeAddr, chargeAmount, 0, false)
		wantCode(t, err, 400)

		if h.log.Len() != 0 {
			t.Errorf("failed creates emitted %d events", h.log.Len())
		}
	})
}

func TestDepositFunds(t *testing.T) {
	ctx := context.Background()

	t.Run("MovesTokensAndCredits", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)

		sub, err := h.v.GetSubscription(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !sub.PrepaidBalance.Equal(depositAmount) {
			t.Errorf("prepaid balance = %s, want %s", sub.PrepaidBalance, depositAmount)
		}

		tr := h.token.last()
		if tr.from != aliceAddr || tr.to != h.v.Address() || !tr.amount.Equal(depositAmount) {
			t.Errorf("transfer = %+v", tr)
		}

		e := h.log.Last()
		p, ok := e.Payload.(*event.FundsDeposited)
		if !ok || e.Topic != event.TopicFundsDeposited {
			t.Fatalf("last event = %+v", e)
		}
		if p.SubscriptionID != id || p.Subscriber != aliceAddr || !p.NewBalance.Equal(depositAmount) {
			t.Errorf("payload = %+v", p)
		}
	})

	t.Run("Accumulates", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, chargeAmount)
		deposit(t, h, id, chargeAmount)

		sub, _ := h.v.GetSubscription(ctx, id)
		want := types.NewAmount(200_000_000_000)
		if !sub.PrepaidBalance.Equal(want) {
			t.Errorf("prepaid balance = %s, want %s", sub.PrepaidBalance, want)
		}
	})

	t.Run("PausedAcceptsDeposits", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("pause: %v", err)
		}
		if err := h.v.DepositFunds(ctx, id, aliceAddr, chargeAmount); err != nil {
			t.Errorf("deposit to paused: %v", err)
		}
	})

	t.Run("CancelledRejectsDeposits", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		wantCode(t, h.v.DepositFunds(ctx, id, aliceAddr, chargeAmount), 403)
	})

	t.Run("Validation", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		wantCode(t, h.v.DepositFunds(ctx, 999, aliceAddr, chargeAmount), 404)
		wantCode(t, h.v.DepositFunds(ctx, id, aliceAddr, types.Amount{}), 400)
		wantCode(t, h.v.DepositFunds(ctx, id, aliceAddr, types.NewAmount(-5)), 400)
	})

	t.Run("TransferFailureLeavesStateUntouched", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		before := h.log.Len()

		h.token.failWith = errors.New("token contract reverted")
		if err := h.v.DepositFunds(ctx, id, aliceAddr, chargeAmount); err == nil {
			t.Fatal("expected deposit to fail")
		}
		h.token.failWith = nil

		sub, _ := h.v.GetSubscription(ctx, id)
		if !sub.PrepaidBalance.IsZero() {
			t.Errorf("prepaid balance = %s after failed transfer", sub.PrepaidBalance)
		}
		if h.log.Len() != before {
			t.Errorf("failed deposit emitted an event")
		}
	})
}

func TestChargeSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstChargeIgnoresInterval", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)

		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Fatalf("charge: %v", err)
		}

		sub, _ := h.v.GetSubscription(ctx, id)
		wantRemaining := types.NewAmount(400_000_000_000)
		if !sub.PrepaidBalance.Equal(wantRemaining) {
			t.Errorf("prepaid balance = %s, want %s", sub.PrepaidBalance, wantRemaining)
		}
		if sub.LastPaymentTimestamp != h.now {
			t.Errorf("last payment = %d, want %d", sub.LastPaymentTimestamp, h.now)
		}

		bal, err := h.v.MerchantBalance(ctx, acmeAddr)
		if err != nil {
			t.Fatalf("merchant balance: %v", err)
		}
		if !bal.Equal(chargeAmount) {
			t.Errorf("merchant balance = %s, want %s", bal, chargeAmount)
		}

		e := h.log.Last()
		p, ok := e.Payload.(*event.SubscriptionCharged)
		if !ok || e.Topic != event.TopicSubscriptionCharged {
			t.Fatalf("last event = %+v", e)
		}
		if p.Merchant != acmeAddr || !p.Amount.Equal(chargeAmount) || !p.RemainingBalance.Equal(wantRemaining) {
			t.Errorf("payload = %+v", p)
		}
	})

	t.Run("ChargeMovesNoTokens", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)

		before := h.token.count()
		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Fatalf("charge: %v", err)
		}
		if h.token.count() != before {
			t.Errorf("charge moved tokens; internal transfers only")
		}
	})

	t.Run("SecondChargeNotDue", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)

		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Fatalf("first charge: %v", err)
		}
		wantCode(t, h.v.ChargeSubscription(ctx, id), 405)

		h.advance(monthSeconds - 1)
		wantCode(t, h.v.ChargeSubscription(ctx, id), 405)

		h.advance(1)
		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Errorf("charge at due time: %v", err)
		}
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, types.NewAmount(50_000_000_000))
		before := h.log.Len()

		wantCode(t, h.v.ChargeSubscription(ctx, id), 402)

		sub, _ := h.v.GetSubscription(ctx, id)
		if !sub.PrepaidBalance.Equal(types.NewAmount(50_000_000_000)) {
			t.Errorf("prepaid balance changed on failed charge")
		}
		if sub.LastPaymentTimestamp != 0 {
			t.Errorf("last payment stamped on failed charge")
		}
		if h.log.Len() != before {
			t.Errorf("failed charge emitted an event")
		}
	})

	t.Run("PreconditionOrder", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		// Unknown id is checked before anything else.
		wantCode(t, h.v.ChargeSubscription(ctx, 999), 404)

		// A paused, underfunded subscription reports the state error.
		if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("pause: %v", err)
		}
		wantCode(t, h.v.ChargeSubscription(ctx, id), 403)
		if err := h.v.ResumeSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("resume: %v", err)
		}

		// An underfunded, not-yet-due subscription reports the balance error.
		deposit(t, h, id, depositAmount)
		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Fatalf("charge: %v", err)
		}
		// Drain: 4 more charges empty the balance.
		for i := 0; i < 4; i++ {
			h.advance(monthSeconds)
			if err := h.v.ChargeSubscription(ctx, id); err != nil {
				t.Fatalf("drain charge %d: %v", i, err)
			}
		}
		wantCode(t, h.v.ChargeSubscription(ctx, id), 402)
	})

	t.Run("CancelledNotChargeable", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)
		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		wantCode(t, h.v.ChargeSubscription(ctx, id), 403)
	})

	t.Run("NoCallerAuthRequired", func(t *testing.T) {
		// Consent is captured at create/deposit time; charging only moves
		// already-custodied funds, so even a deny-all authorizer cannot
		// block it. Seed through a permissive engine sharing the store.
		s := memory.New()
		token := &fakeToken{}
		now := uint64(1_700_000_000)
		clock := vault.ClockFunc(func() uint64 { return now })

		seeder := vault.New(s, token, vault.WithClock(clock))
		if err := seeder.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := seeder.Init(ctx, tokenAddr, adminAddr); err != nil {
			t.Fatalf("init: %v", err)
		}
		id, err := seeder.CreateSubscription(ctx, aliceAddr, acmeAddr, chargeAmount, monthSeconds, false)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := seeder.DepositFunds(ctx, id, aliceAddr, depositAmount); err != nil {
			t.Fatalf("deposit: %v", err)
		}

		denying := vault.New(s, token, vault.WithClock(clock),
			vault.WithAuthorizer(vault.AuthorizerFunc(func(context.Context, types.Address) error {
				return errors.New("denied")
			})),
		)

		wantCode(t, denying.DepositFunds(ctx, id, aliceAddr, chargeAmount), 401)
		if err := denying.ChargeSubscription(ctx, id); err != nil {
			t.Errorf("charge under deny-all authorizer: %v", err)
		}
	})
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()

	t.Run("Transitions", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("pause: %v", err)
		}
		sub, _ := h.v.GetSubscription(ctx, id)
		if sub.Status != subscription.StatusPaused {
			t.Errorf("status = %q, want paused", sub.Status)
		}
		e := h.log.Last()
		if e.Topic != event.TopicSubscriptionPaused {
			t.Errorf("topic = %q, want paused", e.Topic)
		}

		if err := h.v.ResumeSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("resume: %v", err)
		}
		sub, _ = h.v.GetSubscription(ctx, id)
		if sub.Status != subscription.StatusActive {
			t.Errorf("status = %q, want active", sub.Status)
		}
		if h.log.Last().Topic != event.TopicSubscriptionResumed {
			t.Errorf("topic = %q, want resumed", h.log.Last().Topic)
		}
	})

	t.Run("InvalidTransitions", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		wantCode(t, h.v.ResumeSubscription(ctx, id, aliceAddr), 403)

		if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("pause: %v", err)
		}
		wantCode(t, h.v.PauseSubscription(ctx, id, aliceAddr), 403)

		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		wantCode(t, h.v.PauseSubscription(ctx, id, aliceAddr), 403)
		wantCode(t, h.v.ResumeSubscription(ctx, id, aliceAddr), 403)
	})

	t.Run("OnlySubscriber", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		wantCode(t, h.v.PauseSubscription(ctx, id, acmeAddr), 401)
		if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("pause: %v", err)
		}
		wantCode(t, h.v.ResumeSubscription(ctx, id, acmeAddr), 401)
	})

	t.Run("ScheduleUnchangedByPause", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)
		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Fatalf("charge: %v", err)
		}

		if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("pause: %v", err)
		}
		h.advance(monthSeconds)
		if err := h.v.ResumeSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("resume: %v", err)
		}

		// The elapsed period is immediately chargeable after resume.
		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Errorf("charge after resume: %v", err)
		}
	})
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("RefundsPrepaidBalance", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)

		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		tr := h.token.last()
		if tr.from != h.v.Address() || tr.to != aliceAddr || !tr.amount.Equal(depositAmount) {
			t.Errorf("refund transfer = %+v", tr)
		}

		sub, _ := h.v.GetSubscription(ctx, id)
		if sub.Status != subscription.StatusCancelled {
			t.Errorf("status = %q, want cancelled", sub.Status)
		}
		if !sub.PrepaidBalance.IsZero() {
			t.Errorf("prepaid balance = %s, want 0", sub.PrepaidBalance)
		}

		p, ok := h.log.Last().Payload.(*event.SubscriptionCancelled)
		if !ok {
			t.Fatalf("payload type = %T", h.log.Last().Payload)
		}
		if !p.RefundAmount.Equal(depositAmount) || p.Authorizer != aliceAddr {
			t.Errorf("payload = %+v", p)
		}
	})

	t.Run("SecondCancelIsNoOp", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)

		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		transfers := h.token.count()

		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("second cancel: %v", err)
		}
		if h.token.count() != transfers {
			t.Errorf("second cancel moved tokens")
		}

		p, ok := h.log.Last().Payload.(*event.SubscriptionCancelled)
		if !ok {
			t.Fatalf("payload type = %T", h.log.Last().Payload)
		}
		if !p.RefundAmount.IsZero() {
			t.Errorf("second cancel refund = %s, want 0", p.RefundAmount)
		}
	})

	t.Run("ZeroBalanceSkipsTransfer", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)

		if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if h.token.count() != 0 {
			t.Errorf("cancel with empty balance moved tokens")
		}
	})

	t.Run("OnlySubscriber", func(t *testing.T) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		wantCode(t, h.v.CancelSubscription(ctx, id, acmeAddr), 401)
		wantCode(t, h.v.CancelSubscription(ctx, 999, aliceAddr), 404)
	})
}

func TestWithdrawMerchantFunds(t *testing.T) {
	ctx := context.Background()

	chargedVault := func(t *testing.T) (*harness, uint64) {
		h := newTestVault(t)
		id := createSubscription(t, h)
		deposit(t, h, id, depositAmount)
		if err := h.v.ChargeSubscription(ctx, id); err != nil {
			t.Fatalf("charge: %v", err)
		}
		return h, id
	}

	t.Run("PaysOut", func(t *testing.T) {
		h, _ := chargedVault(t)
		part := types.NewAmount(40_000_000_000)

		if err := h.v.WithdrawMerchantFunds(ctx, acmeAddr, part); err != nil {
			t.Fatalf("withdraw: %v", err)
		}

		tr := h.token.last()
		if tr.from != h.v.Address() || tr.to != acmeAddr || !tr.amount.Equal(part) {
			t.Errorf("transfer = %+v", tr)
		}

		bal, _ := h.v.MerchantBalance(ctx, acmeAddr)
		wantRemaining := types.NewAmount(60_000_000_000)
		if !bal.Equal(wantRemaining) {
			t.Errorf("merchant balance = %s, want %s", bal, wantRemaining)
		}

		p, ok := h.log.Last().Payload.(*event.MerchantWithdrawal)
		if !ok || h.log.Last().Topic != event.TopicMerchantWithdrawal {
			t.Fatalf("last event = %+v", h.log.Last())
		}
		if p.Merchant != acmeAddr || !p.Amount.Equal(part) || !p.RemainingBalance.Equal(wantRemaining) {
			t.Errorf("payload = %+v", p)
		}
	})

	t.Run("ExceedsBalance", func(t *testing.T) {
		h, _ := chargedVault(t)
		before := h.log.Len()

		wantCode(t, h.v.WithdrawMerchantFunds(ctx, acmeAddr, types.NewAmount(200_000_000_000)), 402)

		bal, _ := h.v.MerchantBalance(ctx, acmeAddr)
		if !bal.Equal(chargeAmount) {
			t.Errorf("merchant balance changed on failed withdrawal")
		}
		if h.log.Len() != before {
			t.Errorf("failed withdrawal emitted an event")
		}
	})

	t.Run("UnknownMerchantHasZeroBalance", func(t *testing.T) {
		h := newTestVault(t)
		wantCode(t, h.v.WithdrawMerchantFunds(ctx, types.Address("nobody"), types.NewAmount(1)), 402)
	})

	t.Run("Validation", func(t *testing.T) {
		h, _ := chargedVault(t)
		wantCode(t, h.v.WithdrawMerchantFunds(ctx, acmeAddr, types.Amount{}), 400)
		wantCode(t, h.v.WithdrawMerchantFunds(ctx, acmeAddr, types.NewAmount(-1)), 400)
	})
}

func TestAuthorizerGate(t *testing.T) {
	ctx := context.Background()

	t.Run("DeniedPrincipalAborts", func(t *testing.T) {
		denied := types.Address("mallory")
		auth := vault.AuthorizerFunc(func(_ context.Context, principal types.Address) error {
			if principal == denied {
				return errors.New("no proof of key possession")
			}
			return nil
		})

		v := vault.New(memory.New(), &fakeToken{}, vault.WithAuthorizer(auth))
		if err := v.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
		defer v.Stop()
		if err := v.Init(ctx, tokenAddr, adminAddr); err != nil {
			t.Fatalf("init: %v", err)
		}

		_, err := v.CreateSubscription(ctx, denied, acmeAddr, chargeAmount, monthSeconds, false)
		wantCode(t, err, 401)

		// Other principals are unaffected.
		if _, err := v.CreateSubscription(ctx, aliceAddr, acmeAddr, chargeAmount, monthSeconds, false); err != nil {
			t.Errorf("create as alice: %v", err)
		}

		wantCode(t, v.WithdrawMerchantFunds(ctx, denied, chargeAmount), 401)
	})
}

func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newTestVault(t)

	id := createSubscription(t, h)
	deposit(t, h, id, depositAmount)
	if err := h.v.ChargeSubscription(ctx, id); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if err := h.v.WithdrawMerchantFunds(ctx, acmeAddr, chargeAmount); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := h.v.PauseSubscription(ctx, id, aliceAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := h.v.ResumeSubscription(ctx, id, aliceAddr); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := h.v.CancelSubscription(ctx, id, aliceAddr); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	wantTopics := []event.Topic{
		event.TopicSubscriptionCreated,
		event.TopicFundsDeposited,
		event.TopicSubscriptionCharged,
		event.TopicMerchantWithdrawal,
		event.TopicSubscriptionPaused,
		event.TopicSubscriptionResumed,
		event.TopicSubscriptionCancelled,
	}
	topics := h.log.Topics()
	if len(topics) != len(wantTopics) {
		t.Fatalf("got %d events, want %d: %v", len(topics), len(wantTopics), topics)
	}
	for i, want := range wantTopics {
		if topics[i] != want {
			t.Errorf("event %d = %q, want %q", i, topics[i], want)
		}
	}

	events := h.log.All()
	withdrawal := events[3].Payload.(*event.MerchantWithdrawal)
	if !withdrawal.RemainingBalance.IsZero() {
		t.Errorf("withdrawal remaining = %s, want 0", withdrawal.RemainingBalance)
	}
	cancelled := events[6].Payload.(*event.SubscriptionCancelled)
	if !cancelled.RefundAmount.Equal(types.NewAmount(400_000_000_000)) {
		t.Errorf("refund = %s, want 400_000_000_000", cancelled.RefundAmount)
	}

	// Everything paid out or refunded: the vault owes nothing.
	total, err := h.v.TotalLiabilities(ctx)
	if err != nil {
		t.Fatalf("total liabilities: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("total liabilities = %s, want 0", total)
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	h := newTestVault(t)

	first := createSubscription(t, h)
	if err := h.v.PauseSubscription(ctx, first, aliceAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	second, err := h.v.CreateSubscription(ctx, types.Address("bob"), acmeAddr, chargeAmount, monthSeconds, true)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	t.Run("GetUnknown", func(t *testing.T) {
		_, err := h.v.GetSubscription(ctx, 999)
		wantCode(t, err, 404)
	})

	t.Run("ListAll", func(t *testing.T) {
		subs, err := h.v.ListSubscriptions(ctx, subscription.ListOpts{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("len = %d, want 2", len(subs))
		}
		if subs[0].ID != first || subs[1].ID != second {
			t.Errorf("order = %d, %d", subs[0].ID, subs[1].ID)
		}
	})

	t.Run("ListByStatus", func(t *testing.T) {
		subs, err := h.v.ListSubscriptions(ctx, subscription.ListOpts{Status: subscription.StatusPaused})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(subs) != 1 || subs[0].ID != first {
			t.Errorf("paused list = %+v", subs)
		}
	})

	t.Run("ListBySubscriber", func(t *testing.T) {
		subs, err := h.v.ListSubscriptions(ctx, subscription.ListOpts{Subscriber: types.Address("bob")})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(subs) != 1 || subs[0].ID != second {
			t.Errorf("bob's list = %+v", subs)
		}
	})

	t.Run("TotalLiabilities", func(t *testing.T) {
		deposit(t, h, second, depositAmount)
		total, err := h.v.TotalLiabilities(ctx)
		if err != nil {
			t.Fatalf("total: %v", err)
		}
		if !total.Equal(depositAmount) {
			t.Errorf("total = %s, want %s", total, depositAmount)
		}
	})
}
