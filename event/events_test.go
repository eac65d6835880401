package event

import (
	"encoding/json"
	"testing"

	"github.com/xraph/vault/types"
)

func TestPayloadTopics(t *testing.T) {
	tests := []struct {
		payload Payload
		want    Topic
	}{
		{&SubscriptionCreated{}, "sub_new"},
		{&FundsDeposited{}, "deposit"},
		{&SubscriptionCharged{}, "charged"},
		{&SubscriptionPaused{}, "paused"},
		{&SubscriptionResumed{}, "resumed"},
		{&SubscriptionCancelled{}, "cancelled"},
		{&MerchantWithdrawal{}, "withdraw"},
	}

	for _, tt := range tests {
		if got := tt.payload.Topic(); got != tt.want {
			t.Errorf("%T.Topic() = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

// Indexers depend on the wire field names; a rename is a breaking change.
func TestPayloadWireFields(t *testing.T) {
	tests := []struct {
		name     string
		payload  Payload
		wantKeys []string
	}{
		{
			"SubscriptionCreated",
			&SubscriptionCreated{SubscriptionID: 1, Subscriber: "alice", Merchant: "acme", Amount: types.NewAmount(100), IntervalSeconds: 3600},
			[]string{"subscription_id", "subscriber", "merchant", "amount", "interval_seconds"},
		},
		{
			"FundsDeposited",
			&FundsDeposited{SubscriptionID: 1, Subscriber: "alice", Amount: types.NewAmount(5), NewBalance: types.NewAmount(5)},
			[]string{"subscription_id", "subscriber", "amount", "new_balance"},
		},
		{
			"SubscriptionCharged",
			&SubscriptionCharged{SubscriptionID: 1, Merchant: "acme", Amount: types.NewAmount(5), RemainingBalance: types.NewAmount(0)},
			[]string{"subscription_id", "merchant", "amount", "remaining_balance"},
		},
		{
			"SubscriptionCancelled",
			&SubscriptionCancelled{SubscriptionID: 1, Authorizer: "alice", RefundAmount: types.NewAmount(5)},
			[]string{"subscription_id", "authorizer", "refund_amount"},
		},
		{
			"MerchantWithdrawal",
			&MerchantWithdrawal{Merchant: "acme", Amount: types.NewAmount(5), RemainingBalance: types.NewAmount(0)},
			[]string{"merchant", "amount", "remaining_balance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.payload)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded map[string]json.RawMessage
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for _, key := range tt.wantKeys {
				if _, ok := decoded[key]; !ok {
					t.Errorf("missing wire field %q in %s", key, raw)
				}
			}
			if len(decoded) != len(tt.wantKeys) {
				t.Errorf("got %d fields, want %d: %s", len(decoded), len(tt.wantKeys), raw)
			}
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	e := New(12345, &SubscriptionPaused{SubscriptionID: 7, Authorizer: "alice"})

	if e.Topic != TopicSubscriptionPaused {
		t.Errorf("topic = %q, want paused", e.Topic)
	}
	if e.LedgerTime != 12345 {
		t.Errorf("ledger time = %d, want 12345", e.LedgerTime)
	}
	if e.ID.IsNil() {
		t.Error("envelope id not assigned")
	}

	other := New(12345, &SubscriptionPaused{SubscriptionID: 7, Authorizer: "alice"})
	if e.ID == other.ID {
		t.Error("envelope ids not unique")
	}
}
