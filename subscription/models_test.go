package subscription

import (
	"math"
	"testing"
)

func TestStatusValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusActive, true},
		{StatusPaused, true},
		{StatusCancelled, true},
		{Status(""), false},
		{Status("canceled"), false},
		{Status("ACTIVE"), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		status     Status
		active     bool
		cancelled  bool
		canDeposit bool
	}{
		{StatusActive, true, false, true},
		{StatusPaused, false, false, true},
		{StatusCancelled, false, true, false},
	}

	for _, tt := range tests {
		s := &Subscription{Status: tt.status}
		if s.IsActive() != tt.active {
			t.Errorf("%q IsActive = %v", tt.status, s.IsActive())
		}
		if s.IsCancelled() != tt.cancelled {
			t.Errorf("%q IsCancelled = %v", tt.status, s.IsCancelled())
		}
		if s.CanDeposit() != tt.canDeposit {
			t.Errorf("%q CanDeposit = %v", tt.status, s.CanDeposit())
		}
	}
}

func TestDueAt(t *testing.T) {
	tests := []struct {
		name     string
		last     uint64
		interval uint64
		want     uint64
	}{
		{"NeverCharged", 0, 3600, 0},
		{"OnePeriodOut", 1000, 3600, 4600},
		{"OverflowSaturates", math.MaxUint64 - 10, 3600, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Subscription{LastPaymentTimestamp: tt.last, IntervalSeconds: tt.interval}
			if got := s.DueAt(); got != tt.want {
				t.Errorf("DueAt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChargeDue(t *testing.T) {
	tests := []struct {
		name     string
		last     uint64
		interval uint64
		now      uint64
		want     bool
	}{
		{"FirstChargeAlwaysDue", 0, 3600, 0, true},
		{"FirstChargeDueAtAnyTime", 0, 3600, 1, true},
		{"BeforeInterval", 1000, 3600, 4599, false},
		{"ExactlyAtInterval", 1000, 3600, 4600, true},
		{"PastInterval", 1000, 3600, 10_000, true},
		{"SaturatedNeverDue", math.MaxUint64 - 10, 3600, math.MaxUint64 - 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Subscription{LastPaymentTimestamp: tt.last, IntervalSeconds: tt.interval}
			if got := s.ChargeDue(tt.now); got != tt.want {
				t.Errorf("ChargeDue(%d) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
