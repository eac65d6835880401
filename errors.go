package vault

import (
	"errors"
	"fmt"
)

// Error is a vault failure with a stable numeric code. Codes are part of
// the public surface; off-chain indexers and host integrations match on
// them, so they never change across releases.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vault: %s (code %d)", e.Message, e.Code)
}

// Sentinel errors for every vault failure kind.
var (
	// ErrInvalidArgument rejects non-positive amounts or intervals.
	ErrInvalidArgument = &Error{Code: 400, Message: "invalid argument"}

	// ErrUnauthorized rejects a subscriber-only operation whose authorizer
	// is not the subscription's subscriber.
	ErrUnauthorized = &Error{Code: 401, Message: "unauthorized"}

	// ErrInsufficientBalance rejects a charge or withdrawal that exceeds
	// the available balance.
	ErrInsufficientBalance = &Error{Code: 402, Message: "insufficient balance"}

	// ErrInvalidState rejects a lifecycle transition not permitted by the
	// subscription's current status.
	ErrInvalidState = &Error{Code: 403, Message: "invalid state"}

	// ErrNotFound rejects an operation on an unknown subscription id.
	ErrNotFound = &Error{Code: 404, Message: "subscription not found"}

	// ErrNotDue rejects a charge before a full interval has elapsed.
	ErrNotDue = &Error{Code: 405, Message: "charge not due"}

	// ErrAlreadyInitialized rejects a second Init call.
	ErrAlreadyInitialized = &Error{Code: 409, Message: "already initialized"}

	// ErrNotInitialized rejects any operation before Init.
	ErrNotInitialized = &Error{Code: 410, Message: "not initialized"}

	// ErrArithmeticOverflow reports an i128 overflow or underflow.
	ErrArithmeticOverflow = &Error{Code: 500, Message: "arithmetic overflow"}
)

// Code returns the stable numeric code carried by err, or 0 if err is not
// a vault error.
func Code(err error) int {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return 0
}

// IsNotFound returns true if the error reports an unknown subscription.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInsufficientBalance returns true if the error reports a balance shortfall.
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsAuthError returns true for authorization failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsStateError returns true for lifecycle failures: a transition the state
// machine forbids, a charge that is not yet due, or an uninitialized vault.
func IsStateError(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotDue) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrAlreadyInitialized)
}
