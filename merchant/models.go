// Package merchant defines the merchant receipt ledger.
package merchant

import "github.com/xraph/vault/types"

// Balance is a merchant's undrawn receipts, accumulated across all of the
// merchant's subscriptions by successful charges and decremented by
// withdrawals. It never goes negative.
type Balance struct {
	types.Entity
	Merchant types.Address `json:"merchant"`
	Amount   types.Amount  `json:"amount"`
}
