// Package vault provides a custodial subscription vault for pre-funded
// recurring payments.
//
// Vault is designed as a library, not a service. Import it directly into your
// Go application. Subscribers pre-fund a per-subscription balance held by the
// vault; anyone may then settle a due billing period, moving the subscription
// amount into the merchant's accrued balance, which the merchant withdraws at
// their leisure. It provides:
//
//   - A three-state subscription machine (active, paused, cancelled)
//   - Signed 128-bit integer balances with checked arithmetic
//   - Exactly one typed event per successful mutation, for indexers
//   - Pluggable token transfer and authorization backends
//   - Memory, SQLite, PostgreSQL and MongoDB stores via Grove ORM
//   - Lifecycle plugins for audit trails and metrics
//
// # Quick Start
//
// Create a vault instance with your preferred store and a token client:
//
//	import (
//	    "github.com/xraph/vault"
//	    "github.com/xraph/vault/store/memory"
//	)
//
//	v := vault.New(memory.New(), tokenClient)
//
//	if err := v.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Stop()
//
//	if err := v.Init(ctx, tokenAddr, adminAddr); err != nil {
//	    log.Fatal(err)
//	}
//
// # Core Concepts
//
// Subscriptions connect a subscriber to a merchant for a fixed amount per
// interval:
//
//	id, err := v.CreateSubscription(ctx, subscriber, merchant, amount, 2592000, false)
//
// Deposits pre-fund the subscription; charges settle due periods:
//
//	err = v.DepositFunds(ctx, id, subscriber, deposit)
//	err = v.ChargeSubscription(ctx, id)
//
// Merchants withdraw what charging accrued for them:
//
//	err = v.WithdrawMerchantFunds(ctx, merchant, amount)
//
// # Arithmetic
//
// All balances use the signed 128-bit integer Amount type with explicit
// overflow checking. There is no floating point anywhere in the money path;
// amounts are carried as decimal strings across process and storage
// boundaries.
//
// # Events
//
// Every successful mutation emits exactly one event. Register a plugin to
// receive them:
//
//	log := eventlog.New()
//	v := vault.New(store, tokenClient, vault.WithPlugin(log))
//
// Failed operations emit nothing, so an indexer replaying the event stream
// reconstructs exactly the balances the vault holds.
package vault
