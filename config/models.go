// Package config defines the vault's singleton configuration record.
package config

import "github.com/xraph/vault/types"

// Config holds the addresses fixed at initialization: the fungible-token
// contract the vault custodies, and the admin principal. It is written
// exactly once.
type Config struct {
	types.Entity
	Token types.Address `json:"token"`
	Admin types.Address `json:"admin"`
}
