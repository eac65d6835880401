// Package types provides common types used across Vault.
package types

// Address identifies a principal: a subscriber, a merchant, the admin,
// or the token contract. The vault treats addresses as opaque: it never
// inspects their contents, only compares and stores them.
type Address string

// IsZero returns true for the empty address.
func (a Address) IsZero() bool { return a == "" }

// String returns the raw address string.
func (a Address) String() string { return string(a) }
