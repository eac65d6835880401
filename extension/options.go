package extension

import (
	vault "github.com/xraph/vault"
	"github.com/xraph/vault/plugin"
	"github.com/xraph/vault/store"
)

// Option configures the Vault Forge extension.
type Option func(*Extension)

// WithStore sets the store for the vault engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTokenClient sets the token client used to move funds. Required.
func WithTokenClient(tc vault.TokenClient) Option {
	return func(e *Extension) {
		e.token = tc
	}
}

// WithVaultOption passes a vault.Option through to the underlying engine.
func WithVaultOption(opt vault.Option) Option {
	return func(e *Extension) {
		e.vaultOpts = append(e.vaultOpts, opt)
	}
}

// WithPlugin registers a vault plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.vaultOpts = append(e.vaultOpts, vault.WithPlugin(p))
	}
}

// WithAuthorizer sets the authorization backend for the engine.
func WithAuthorizer(a vault.Authorizer) Option {
	return func(e *Extension) {
		e.vaultOpts = append(e.vaultOpts, vault.WithAuthorizer(a))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithAddress sets the vault custody address.
func WithAddress(addr string) Option {
	return func(e *Extension) { e.config.Address = addr }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
