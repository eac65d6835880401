// Package extension provides the Forge extension adapter for Vault.
//
// It implements the forge.Extension interface to integrate Vault
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.vault" or "vault" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	vault "github.com/xraph/vault"
	"github.com/xraph/vault/store"
	"github.com/xraph/vault/store/memory"
	"github.com/xraph/vault/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "vault"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Custodial subscription vault for pre-funded recurring payments"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Vault as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config    Config
	engine    *vault.Vault
	store     store.Store
	token     vault.TokenClient
	vaultOpts []vault.Option
}

// New creates a new Vault Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Vault instance.
// This is nil until Register is called.
func (e *Extension) Engine() *vault.Vault { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the vault engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.token == nil {
		return errors.New("vault: a token client is required; use WithTokenClient")
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts := e.buildVaultOpts()

	eng := vault.New(e.store, e.token, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*vault.Vault, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("vault: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("vault: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildVaultOpts constructs vault.Option values from the resolved config.
func (e *Extension) buildVaultOpts() []vault.Option {
	opts := make([]vault.Option, 0, len(e.vaultOpts)+1)

	if e.config.Address != "" {
		opts = append(opts, vault.WithAddress(types.Address(e.config.Address)))
	}

	// Append any pass-through vault options.
	opts = append(opts, e.vaultOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("vault: configuration is required but not found in config files; " +
				"ensure 'extensions.vault' or 'vault' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("vault: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("address", e.config.Address),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.vault" first (namespaced pattern).
	if cm.IsSet("extensions.vault") {
		if err := cm.Bind("extensions.vault", &cfg); err == nil {
			e.Logger().Debug("vault: loaded config from file",
				forge.F("key", "extensions.vault"),
			)
			return cfg, true
		}
		e.Logger().Warn("vault: failed to bind extensions.vault config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "vault" key.
	if cm.IsSet("vault") {
		if err := cm.Bind("vault", &cfg); err == nil {
			e.Logger().Debug("vault: loaded config from file",
				forge.F("key", "vault"),
			)
			return cfg, true
		}
		e.Logger().Warn("vault: failed to bind vault config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Address == "" && programmaticConfig.Address != "" {
		yamlConfig.Address = programmaticConfig.Address
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
