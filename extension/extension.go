// Package extension provides the Forge extension adapter for tierledger.
//
// It implements the forge.Extension interface to integrate tierledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions,
// via YAML configuration files under "extensions.tierledger" or "tierledger"
// keys, and via TIERLEDGER_* environment variables, in increasing order of
// precedence.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/store"
	"github.com/xraph/tierledger/store/memory"
	"github.com/xraph/tierledger/tier"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tierledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Points-funded VIP tiers with quota-gated content distribution"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts tierledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tierledger.Ledger
	store      store.Store
	ledgerOpts []tierledger.Option
	environ    map[string]string
}

// New creates a new tierledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *tierledger.Ledger { return e.engine }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	fileConfig, configLoaded := e.tryLoadFromConfigFile()
	if err := e.configure(fileConfig, configLoaded); err != nil {
		return err
	}

	e.Logger().Debug("tierledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("price_file", e.config.PriceFile),
		forge.F("catalog_root", e.config.CatalogRoot),
		forge.F("sync_on_start", e.config.SyncOnStart),
		forge.F("timezone", e.config.Timezone),
		forge.F("default_admin_days", e.config.DefaultAdminDays),
		forge.F("max_retries", e.config.MaxRetries),
		forge.F("catalog_cache_ttl", e.config.CatalogCacheTTL),
	)

	return vessel.Provide(fapp.Container(), func() (*tierledger.Ledger, error) {
		return e.engine, nil
	})
}

// configure resolves the configuration and builds the engine.
func (e *Extension) configure(fileConfig Config, configLoaded bool) error {
	cfg, err := resolveConfig(e.config, fileConfig, configLoaded, e.environ)
	if err != nil {
		return err
	}
	e.config = cfg

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}
	e.engine = tierledger.New(e.store, opts...)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if err := e.start(ctx); err != nil {
		return err
	}
	e.MarkStarted()
	return nil
}

func (e *Extension) start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tierledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	if e.config.SyncOnStart && e.config.CatalogRoot != "" {
		if _, err := e.engine.SyncCatalog(ctx, e.config.CatalogRoot, e.config.CatalogExtensions...); err != nil {
			return fmt.Errorf("tierledger: initial catalog sync: %w", err)
		}
	}
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
		return errors.New("tierledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs tierledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]tierledger.Option, error) {
	opts := make([]tierledger.Option, 0, len(e.ledgerOpts)+5)

	if e.config.PriceFile != "" {
		prices, err := tier.LoadPriceTableFile(e.config.PriceFile)
		if err != nil {
			return nil, fmt.Errorf("tierledger: load price file: %w", err)
		}
		opts = append(opts, tierledger.WithPriceTable(prices))
	}

	if e.config.Timezone != "" {
		loc, err := time.LoadLocation(e.config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("tierledger: timezone %q: %w", e.config.Timezone, err)
		}
		opts = append(opts, tierledger.WithLocation(loc))
	}

	opts = append(opts,
		tierledger.WithDefaultAdminDays(e.config.DefaultAdminDays),
		tierledger.WithMaxRetries(e.config.MaxRetries),
		tierledger.WithCatalogCache(tierledger.DefaultCatalogCacheSize, e.config.CatalogCacheTTL),
	)

	// Pass-through options win over config-derived ones.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tierledger" first (namespaced pattern).
	if cm.IsSet("extensions.tierledger") {
		if err := cm.Bind("extensions.tierledger", &cfg); err == nil {
			e.Logger().Debug("tierledger: loaded config from file",
				forge.F("key", "extensions.tierledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("tierledger: failed to bind extensions.tierledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "tierledger" key.
	if cm.IsSet("tierledger") {
		if err := cm.Bind("tierledger", &cfg); err == nil {
			e.Logger().Debug("tierledger: loaded config from file",
				forge.F("key", "tierledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("tierledger: failed to bind tierledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// resolveConfig merges file and programmatic configuration, applies
// environment overrides and fills the remaining zeros with defaults.
func resolveConfig(programmatic, file Config, loaded bool, environ map[string]string) (Config, error) {
	var cfg Config
	if !loaded {
		if programmatic.RequireConfig {
			return Config{}, errors.New("tierledger: configuration is required but not found in config files; " +
				"ensure 'extensions.tierledger' or 'tierledger' key exists in your config")
		}
		cfg = programmatic
	} else {
		cfg = mergeConfigurations(file, programmatic)
	}

	// Only variables that are present overwrite fields; a nil environ means
	// the process environment.
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("tierledger: parse env: %w", err)
	}

	return mergeWithDefaults(cfg), nil
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	if cfg.DefaultAdminDays == 0 {
		cfg.DefaultAdminDays = defaults.DefaultAdminDays
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.CatalogCacheTTL == 0 {
		cfg.CatalogCacheTTL = defaults.CatalogCacheTTL
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.SyncOnStart {
		yamlConfig.SyncOnStart = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.PriceFile == "" {
		yamlConfig.PriceFile = programmaticConfig.PriceFile
	}
	if yamlConfig.CatalogRoot == "" {
		yamlConfig.CatalogRoot = programmaticConfig.CatalogRoot
	}
	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if len(yamlConfig.CatalogExtensions) == 0 {
		yamlConfig.CatalogExtensions = programmaticConfig.CatalogExtensions
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.DefaultAdminDays == 0 {
		yamlConfig.DefaultAdminDays = programmaticConfig.DefaultAdminDays
	}
	if yamlConfig.MaxRetries == 0 {
		yamlConfig.MaxRetries = programmaticConfig.MaxRetries
	}
	if yamlConfig.CatalogCacheTTL == 0 {
		yamlConfig.CatalogCacheTTL = programmaticConfig.CatalogCacheTTL
	}

	return yamlConfig
}
