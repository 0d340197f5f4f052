package extension

import (
	"time"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/plugin"
	"github.com/xraph/tierledger/store"
)

// Option configures the tierledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the tierledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a tierledger.Option through to the underlying engine.
func WithLedgerOption(opt tierledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a tierledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, tierledger.WithPlugin(p))
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

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithPriceFile loads the price schedule from a YAML file.
func WithPriceFile(path string) Option {
	return func(e *Extension) { e.config.PriceFile = path }
}

// WithCatalogRoot sets the directory synchronized into the catalog.
// With syncOnStart the directory is scanned when the extension starts.
func WithCatalogRoot(root string, syncOnStart bool, exts ...string) Option {
	return func(e *Extension) {
		e.config.CatalogRoot = root
		e.config.SyncOnStart = syncOnStart
		if len(exts) > 0 {
			e.config.CatalogExtensions = exts
		}
	}
}

// WithTimezone sets the location whose midnight resets daily quotas.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}

// WithDefaultAdminDays sets the expiry granted by administrative level changes.
func WithDefaultAdminDays(days int) Option {
	return func(e *Extension) { e.config.DefaultAdminDays = days }
}

// WithMaxRetries bounds conflict retries per operation.
func WithMaxRetries(n int) Option {
	return func(e *Extension) { e.config.MaxRetries = n }
}

// WithCatalogCacheTTL sets how long the catalog ID list is cached.
func WithCatalogCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.CatalogCacheTTL = d }
}

// WithEnvironment replaces the process environment consulted for
// TIERLEDGER_* overrides.
func WithEnvironment(environ map[string]string) Option {
	return func(e *Extension) { e.environ = environ }
}
