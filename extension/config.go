package extension

import "time"

// Config holds the tierledger extension configuration.
// Fields can be set programmatically via Option functions, loaded from
// YAML configuration files (under "extensions.tierledger" or "tierledger"
// keys), and finally overridden by TIERLEDGER_* environment variables.
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate" env:"TIERLEDGER_DISABLE_MIGRATE"`

	// PriceFile is a YAML price schedule. Empty uses the built-in schedule.
	PriceFile string `json:"price_file" mapstructure:"price_file" yaml:"price_file" env:"TIERLEDGER_PRICE_FILE"`

	// CatalogRoot is the directory scanned into the content catalog.
	CatalogRoot string `json:"catalog_root" mapstructure:"catalog_root" yaml:"catalog_root" env:"TIERLEDGER_CATALOG_ROOT"`

	// CatalogExtensions lists the file extensions admitted by a scan
	// (default: catalog.DefaultExtensions).
	CatalogExtensions []string `json:"catalog_extensions" mapstructure:"catalog_extensions" yaml:"catalog_extensions" env:"TIERLEDGER_CATALOG_EXTS" envSeparator:","`

	// SyncOnStart scans CatalogRoot when the extension starts.
	SyncOnStart bool `json:"sync_on_start" mapstructure:"sync_on_start" yaml:"sync_on_start" env:"TIERLEDGER_SYNC_ON_START"`

	// Timezone names the location whose midnight resets daily quotas
	// (default: UTC).
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone" env:"TIERLEDGER_TIMEZONE"`

	// DefaultAdminDays is the expiry granted by an administrative level change
	// that does not keep the current expiry (default: 30).
	DefaultAdminDays int `json:"default_admin_days" mapstructure:"default_admin_days" yaml:"default_admin_days" env:"TIERLEDGER_ADMIN_DAYS"`

	// MaxRetries bounds conflict retries per operation (default: 3).
	MaxRetries int `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries" env:"TIERLEDGER_MAX_RETRIES"`

	// CatalogCacheTTL controls how long the item ID list is cached
	// (default: 5m).
	CatalogCacheTTL time.Duration `json:"catalog_cache_ttl" mapstructure:"catalog_cache_ttl" yaml:"catalog_cache_ttl" env:"TIERLEDGER_CATALOG_CACHE_TTL"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:         "UTC",
		DefaultAdminDays: 30,
		MaxRetries:       3,
		CatalogCacheTTL:  5 * time.Minute,
	}
}
