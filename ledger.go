package tierledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/cache"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/plugin"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/store"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Defaults applied by New.
const (
	DefaultMaxRetries       = 3
	DefaultRetryInterval    = 5 * time.Millisecond
	DefaultAdminDays        = 30
	DefaultLongExpiryDays   = 30
	DefaultCatalogCacheSize = 16
	DefaultCatalogCacheTTL  = 5 * time.Minute
)

// Ledger is the entitlement and distribution engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	prices    *tier.PriceTable
	durations []int
	clock     func() time.Time
	location  *time.Location
	rng       RandomSource

	// Configuration
	maxRetries       int
	retryInterval    time.Duration
	defaultAdminDays int
	longExpiryDays   int

	catalogCache *cache.Cache[string, []id.ItemID]
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:            s,
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		prices:           tier.DefaultPriceTable(),
		clock:            time.Now,
		location:         time.Local,
		rng:              DefaultRandom(),
		maxRetries:       DefaultMaxRetries,
		retryInterval:    DefaultRetryInterval,
		defaultAdminDays: DefaultAdminDays,
		longExpiryDays:   DefaultLongExpiryDays,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.catalogCache == nil {
		l.catalogCache = cache.New[string, []id.ItemID]("catalog", DefaultCatalogCacheSize, DefaultCatalogCacheTTL)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPriceTable replaces the built-in price schedule.
func WithPriceTable(pt *tier.PriceTable) Option {
	return func(l *Ledger) {
		if pt != nil {
			l.prices = pt
		}
	}
}

// WithDurations restricts purchasable lengths to days, overriding the
// lengths implied by the price schedule.
func WithDurations(days ...int) Option {
	return func(l *Ledger) {
		l.durations = append([]int(nil), days...)
	}
}

// WithClock sets the time source. Calendar days are taken in the
// configured location.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithLocation sets the zone whose midnight starts a new quota day.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithRandom sets the source used to pick undelivered items.
func WithRandom(src RandomSource) Option {
	return func(l *Ledger) {
		if src != nil {
			l.rng = src
		}
	}
}

// WithMaxRetries sets how many times a conflicting write is retried.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithRetryInterval sets the initial pause between conflict retries.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithDefaultAdminDays sets the term granted when a level-only override
// falls back to setting an expiry.
func WithDefaultAdminDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.defaultAdminDays = days
		}
	}
}

// WithCatalogCache sets the size and TTL of the catalog ID cache.
func WithCatalogCache(size int, ttl time.Duration) Option {
	return func(l *Ledger) {
		l.catalogCache = cache.New[string, []id.ItemID]("catalog", size, ttl)
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("tierledger started",
		"durations", l.Durations(),
		"max_retries", l.maxRetries,
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Prices returns the active price schedule.
func (l *Ledger) Prices() *tier.PriceTable { return l.prices }

// Durations returns the purchasable lengths in days.
func (l *Ledger) Durations() []int {
	if len(l.durations) > 0 {
		return append([]int(nil), l.durations...)
	}
	return l.prices.Durations()
}

func (l *Ledger) allowsDuration(days int) bool {
	if len(l.durations) > 0 {
		for _, d := range l.durations {
			if d == days {
				return true
			}
		}
		return false
	}
	return l.prices.AllowsDuration(days)
}

// now returns the current instant in UTC.
func (l *Ledger) now() time.Time { return l.clock().UTC() }

// today returns the current calendar day in the configured location.
func (l *Ledger) today() types.Date {
	return types.DateOf(l.clock().In(l.location))
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// Profile is a read-only view of an account as of today.
type Profile struct {
	UserID        int64       `json:"user_id"`
	Points        int64       `json:"points"`
	Level         tier.Level  `json:"level"`
	Active        bool        `json:"active"`
	RemainingDays int         `json:"remaining_days"`
	StartDate     *types.Date `json:"start_date,omitempty"`
	ExpiryDate    *types.Date `json:"expiry_date,omitempty"`
	DailyCap      int         `json:"daily_cap"`
}

// EnsureAccount returns the user's account, creating a level-0 account with
// no points on first contact.
func (l *Ledger) EnsureAccount(ctx context.Context, userID int64) (*account.Account, error) {
	a, err := l.store.GetAccount(ctx, userID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	a = account.New(userID, l.now())
	if err := l.store.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return l.store.GetAccount(ctx, userID)
		}
		return nil, err
	}

	l.logger.Debug("account created", "user_id", userID)
	return a, nil
}

// GetAccount returns the user's account or ErrUserNotFound.
func (l *Ledger) GetAccount(ctx context.Context, userID int64) (*account.Account, error) {
	return l.store.GetAccount(ctx, userID)
}

// GetProfile returns the user's tier status as of today.
func (l *Ledger) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	a, err := l.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := l.today()
	return &Profile{
		UserID:        a.UserID,
		Points:        a.Points,
		Level:         a.Level,
		Active:        a.IsActive(today),
		RemainingDays: a.RemainingDays(today),
		StartDate:     a.StartDate,
		ExpiryDate:    a.ExpiryDate,
		DailyCap:      tier.DailyCap(a.Level),
	}, nil
}

// Offers returns the purchase menu for the user.
func (l *Ledger) Offers(ctx context.Context, userID int64) ([]tier.Package, error) {
	a, err := l.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	all := l.prices.Offers(a.Level, a.IsActive(l.today()))
	out := all[:0]
	for _, p := range all {
		if l.allowsDuration(p.Days) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GrantPoints adds delta (which may be negative) to the user's balance.
// A debit larger than the balance fails with InsufficientBalanceError.
func (l *Ledger) GrantPoints(ctx context.Context, userID, delta int64) (*account.Account, error) {
	if delta == 0 {
		return nil, ValidationError{Field: "delta", Message: "must not be zero", Err: ErrInvalidInput}
	}

	a, err := l.mutateAccount(ctx, "grant_points", userID, true, func(a *account.Account, _ types.Date) error {
		if a.Points+delta < 0 {
			return &InsufficientBalanceError{Required: -delta, Available: a.Points}
		}
		a.Points += delta
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("points granted",
		"user_id", userID,
		"delta", delta,
		"balance", a.Points,
	)
	l.plugins.EmitPointsGranted(ctx, userID, delta, a.Points)
	return a, nil
}

// ──────────────────────────────────────────────────
// Receipts
// ──────────────────────────────────────────────────

// GetReceipt retrieves a receipt by ID.
func (l *Ledger) GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	return l.store.GetReceipt(ctx, receiptID)
}

// ListReceipts returns the user's purchase history, newest first.
func (l *Ledger) ListReceipts(ctx context.Context, userID int64, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return l.store.ListReceipts(ctx, userID, opts)
}
