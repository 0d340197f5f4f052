package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// DefaultTimeout bounds every plugin hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onTierChanged        []OnTierChanged
	onTransitionRejected []OnTransitionRejected
	onTierOverridden     []OnTierOverridden
	onPointsGranted      []OnPointsGranted
	onItemDelivered      []OnItemDelivered
	onQuotaExceeded      []OnQuotaExceeded
	onCatalogSynced      []OnCatalogSynced
	onFeedbackRecorded   []OnFeedbackRecorded
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTierChanged); ok {
		r.onTierChanged = append(r.onTierChanged, v)
	}
	if v, ok := p.(OnTransitionRejected); ok {
		r.onTransitionRejected = append(r.onTransitionRejected, v)
	}
	if v, ok := p.(OnTierOverridden); ok {
		r.onTierOverridden = append(r.onTierOverridden, v)
	}
	if v, ok := p.(OnPointsGranted); ok {
		r.onPointsGranted = append(r.onPointsGranted, v)
	}
	if v, ok := p.(OnItemDelivered); ok {
		r.onItemDelivered = append(r.onItemDelivered, v)
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
	}
	if v, ok := p.(OnCatalogSynced); ok {
		r.onCatalogSynced = append(r.onCatalogSynced, v)
	}
	if v, ok := p.(OnFeedbackRecorded); ok {
		r.onFeedbackRecorded = append(r.onFeedbackRecorded, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTierChanged)(nil)).Elem(), "OnTierChanged")
	checkInterface(reflect.TypeOf((*OnTransitionRejected)(nil)).Elem(), "OnTransitionRejected")
	checkInterface(reflect.TypeOf((*OnTierOverridden)(nil)).Elem(), "OnTierOverridden")
	checkInterface(reflect.TypeOf((*OnPointsGranted)(nil)).Elem(), "OnPointsGranted")
	checkInterface(reflect.TypeOf((*OnItemDelivered)(nil)).Elem(), "OnItemDelivered")
	checkInterface(reflect.TypeOf((*OnQuotaExceeded)(nil)).Elem(), "OnQuotaExceeded")
	checkInterface(reflect.TypeOf((*OnCatalogSynced)(nil)).Elem(), "OnCatalogSynced")
	checkInterface(reflect.TypeOf((*OnFeedbackRecorded)(nil)).Elem(), "OnFeedbackRecorded")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p.Name(), func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p.Name(), func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitTierChanged emits a committed purchase.
func (r *Registry) EmitTierChanged(ctx context.Context, rc *receipt.Receipt) {
	r.mu.RLock()
	plugins := r.onTierChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnTierChanged", p.Name(), func() error {
			return p.OnTierChanged(ctx, rc)
		})
	}
}

// EmitTransitionRejected emits a refused purchase.
func (r *Registry) EmitTransitionRejected(ctx context.Context, userID int64, level tier.Level, days int, reason error) {
	r.mu.RLock()
	plugins := r.onTransitionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnTransitionRejected", p.Name(), func() error {
			return p.OnTransitionRejected(ctx, userID, level, days, reason)
		})
	}
}

// EmitTierOverridden emits an administrative tier change.
func (r *Registry) EmitTierOverridden(ctx context.Context, userID int64, from, to tier.Level, expiry *types.Date) {
	r.mu.RLock()
	plugins := r.onTierOverridden
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnTierOverridden", p.Name(), func() error {
			return p.OnTierOverridden(ctx, userID, from, to, expiry)
		})
	}
}

// EmitPointsGranted emits a points adjustment.
func (r *Registry) EmitPointsGranted(ctx context.Context, userID int64, delta, balance int64) {
	r.mu.RLock()
	plugins := r.onPointsGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnPointsGranted", p.Name(), func() error {
			return p.OnPointsGranted(ctx, userID, delta, balance)
		})
	}
}

// EmitItemDelivered emits a recorded delivery.
func (r *Registry) EmitItemDelivered(ctx context.Context, rec *delivery.Record, remaining int) {
	r.mu.RLock()
	plugins := r.onItemDelivered
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnItemDelivered", p.Name(), func() error {
			return p.OnItemDelivered(ctx, rec, remaining)
		})
	}
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, userID int64, level tier.Level, limit int) {
	r.mu.RLock()
	plugins := r.onQuotaExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnQuotaExceeded", p.Name(), func() error {
			return p.OnQuotaExceeded(ctx, userID, level, limit)
		})
	}
}

// EmitCatalogSynced emits the outcome of a catalog sync.
func (r *Registry) EmitCatalogSynced(ctx context.Context, result catalog.SyncResult, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onCatalogSynced
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnCatalogSynced", p.Name(), func() error {
			return p.OnCatalogSynced(ctx, result, elapsed)
		})
	}
}

// EmitFeedbackRecorded emits stored feedback.
func (r *Registry) EmitFeedbackRecorded(ctx context.Context, f *feedback.Feedback) {
	r.mu.RLock()
	plugins := r.onFeedbackRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnFeedbackRecorded", p.Name(), func() error {
			return p.OnFeedbackRecorded(ctx, f)
		})
	}
}

// dispatch runs one hook and logs its failure. Hook errors never reach the caller.
func (r *Registry) dispatch(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the request path.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
