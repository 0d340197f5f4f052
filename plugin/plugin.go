// Package plugin provides an extensible plugin system for tierledger.
// Plugins can hook into lifecycle and domain events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnTierChanged is called after a points purchase commits.
type OnTierChanged interface {
	Plugin
	OnTierChanged(ctx context.Context, r *receipt.Receipt) error
}

// OnTransitionRejected is called when a purchase is refused.
type OnTransitionRejected interface {
	Plugin
	OnTransitionRejected(ctx context.Context, userID int64, level tier.Level, days int, reason error) error
}

// OnTierOverridden is called after an administrative tier change.
type OnTierOverridden interface {
	Plugin
	OnTierOverridden(ctx context.Context, userID int64, from, to tier.Level, expiry *types.Date) error
}

// OnPointsGranted is called after a points credit or debit.
type OnPointsGranted interface {
	Plugin
	OnPointsGranted(ctx context.Context, userID int64, delta, balance int64) error
}

// ──────────────────────────────────────────────────
// Distribution hooks
// ──────────────────────────────────────────────────

// OnItemDelivered is called after a delivery is recorded.
type OnItemDelivered interface {
	Plugin
	OnItemDelivered(ctx context.Context, rec *delivery.Record, remaining int) error
}

// OnQuotaExceeded is called when a user hits the daily cap.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, userID int64, level tier.Level, limit int) error
}

// ──────────────────────────────────────────────────
// Catalog and feedback hooks
// ──────────────────────────────────────────────────

// OnCatalogSynced is called after a catalog synchronization pass.
type OnCatalogSynced interface {
	Plugin
	OnCatalogSynced(ctx context.Context, result catalog.SyncResult, elapsed time.Duration) error
}

// OnFeedbackRecorded is called after feedback is stored.
type OnFeedbackRecorded interface {
	Plugin
	OnFeedbackRecorded(ctx context.Context, f *feedback.Feedback) error
}
