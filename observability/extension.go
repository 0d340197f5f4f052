// Package observability provides a metrics extension for tierledger that
// records domain event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/plugin"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnTierChanged        = (*MetricsExtension)(nil)
	_ plugin.OnTransitionRejected = (*MetricsExtension)(nil)
	_ plugin.OnTierOverridden     = (*MetricsExtension)(nil)
	_ plugin.OnPointsGranted      = (*MetricsExtension)(nil)
	_ plugin.OnItemDelivered      = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded      = (*MetricsExtension)(nil)
	_ plugin.OnCatalogSynced      = (*MetricsExtension)(nil)
	_ plugin.OnFeedbackRecorded   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide domain metrics.
// Register it as a tierledger plugin to track purchases and distribution.
type MetricsExtension struct {
	factory MetricFactory

	// Tier metrics
	TierRenewed        Counter
	TierUpgraded       Counter
	PointsSpent        Counter
	PointsCredited     Counter
	TransitionRejected Counter
	InsufficientPoints Counter
	TierOverridden     Counter

	// Points metrics
	PointsGranted Counter
	PointsDebited Counter

	// Distribution metrics
	ItemsDelivered Counter
	QuotaExceeded  Counter
	QuotaRemaining Histogram

	// Catalog metrics
	CatalogInserted    Counter
	CatalogUpdated     Counter
	CatalogSyncLatency Histogram

	// Feedback metrics
	FeedbackLikes    Counter
	FeedbackDislikes Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory for a Prometheus-backed factory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TierRenewed:        factory.Counter("tierledger.tier.renewed"),
		TierUpgraded:       factory.Counter("tierledger.tier.upgraded"),
		PointsSpent:        factory.Counter("tierledger.tier.points_spent"),
		PointsCredited:     factory.Counter("tierledger.tier.points_credited"),
		TransitionRejected: factory.Counter("tierledger.tier.rejected"),
		InsufficientPoints: factory.Counter("tierledger.tier.insufficient_points"),
		TierOverridden:     factory.Counter("tierledger.tier.overridden"),

		PointsGranted: factory.Counter("tierledger.points.granted"),
		PointsDebited: factory.Counter("tierledger.points.debited"),

		ItemsDelivered: factory.Counter("tierledger.distribution.delivered"),
		QuotaExceeded:  factory.Counter("tierledger.distribution.quota_exceeded"),
		QuotaRemaining: factory.Histogram("tierledger.distribution.quota_remaining"),

		CatalogInserted:    factory.Counter("tierledger.catalog.inserted"),
		CatalogUpdated:     factory.Counter("tierledger.catalog.updated"),
		CatalogSyncLatency: factory.Histogram("tierledger.catalog.sync.latency_ms"),

		FeedbackLikes:    factory.Counter("tierledger.feedback.likes"),
		FeedbackDislikes: factory.Counter("tierledger.feedback.dislikes"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnTierChanged implements plugin.OnTierChanged.
func (m *MetricsExtension) OnTierChanged(_ context.Context, r *receipt.Receipt) error {
	switch r.Kind {
	case receipt.KindUpgrade:
		m.TierUpgraded.Inc()
	default:
		m.TierRenewed.Inc()
	}
	m.PointsSpent.Add(float64(r.PointsCharged))
	m.PointsCredited.Add(float64(r.CreditedFromPriorTier))
	return nil
}

// OnTransitionRejected implements plugin.OnTransitionRejected.
func (m *MetricsExtension) OnTransitionRejected(_ context.Context, _ int64, _ tier.Level, _ int, reason error) error {
	m.TransitionRejected.Inc()
	if errors.Is(reason, tierledger.ErrInsufficientBalance) {
		m.InsufficientPoints.Inc()
	}
	return nil
}

// OnTierOverridden implements plugin.OnTierOverridden.
func (m *MetricsExtension) OnTierOverridden(_ context.Context, _ int64, _, _ tier.Level, _ *types.Date) error {
	m.TierOverridden.Inc()
	return nil
}

// OnPointsGranted implements plugin.OnPointsGranted.
func (m *MetricsExtension) OnPointsGranted(_ context.Context, _ int64, delta, _ int64) error {
	if delta >= 0 {
		m.PointsGranted.Add(float64(delta))
	} else {
		m.PointsDebited.Add(float64(-delta))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Distribution hooks
// ──────────────────────────────────────────────────

// OnItemDelivered implements plugin.OnItemDelivered.
func (m *MetricsExtension) OnItemDelivered(_ context.Context, _ *delivery.Record, remaining int) error {
	m.ItemsDelivered.Inc()
	m.QuotaRemaining.Observe(float64(remaining))
	return nil
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ int64, _ tier.Level, _ int) error {
	m.QuotaExceeded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Catalog and feedback hooks
// ──────────────────────────────────────────────────

// OnCatalogSynced implements plugin.OnCatalogSynced.
func (m *MetricsExtension) OnCatalogSynced(_ context.Context, result catalog.SyncResult, elapsed time.Duration) error {
	m.CatalogInserted.Add(float64(result.Inserted))
	m.CatalogUpdated.Add(float64(result.Updated))
	m.CatalogSyncLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnFeedbackRecorded implements plugin.OnFeedbackRecorded.
func (m *MetricsExtension) OnFeedbackRecorded(_ context.Context, f *feedback.Feedback) error {
	if f.Value == feedback.Like {
		m.FeedbackLikes.Inc()
	} else {
		m.FeedbackDislikes.Inc()
	}
	return nil
}
