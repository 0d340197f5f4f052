// Package audithook bridges tierledger domain events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/plugin"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnTierChanged        = (*Extension)(nil)
	_ plugin.OnTransitionRejected = (*Extension)(nil)
	_ plugin.OnTierOverridden     = (*Extension)(nil)
	_ plugin.OnPointsGranted      = (*Extension)(nil)
	_ plugin.OnItemDelivered      = (*Extension)(nil)
	_ plugin.OnQuotaExceeded      = (*Extension)(nil)
	_ plugin.OnCatalogSynced      = (*Extension)(nil)
	_ plugin.OnFeedbackRecorded   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges tierledger domain events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnTierChanged implements plugin.OnTierChanged.
func (e *Extension) OnTierChanged(ctx context.Context, r *receipt.Receipt) error {
	action := ActionTierRenewed
	if r.Kind == receipt.KindUpgrade {
		action = ActionTierUpgraded
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, r.ID.String(), CategoryBilling, nil,
		"user_id", r.UserID,
		"from_level", int(r.PreviousLevel),
		"to_level", int(r.NewLevel),
		"days", r.Days,
		"points_charged", r.PointsCharged,
		"credited", r.CreditedFromPriorTier,
		"balance_after", r.BalanceAfter,
		"new_expiry", r.NewExpiry.String(),
	)
}

// OnTransitionRejected implements plugin.OnTransitionRejected.
func (e *Extension) OnTransitionRejected(ctx context.Context, userID int64, level tier.Level, days int, reason error) error {
	return e.record(ctx, ActionTransitionRejected, SeverityWarning, OutcomeFailure,
		ResourceAccount, userKey(userID), CategoryBilling, reason,
		"user_id", userID,
		"level", int(level),
		"days", days,
	)
}

// OnTierOverridden implements plugin.OnTierOverridden.
func (e *Extension) OnTierOverridden(ctx context.Context, userID int64, from, to tier.Level, expiry *types.Date) error {
	return e.record(ctx, ActionTierOverridden, SeverityWarning, OutcomeSuccess,
		ResourceAccount, userKey(userID), CategoryAdmin, nil,
		"user_id", userID,
		"from_level", int(from),
		"to_level", int(to),
		"expiry", types.DatePtrString(expiry),
	)
}

// OnPointsGranted implements plugin.OnPointsGranted.
func (e *Extension) OnPointsGranted(ctx context.Context, userID int64, delta, balance int64) error {
	action := ActionPointsGranted
	if delta < 0 {
		action = ActionPointsDebited
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceAccount, userKey(userID), CategoryBilling, nil,
		"user_id", userID,
		"delta", delta,
		"balance", balance,
	)
}

// ──────────────────────────────────────────────────
// Distribution hooks
// ──────────────────────────────────────────────────

// OnItemDelivered implements plugin.OnItemDelivered.
func (e *Extension) OnItemDelivered(ctx context.Context, rec *delivery.Record, remaining int) error {
	return e.record(ctx, ActionItemDelivered, SeverityInfo, OutcomeSuccess,
		ResourceItem, rec.ItemID.String(), CategoryDistribution, nil,
		"user_id", rec.UserID,
		"date", rec.Date.String(),
		"remaining", remaining,
	)
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (e *Extension) OnQuotaExceeded(ctx context.Context, userID int64, level tier.Level, limit int) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceAccount, userKey(userID), CategoryAccess, nil,
		"user_id", userID,
		"level", int(level),
		"limit", limit,
	)
}

// ──────────────────────────────────────────────────
// Catalog and feedback hooks
// ──────────────────────────────────────────────────

// OnCatalogSynced implements plugin.OnCatalogSynced.
func (e *Extension) OnCatalogSynced(ctx context.Context, result catalog.SyncResult, elapsed time.Duration) error {
	return e.record(ctx, ActionCatalogSynced, SeverityInfo, OutcomeSuccess,
		ResourceCatalog, "", CategoryContent, nil,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnFeedbackRecorded implements plugin.OnFeedbackRecorded.
func (e *Extension) OnFeedbackRecorded(ctx context.Context, f *feedback.Feedback) error {
	return e.record(ctx, ActionFeedbackRecorded, SeverityInfo, OutcomeSuccess,
		ResourceFeedback, f.ItemID.String(), CategoryContent, nil,
		"user_id", f.UserID,
		"value", int(f.Value),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
