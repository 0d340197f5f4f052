package audithook

// Action constants for audit events.
const (
	// Tier actions
	ActionTierRenewed        = "tier.renewed"
	ActionTierUpgraded       = "tier.upgraded"
	ActionTransitionRejected = "tier.rejected"
	ActionTierOverridden     = "tier.overridden"

	// Points actions
	ActionPointsGranted = "points.granted"
	ActionPointsDebited = "points.debited"

	// Distribution actions
	ActionItemDelivered = "item.delivered"
	ActionQuotaExceeded = "quota.exceeded"

	// Catalog actions
	ActionCatalogSynced = "catalog.synced"

	// Feedback actions
	ActionFeedbackRecorded = "feedback.recorded"
)

// Resource constants for audit events.
const (
	ResourceAccount  = "account"
	ResourceReceipt  = "receipt"
	ResourceItem     = "item"
	ResourceCatalog  = "catalog"
	ResourceFeedback = "feedback"
)

// Category constants for audit events.
const (
	CategoryBilling      = "billing"
	CategoryAdmin        = "admin"
	CategoryAccess       = "access"
	CategoryDistribution = "distribution"
	CategoryContent      = "content"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
