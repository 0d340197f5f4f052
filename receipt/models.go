package receipt

import (
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Kind distinguishes the two purchase paths.
type Kind string

const (
	KindRenew   Kind = "renew"
	KindUpgrade Kind = "upgrade"
)

// Receipt is the committed outcome of a tier purchase.
type Receipt struct {
	types.Entity
	ID             id.ReceiptID `json:"id"`
	UserID         int64        `json:"user_id"`
	Kind           Kind         `json:"kind"`
	PreviousLevel  tier.Level   `json:"previous_level"`
	NewLevel       tier.Level   `json:"new_level"`
	Days           int          `json:"days"`
	PreviousExpiry *types.Date  `json:"previous_expiry,omitempty"`
	NewExpiry      types.Date   `json:"new_expiry"`
	PointsCharged  int64        `json:"points_charged"`
	// CreditedFromPriorTier is the trade-in value of the unexpired tier.
	// Always zero for renewals.
	CreditedFromPriorTier int64 `json:"credited_from_prior_tier"`
	BalanceAfter          int64 `json:"balance_after"`
}
