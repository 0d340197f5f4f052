package account

import (
	"time"

	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Account is a user's entitlement record: points balance and tier state.
type Account struct {
	types.Entity
	UserID     int64       `json:"user_id"`
	Points     int64       `json:"points"`
	Level      tier.Level  `json:"level"`
	StartDate  *types.Date `json:"start_date,omitempty"`
	ExpiryDate *types.Date `json:"expiry_date,omitempty"`
	// Version is bumped by the store on every successful write and guards
	// conditional updates.
	Version int64 `json:"version"`
}

// New returns a fresh level-0 account with no points.
func New(userID int64, now time.Time) *Account {
	return &Account{
		Entity: types.NewEntityAt(now),
		UserID: userID,
	}
}

// IsActive reports whether the account holds a paid tier that has not
// expired as of today. The expiry day itself still counts as active.
func (a *Account) IsActive(today types.Date) bool {
	return a.Level > tier.None && a.ExpiryDate != nil && !a.ExpiryDate.Before(today)
}

// RemainingDays returns the whole days left on an active tier, or zero.
func (a *Account) RemainingDays(today types.Date) int {
	if !a.IsActive(today) {
		return 0
	}
	return today.DaysUntil(*a.ExpiryDate)
}

// Clone returns a deep copy so callers can mutate without touching a shared value.
func (a *Account) Clone() *Account {
	c := *a
	if a.StartDate != nil {
		c.StartDate = a.StartDate.Ptr()
	}
	if a.ExpiryDate != nil {
		c.ExpiryDate = a.ExpiryDate.Ptr()
	}
	return &c
}
