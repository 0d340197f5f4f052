package tierledger

import (
	"context"
	"fmt"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Override is the outcome of an administrative tier change.
type Override struct {
	ID             id.OverrideID `json:"id"`
	UserID         int64         `json:"user_id"`
	PreviousLevel  tier.Level    `json:"previous_level"`
	NewLevel       tier.Level    `json:"new_level"`
	PreviousExpiry *types.Date   `json:"previous_expiry,omitempty"`
	NewExpiry      *types.Date   `json:"new_expiry,omitempty"`
	// ExpiryKept is set when an existing later expiry was left in place.
	ExpiryKept bool `json:"expiry_kept"`
}

// AdminSetLevelAndExpiry sets userID's level without touching points. Level 0
// cancels the tier and clears the expiry. Otherwise the expiry becomes today
// plus days, unless an active tier already runs past that date, in which case
// the later expiry is kept and only the level changes.
func (l *Ledger) AdminSetLevelAndExpiry(ctx context.Context, userID int64, level tier.Level, days int) (*Override, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if level != tier.None && days <= 0 {
		return nil, fmt.Errorf("%w: %d days", ErrInvalidDuration, days)
	}

	return l.override(ctx, "admin_set_level_and_expiry", userID, func(a *account.Account, today types.Date) bool {
		return setLevelAndExpiry(a, level, days, today)
	})
}

// AdminSetLevelPreservingLongExpiry changes only the level when userID holds
// an active tier with at least 30 days left. Otherwise it behaves like
// AdminSetLevelAndExpiry with the configured default term.
func (l *Ledger) AdminSetLevelPreservingLongExpiry(ctx context.Context, userID int64, level tier.Level) (*Override, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	return l.override(ctx, "admin_set_level_preserving_expiry", userID, func(a *account.Account, today types.Date) bool {
		if a.IsActive(today) && a.RemainingDays(today) >= l.longExpiryDays {
			a.Level = level
			return true
		}
		return setLevelAndExpiry(a, level, l.defaultAdminDays, today)
	})
}

// override commits fn against the account and reports the change. fn returns
// true when it left an existing expiry in place.
func (l *Ledger) override(ctx context.Context, name string, userID int64, fn func(*account.Account, types.Date) bool) (*Override, error) {
	var o *Override
	a, err := l.mutateAccount(ctx, name, userID, false, func(a *account.Account, today types.Date) error {
		o = &Override{
			ID:             id.NewOverrideID(),
			UserID:         userID,
			PreviousLevel:  a.Level,
			PreviousExpiry: a.ExpiryDate,
		}
		o.ExpiryKept = fn(a, today)
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.NewLevel = a.Level
	o.NewExpiry = a.ExpiryDate

	l.logger.Info("tier overridden",
		"user_id", userID,
		"op", name,
		"from", o.PreviousLevel,
		"to", o.NewLevel,
		"expiry", types.DatePtrString(o.NewExpiry),
		"expiry_kept", o.ExpiryKept,
	)
	l.plugins.EmitTierOverridden(ctx, userID, o.PreviousLevel, o.NewLevel, o.NewExpiry)
	return o, nil
}

// setLevelAndExpiry applies the extend-only override rule to a and reports
// whether the existing expiry was kept.
func setLevelAndExpiry(a *account.Account, level tier.Level, days int, today types.Date) bool {
	if level == tier.None {
		a.Level = tier.None
		a.ExpiryDate = nil
		return false
	}

	if a.StartDate == nil {
		a.StartDate = today.Ptr()
	}
	candidate := today.AddDays(days)
	kept := a.IsActive(today) && a.ExpiryDate.After(candidate)
	a.Level = level
	if !kept {
		a.ExpiryDate = candidate.Ptr()
	}
	return kept
}
