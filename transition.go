package tierledger

import (
	"context"
	"fmt"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/command"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Quote is the priced outcome of a tier purchase, computed against the
// account as it stands now. Nothing is written.
type Quote struct {
	UserID        int64        `json:"user_id"`
	Kind          receipt.Kind `json:"kind"`
	CurrentLevel  tier.Level   `json:"current_level"`
	TargetLevel   tier.Level   `json:"target_level"`
	Days          int          `json:"days"`
	RemainingDays int          `json:"remaining_days"`
	// TargetPrice is the schedule value of the target for the buyer's level.
	TargetPrice int64 `json:"target_price"`
	// Credit is the part of TargetPrice covered by the unexpired tier.
	Credit        int64       `json:"credit"`
	Cost          int64       `json:"cost"`
	Balance       int64       `json:"balance"`
	CurrentExpiry *types.Date `json:"current_expiry,omitempty"`
	NewExpiry     types.Date  `json:"new_expiry"`
}

// Command returns the confirmed command that commits this quote.
func (q *Quote) Command() command.Tier {
	return command.Tier{Level: q.TargetLevel, Days: q.Days, Confirmed: true}
}

// ExchangeResult carries the quote for an unconfirmed command, or the receipt
// for a confirmed one.
type ExchangeResult struct {
	Quote   *Quote           `json:"quote,omitempty"`
	Receipt *receipt.Receipt `json:"receipt,omitempty"`
}

// QuoteTransition prices moving userID to level for days without changing
// anything. A rejected purchase returns the same error ConfirmTransition would.
func (l *Ledger) QuoteTransition(ctx context.Context, userID int64, level tier.Level, days int) (*Quote, error) {
	a, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	q, err := l.evaluate(a, level, days, l.today())
	if err != nil {
		l.logger.Debug("quote rejected",
			"user_id", userID,
			"level", level,
			"days", days,
			"error", err,
		)
		return nil, err
	}

	l.logger.Debug("quote issued",
		"user_id", userID,
		"kind", q.Kind,
		"level", level,
		"days", days,
		"cost", q.Cost,
	)
	return q, nil
}

// ConfirmTransition re-evaluates the purchase against the current account and
// commits it: points are debited, the level and expiry replaced, and a receipt
// recorded. Quoted numbers are never trusted.
func (l *Ledger) ConfirmTransition(ctx context.Context, userID int64, level tier.Level, days int) (*receipt.Receipt, error) {
	var (
		q    *Quote
		prev *account.Account
	)
	a, err := l.mutateAccount(ctx, "confirm_transition", userID, false, func(a *account.Account, today types.Date) error {
		prev = a.Clone()
		var err error
		q, err = l.evaluate(a, level, days, today)
		if err != nil {
			return err
		}

		a.Points -= q.Cost
		a.Level = level
		if a.StartDate == nil {
			a.StartDate = today.Ptr()
		}
		a.ExpiryDate = q.NewExpiry.Ptr()
		return nil
	})
	if err != nil {
		if IsRejection(err) {
			l.logger.Info("transition rejected",
				"user_id", userID,
				"level", level,
				"days", days,
				"error", err,
			)
			l.plugins.EmitTransitionRejected(ctx, userID, level, days, err)
		}
		return nil, err
	}

	r := &receipt.Receipt{
		Entity:                types.NewEntityAt(l.now()),
		ID:                    id.NewReceiptID(),
		UserID:                userID,
		Kind:                  q.Kind,
		PreviousLevel:         prev.Level,
		NewLevel:              a.Level,
		Days:                  days,
		PreviousExpiry:        prev.ExpiryDate,
		NewExpiry:             *a.ExpiryDate,
		PointsCharged:         q.Cost,
		CreditedFromPriorTier: q.Credit,
		BalanceAfter:          a.Points,
	}

	// The account is already committed; a lost receipt only loses history.
	if err := l.store.CreateReceipt(ctx, r); err != nil {
		l.logger.Error("failed to store receipt",
			"user_id", userID,
			"receipt_id", r.ID.String(),
			"error", err,
		)
	}

	l.logger.Info("tier changed",
		"user_id", userID,
		"kind", r.Kind,
		"from", r.PreviousLevel,
		"to", r.NewLevel,
		"charged", r.PointsCharged,
		"credit", r.CreditedFromPriorTier,
		"expiry", r.NewExpiry.String(),
	)
	l.plugins.EmitTierChanged(ctx, r)

	return r, nil
}

// Exchange runs a decoded purchase command: unconfirmed commands are quoted,
// confirmed ones committed. Validation is identical for both.
func (l *Ledger) Exchange(ctx context.Context, userID int64, cmd command.Tier) (*ExchangeResult, error) {
	if !cmd.Confirmed {
		q, err := l.QuoteTransition(ctx, userID, cmd.Level, cmd.Days)
		if err != nil {
			return nil, err
		}
		return &ExchangeResult{Quote: q}, nil
	}

	r, err := l.ConfirmTransition(ctx, userID, cmd.Level, cmd.Days)
	if err != nil {
		return nil, err
	}
	return &ExchangeResult{Receipt: r}, nil
}

// evaluate validates and prices a purchase against a. Checks run in a fixed
// order and the first failure wins.
func (l *Ledger) evaluate(a *account.Account, level tier.Level, days int, today types.Date) (*Quote, error) {
	if !level.Purchasable() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if !l.allowsDuration(days) {
		return nil, fmt.Errorf("%w: %d days", ErrInvalidDuration, days)
	}
	// The stored level alone decides, even when that tier has lapsed.
	if level < a.Level {
		return nil, fmt.Errorf("%w: %s to %s", ErrDowngradeForbidden, a.Level, level)
	}
	target, ok := l.prices.PriceFor(level, days, a.Level)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %d days", ErrNoSuchPlan, level, days)
	}

	active := a.IsActive(today)
	q := &Quote{
		UserID:        a.UserID,
		CurrentLevel:  a.Level,
		TargetLevel:   level,
		Days:          days,
		RemainingDays: a.RemainingDays(today),
		TargetPrice:   target,
		Balance:       a.Points,
		CurrentExpiry: a.ExpiryDate,
	}

	if level == a.Level {
		q.Kind = receipt.KindRenew
		q.Cost = target
		if active {
			q.NewExpiry = types.MaxDate(*a.ExpiryDate, today).AddDays(days)
		} else {
			q.NewExpiry = today.AddDays(days)
		}
	} else {
		q.Kind = receipt.KindUpgrade
		var value int64
		if active {
			if days < q.RemainingDays {
				return nil, fmt.Errorf("%w: %d days requested, %d remaining", ErrDurationTooShort, days, q.RemainingDays)
			}
			value, _ = l.prices.PriceFor(a.Level, q.RemainingDays, a.Level)
		}
		q.Cost = max(0, target-value)
		q.Credit = target - q.Cost
		q.NewExpiry = today.AddDays(days)
	}

	if a.Points < q.Cost {
		return nil, &InsufficientBalanceError{Required: q.Cost, Available: a.Points}
	}
	return q, nil
}
