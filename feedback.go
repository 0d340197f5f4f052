package tierledger

import (
	"context"
	"fmt"

	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

// DefaultTopRatedLimit bounds TopRated when no limit is given.
const DefaultTopRatedLimit = 10

// RecordFeedback stores userID's verdict on an item, replacing any earlier one.
func (l *Ledger) RecordFeedback(ctx context.Context, userID int64, itemID id.ItemID, value feedback.Value) (*feedback.Feedback, error) {
	if !value.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFeedback, value)
	}
	if _, err := l.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	if _, err := l.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}

	f := &feedback.Feedback{
		Entity: types.NewEntityAt(l.now()),
		UserID: userID,
		ItemID: itemID,
		Value:  value,
		Date:   l.today(),
	}
	if err := l.store.UpsertFeedback(ctx, f); err != nil {
		return nil, err
	}

	l.logger.Debug("feedback recorded",
		"user_id", userID,
		"item_id", itemID.String(),
		"value", int(value),
	)
	l.plugins.EmitFeedbackRecorded(ctx, f)
	return f, nil
}

// TopRated returns the most liked items over the last windowDays days,
// today included.
func (l *Ledger) TopRated(ctx context.Context, windowDays, limit int) ([]*feedback.Ranking, error) {
	if windowDays <= 0 {
		return nil, ValidationError{Field: "window", Message: "must be positive", Err: ErrInvalidInput}
	}
	if limit <= 0 {
		limit = DefaultTopRatedLimit
	}
	since := l.today().AddDays(-(windowDays - 1))
	return l.store.TopRated(ctx, since, limit)
}
