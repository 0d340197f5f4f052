package tierledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

const catalogIDsKey = "ids"

// Delivery is an item handed to a user by RequestDistribution.
type Delivery struct {
	ID     id.DeliveryID `json:"id"`
	UserID int64         `json:"user_id"`
	Item   *catalog.Item `json:"item"`
	Date   types.Date    `json:"date"`
	// DailyCap is the cap that applied to this delivery.
	DailyCap       int `json:"daily_cap"`
	RemainingAfter int `json:"remaining_after"`
}

// RemainingQuota returns how many more items userID may receive today.
func (l *Ledger) RemainingQuota(ctx context.Context, userID int64) (int, error) {
	a, err := l.EnsureAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	used, err := l.store.CountDeliveriesOn(ctx, userID, l.today())
	if err != nil {
		return 0, err
	}
	return max(0, tier.DailyCap(a.Level)-used), nil
}

// RequestDistribution picks an item userID has never received, uniformly at
// random, and records the send. The quota check, the pick and the record are
// one conditional write against the account, so concurrent requests for the
// same user can neither exceed the cap nor receive the same item twice.
func (l *Ledger) RequestDistribution(ctx context.Context, userID int64) (*Delivery, error) {
	var (
		level tier.Level
		rec   *delivery.Record
	)
	d, err := retryConflicts(ctx, l, "request_distribution", func() (*Delivery, error) {
		a, err := l.EnsureAccount(ctx, userID)
		if err != nil {
			return nil, err
		}
		today := l.today()
		level = a.Level
		dailyCap := tier.DailyCap(a.Level)

		used, err := l.store.CountDeliveriesOn(ctx, userID, today)
		if err != nil {
			return nil, err
		}
		if used >= dailyCap {
			return nil, &QuotaExceededError{Cap: dailyCap, Used: used}
		}

		unseen, err := l.unseenItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(unseen) == 0 {
			return nil, ErrNoItemsAvailable
		}
		pick := unseen[l.rng.IntN(len(unseen))]

		rec = &delivery.Record{
			UserID:    userID,
			ItemID:    pick,
			Date:      today,
			CreatedAt: l.now(),
		}
		if err := l.store.RecordDelivery(ctx, rec, a); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return nil, fmt.Errorf("%w: %w", ErrStorageConflict, err)
			}
			return nil, err
		}

		item, err := l.store.GetItem(ctx, pick)
		if err != nil {
			return nil, err
		}
		return &Delivery{
			ID:             id.NewDeliveryID(),
			UserID:         userID,
			Item:           item,
			Date:           today,
			DailyCap:       dailyCap,
			RemainingAfter: dailyCap - used - 1,
		}, nil
	})
	if err != nil {
		var qe *QuotaExceededError
		if errors.As(err, &qe) {
			l.logger.Info("daily quota exceeded",
				"user_id", userID,
				"level", level,
				"cap", qe.Cap,
			)
			l.plugins.EmitQuotaExceeded(ctx, userID, level, qe.Cap)
		}
		return nil, err
	}

	l.logger.Debug("item delivered",
		"user_id", userID,
		"item_id", d.Item.ID.String(),
		"remaining", d.RemainingAfter,
	)
	l.plugins.EmitItemDelivered(ctx, rec, d.RemainingAfter)
	return d, nil
}

// unseenItems returns catalog items with no send record for userID.
func (l *Ledger) unseenItems(ctx context.Context, userID int64) ([]id.ItemID, error) {
	all, err := l.catalogCache.GetOrLoad(ctx, catalogIDsKey, func(ctx context.Context) ([]id.ItemID, error) {
		return l.store.ListItemIDs(ctx)
	})
	if err != nil {
		return nil, err
	}

	sent, err := l.store.ListDeliveredItemIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(sent))
	for _, s := range sent {
		seen[s.String()] = struct{}{}
	}

	unseen := make([]id.ItemID, 0, len(all))
	for _, itemID := range all {
		if _, ok := seen[itemID.String()]; !ok {
			unseen = append(unseen, itemID)
		}
	}
	return unseen, nil
}

// CacheHandle stores the delivery system's handle for an item after a
// successful send. It is a no-op when the same handle is already cached and
// otherwise last writer wins.
func (l *Ledger) CacheHandle(ctx context.Context, itemID id.ItemID, handle string) error {
	if handle == "" {
		return ValidationError{Field: "handle", Message: "must not be empty", Err: ErrInvalidInput}
	}
	changed, err := l.store.SetItemHandle(ctx, itemID, handle)
	if err != nil {
		return err
	}
	if changed {
		l.logger.Debug("handle cached", "item_id", itemID.String())
	}
	return nil
}

// ResolveHandle finds the catalog item a cached handle belongs to.
func (l *Ledger) ResolveHandle(ctx context.Context, handle string) (*catalog.Item, error) {
	return l.store.GetItemByHandle(ctx, handle)
}

// SentCount returns how many items userID has received in total.
func (l *Ledger) SentCount(ctx context.Context, userID int64) (int64, error) {
	return l.store.CountDeliveries(ctx, userID)
}
