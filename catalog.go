package tierledger

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

// RegisterItem returns the catalog item at path, creating it on first sight.
// A known item whose size changed is updated in place.
func (l *Ledger) RegisterItem(ctx context.Context, path string, size *int64) (*catalog.Item, error) {
	it, _, err := l.registerItem(ctx, path, size)
	if err != nil {
		return nil, err
	}
	return it, nil
}

type registerOutcome int

const (
	registerSkipped registerOutcome = iota
	registerInserted
	registerUpdated
)

func (l *Ledger) registerItem(ctx context.Context, path string, size *int64) (*catalog.Item, registerOutcome, error) {
	if path == "" {
		return nil, registerSkipped, ValidationError{Field: "path", Message: "must not be empty", Err: ErrInvalidInput}
	}

	it, err := l.store.GetItemByPath(ctx, path)
	switch {
	case err == nil:
		if size == nil || (it.Size != nil && *it.Size == *size) {
			return it, registerSkipped, nil
		}
		if err := l.store.UpdateItemSize(ctx, it.ID, size); err != nil {
			return nil, registerSkipped, err
		}
		it.Size = size
		return it, registerUpdated, nil

	case errors.Is(err, ErrItemNotFound):
		it = &catalog.Item{
			Entity: types.NewEntityAt(l.now()),
			ID:     id.NewItemID(),
			Path:   path,
			Size:   size,
		}
		if err := l.store.CreateItem(ctx, it); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				// Lost a race with another registration of the same path.
				it, err = l.store.GetItemByPath(ctx, path)
				return it, registerSkipped, err
			}
			return nil, registerSkipped, err
		}
		l.catalogCache.Clear()
		return it, registerInserted, nil

	default:
		return nil, registerSkipped, err
	}
}

// GetItem retrieves a catalog item by ID.
func (l *Ledger) GetItem(ctx context.Context, itemID id.ItemID) (*catalog.Item, error) {
	return l.store.GetItem(ctx, itemID)
}

// SyncCatalog walks root and registers every file whose extension is in exts
// (catalog.DefaultExtensions when empty). Items are never removed.
func (l *Ledger) SyncCatalog(ctx context.Context, root string, exts ...string) (catalog.SyncResult, error) {
	start := time.Now()
	var res catalog.SyncResult

	files, err := catalog.Scan(root, exts)
	if err != nil {
		return res, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		size := f.Size
		_, outcome, err := l.registerItem(ctx, f.Path, &size)
		if err != nil {
			return res, err
		}
		switch outcome {
		case registerInserted:
			res.Inserted++
		case registerUpdated:
			res.Updated++
		default:
			res.Skipped++
		}
	}

	l.catalogCache.Clear()

	elapsed := time.Since(start)
	l.logger.Info("catalog synced",
		"root", root,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"elapsed", elapsed,
	)
	l.plugins.EmitCatalogSynced(ctx, res, elapsed)
	return res, nil
}

// ClearCache drops every cached catalog lookup.
func (l *Ledger) ClearCache() {
	l.catalogCache.Clear()
	l.logger.Info("catalog cache cleared")
}
