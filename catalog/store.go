package catalog

import (
	"context"

	"github.com/xraph/tierledger/id"
)

type Store interface {
	Create(ctx context.Context, it *Item) error
	Get(ctx context.Context, itemID id.ItemID) (*Item, error)
	GetByPath(ctx context.Context, path string) (*Item, error)
	GetByHandle(ctx context.Context, handle string) (*Item, error)
	ListIDs(ctx context.Context) ([]id.ItemID, error)
	UpdateSize(ctx context.Context, itemID id.ItemID, size *int64) error
	// SetHandle stores handle unless it is already the cached value and
	// reports whether anything changed.
	SetHandle(ctx context.Context, itemID id.ItemID, handle string) (bool, error)
}
