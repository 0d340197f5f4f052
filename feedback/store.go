package feedback

import (
	"context"

	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

type Store interface {
	Upsert(ctx context.Context, f *Feedback) error
	Get(ctx context.Context, userID int64, itemID id.ItemID) (*Feedback, error)
	// TopRated counts likes dated on or after since, ordered by likes
	// descending then path ascending.
	TopRated(ctx context.Context, since types.Date, limit int) ([]*Ranking, error)
}
