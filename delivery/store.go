package delivery

import (
	"context"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

type Store interface {
	// Record stores rec and advances acct's version in one transaction.
	// A stale acct.Version fails with a conflict and leaves no record behind.
	// A pair that was already delivered fails with ErrAlreadyExists.
	Record(ctx context.Context, rec *Record, acct *account.Account) error
	CountOn(ctx context.Context, userID int64, day types.Date) (int, error)
	ListItemIDs(ctx context.Context, userID int64) ([]id.ItemID, error)
	Count(ctx context.Context, userID int64) (int64, error)
}
