package receipt

import (
	"context"

	"github.com/xraph/tierledger/id"
)

type Store interface {
	Create(ctx context.Context, r *Receipt) error
	Get(ctx context.Context, receiptID id.ReceiptID) (*Receipt, error)
	List(ctx context.Context, userID int64, opts ListOpts) ([]*Receipt, error)
}

// ListOpts bounds a receipt listing. Results are newest first.
type ListOpts struct {
	Limit  int
	Offset int
}
