package store

import (
	"context"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/types"
)

// Store is the unified storage interface for all tierledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Account writes are conditional on Account.Version: UpdateAccount and
// RecordDelivery return tierledger.ErrStorageConflict when the stored version
// has moved on, and the engine retries from a fresh read.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, userID int64) (*account.Account, error)
	UpdateAccount(ctx context.Context, a *account.Account) error

	// Catalog methods
	CreateItem(ctx context.Context, it *catalog.Item) error
	GetItem(ctx context.Context, itemID id.ItemID) (*catalog.Item, error)
	GetItemByPath(ctx context.Context, path string) (*catalog.Item, error)
	GetItemByHandle(ctx context.Context, handle string) (*catalog.Item, error)
	ListItemIDs(ctx context.Context) ([]id.ItemID, error)
	UpdateItemSize(ctx context.Context, itemID id.ItemID, size *int64) error
	SetItemHandle(ctx context.Context, itemID id.ItemID, handle string) (bool, error)

	// Delivery methods
	RecordDelivery(ctx context.Context, rec *delivery.Record, acct *account.Account) error
	CountDeliveriesOn(ctx context.Context, userID int64, day types.Date) (int, error)
	ListDeliveredItemIDs(ctx context.Context, userID int64) ([]id.ItemID, error)
	CountDeliveries(ctx context.Context, userID int64) (int64, error)

	// Feedback methods
	UpsertFeedback(ctx context.Context, f *feedback.Feedback) error
	GetFeedback(ctx context.Context, userID int64, itemID id.ItemID) (*feedback.Feedback, error)
	TopRated(ctx context.Context, since types.Date, limit int) ([]*feedback.Ranking, error)

	// Receipt methods
	CreateReceipt(ctx context.Context, r *receipt.Receipt) error
	GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error)
	ListReceipts(ctx context.Context, userID int64, opts receipt.ListOpts) ([]*receipt.Receipt, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
