package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/receipt"
	tlstore "github.com/xraph/tierledger/store"
	"github.com/xraph/tierledger/types"
)

// Collection name constants.
const (
	colAccounts   = "tierledger_accounts"
	colItems      = "tierledger_items"
	colDeliveries = "tierledger_deliveries"
	colFeedback   = "tierledger_feedback"
	colReceipts   = "tierledger_receipts"
)

// compile-time interface check
var _ tlstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tierledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tierledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	_, err := s.mdb.NewInsert(toAccountModel(a)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tierledger.ErrAlreadyExists
		}
		return fmt.Errorf("tierledger/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID int64) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tierledger.ErrUserNotFound
		}
		return nil, fmt.Errorf("tierledger/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)

	set := bson.M{
		"points":     m.Points,
		"level":      m.Level,
		"updated_at": now(),
	}
	unset := bson.M{}
	if m.StartDate != "" {
		set["start_date"] = m.StartDate
	} else {
		unset["start_date"] = ""
	}
	if m.ExpiryDate != "" {
		set["expiry_date"] = m.ExpiryDate
	} else {
		unset["expiry_date"] = ""
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": a.UserID, "version": a.Version}).
		SetUpdate(update).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tierledger/mongo: update account: %w", err)
	}
	if err := s.casResult(ctx, res.MatchedCount(), a.UserID); err != nil {
		return err
	}
	a.Version++
	return nil
}

// claimVersion advances the account version inside tx if it still equals
// version, and reports how many documents matched.
func claimVersion(ctx context.Context, tx *mongodriver.MongoTx, userID, version int64) (int64, error) {
	res, err := tx.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": userID, "version": version}).
		SetUpdate(bson.M{
			"$set": bson.M{"updated_at": now()},
			"$inc": bson.M{"version": 1},
		}).
		Exec(ctx)
	if err != nil {
		return 0, transientAsConflict(fmt.Errorf("tierledger/mongo: claim account version: %w", err))
	}
	return res.MatchedCount(), nil
}

func (s *Store) casResult(ctx context.Context, matched int64, userID int64) error {
	if matched > 0 {
		return nil
	}
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("%w: account %d", tierledger.ErrStorageConflict, userID)
}

// ==================== Catalog Store ====================

func (s *Store) CreateItem(ctx context.Context, it *catalog.Item) error {
	_, err := s.mdb.NewInsert(toItemModel(it)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tierledger.ErrAlreadyExists
		}
		return fmt.Errorf("tierledger/mongo: create item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, itemID id.ItemID) (*catalog.Item, error) {
	return s.findItem(ctx, bson.M{"_id": itemID.String()})
}

func (s *Store) GetItemByPath(ctx context.Context, path string) (*catalog.Item, error) {
	return s.findItem(ctx, bson.M{"path": path})
}

func (s *Store) GetItemByHandle(ctx context.Context, handle string) (*catalog.Item, error) {
	if handle == "" {
		return nil, tierledger.ErrItemNotFound
	}
	return s.findItem(ctx, bson.M{"handle": handle})
}

func (s *Store) findItem(ctx context.Context, filter bson.M) (*catalog.Item, error) {
	var m itemModel
	err := s.mdb.NewFind(&m).
		Filter(filter).
		Sort(bson.D{{Key: "updated_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tierledger.ErrItemNotFound
		}
		return nil, fmt.Errorf("tierledger/mongo: get item: %w", err)
	}
	return fromItemModel(&m)
}

func (s *Store) ListItemIDs(ctx context.Context) ([]id.ItemID, error) {
	var models []itemModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tierledger/mongo: list items: %w", err)
	}

	result := make([]id.ItemID, len(models))
	for i := range models {
		itemID, err := id.ParseItemID(models[i].ID)
		if err != nil {
			return nil, err
		}
		result[i] = itemID
	}
	return result, nil
}

func (s *Store) UpdateItemSize(ctx context.Context, itemID id.ItemID, size *int64) error {
	update := bson.M{"$set": bson.M{"updated_at": now()}}
	if size != nil {
		update["$set"] = bson.M{"size": *size, "updated_at": now()}
	} else {
		update["$unset"] = bson.M{"size": ""}
	}

	res, err := s.mdb.NewUpdate((*itemModel)(nil)).
		Filter(bson.M{"_id": itemID.String()}).
		SetUpdate(update).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tierledger/mongo: update item size: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tierledger.ErrItemNotFound
	}
	return nil
}

func (s *Store) SetItemHandle(ctx context.Context, itemID id.ItemID, handle string) (bool, error) {
	res, err := s.mdb.NewUpdate((*itemModel)(nil)).
		Filter(bson.M{"_id": itemID.String(), "handle": bson.M{"$ne": handle}}).
		Set("handle", handle).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("tierledger/mongo: set item handle: %w", err)
	}
	if res.MatchedCount() > 0 {
		return true, nil
	}
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return false, err
	}
	return false, nil
}

// ==================== Delivery Store ====================

// RecordDelivery claims acct's version and inserts rec in one session
// transaction. Transactions need a replica set or sharded cluster.
func (s *Store) RecordDelivery(ctx context.Context, rec *delivery.Record, acct *account.Account) error {
	gtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tierledger/mongo: begin delivery: %w", err)
	}
	tx, ok := gtx.Raw().(*mongodriver.MongoTx)
	if !ok {
		_ = gtx.Rollback()
		return fmt.Errorf("tierledger/mongo: unexpected transaction type %T", gtx.Raw())
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	matched, err := claimVersion(ctx, tx, acct.UserID, acct.Version)
	if err != nil {
		return err
	}
	if matched == 0 {
		done = true
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("tierledger/mongo: abort delivery: %w", err)
		}
		return s.casResult(ctx, matched, acct.UserID)
	}

	if _, err := tx.NewInsert(toDeliveryModel(rec)).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tierledger.ErrAlreadyExists
		}
		return transientAsConflict(fmt.Errorf("tierledger/mongo: record delivery: %w", err))
	}
	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tierledger/mongo: commit delivery: %w", err)
	}
	acct.Version++
	return nil
}

func (s *Store) CountDeliveriesOn(ctx context.Context, userID int64, day types.Date) (int, error) {
	n, err := s.mdb.Collection(colDeliveries).CountDocuments(ctx, bson.M{
		"user_id": userID,
		"day":     day.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("tierledger/mongo: count deliveries: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListDeliveredItemIDs(ctx context.Context, userID int64) ([]id.ItemID, error) {
	var models []deliveryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tierledger/mongo: list deliveries: %w", err)
	}

	result := make([]id.ItemID, len(models))
	for i := range models {
		itemID, err := id.ParseItemID(models[i].ItemID)
		if err != nil {
			return nil, err
		}
		result[i] = itemID
	}
	return result, nil
}

func (s *Store) CountDeliveries(ctx context.Context, userID int64) (int64, error) {
	n, err := s.mdb.Collection(colDeliveries).CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("tierledger/mongo: count deliveries: %w", err)
	}
	return n, nil
}

// ==================== Feedback Store ====================

func (s *Store) UpsertFeedback(ctx context.Context, f *feedback.Feedback) error {
	m := toFeedbackModel(f)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"user_id":    m.UserID,
				"item_id":    m.ItemID,
				"value":      m.Value,
				"day":        m.Day,
				"updated_at": m.UpdatedAt,
			},
			"$setOnInsert": bson.M{"created_at": m.CreatedAt},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tierledger/mongo: upsert feedback: %w", err)
	}
	return nil
}

func (s *Store) GetFeedback(ctx context.Context, userID int64, itemID id.ItemID) (*feedback.Feedback, error) {
	var m feedbackModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": pairKey(userID, itemID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tierledger.ErrNotFound
		}
		return nil, fmt.Errorf("tierledger/mongo: get feedback: %w", err)
	}
	return fromFeedbackModel(&m)
}

func (s *Store) TopRated(ctx context.Context, since types.Date, limit int) ([]*feedback.Ranking, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{
				"value": int(feedback.Like),
				"day":   bson.M{"$gte": since.String()},
			},
		},
		bson.M{
			"$group": bson.M{
				"_id":   "$item_id",
				"likes": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := s.mdb.Collection(colFeedback).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("tierledger/mongo: top rated: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		ItemID string `bson:"_id"`
		Likes  int64  `bson:"likes"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("tierledger/mongo: top rated decode: %w", err)
	}

	result := make([]*feedback.Ranking, 0, len(groups))
	for _, g := range groups {
		itemID, err := id.ParseItemID(g.ItemID)
		if err != nil {
			return nil, err
		}
		it, err := s.GetItem(ctx, itemID)
		if errors.Is(err, tierledger.ErrItemNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, &feedback.Ranking{
			ItemID: it.ID,
			Path:   it.Path,
			Handle: it.Handle,
			Likes:  g.Likes,
		})
	}
	feedback.SortRankings(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ==================== Receipt Store ====================

func (s *Store) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	_, err := s.mdb.NewInsert(toReceiptModel(r)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tierledger.ErrAlreadyExists
		}
		return fmt.Errorf("tierledger/mongo: create receipt: %w", err)
	}
	return nil
}

func (s *Store) GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	var m receiptModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": receiptID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tierledger.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("tierledger/mongo: get receipt: %w", err)
	}
	return fromReceiptModel(&m)
}

func (s *Store) ListReceipts(ctx context.Context, userID int64, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	var models []receiptModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tierledger/mongo: list receipts: %w", err)
	}

	result := make([]*receipt.Receipt, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tierledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {},
		colItems: {
			{
				Keys:    bson.D{{Key: "path", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "handle", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colDeliveries: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "day", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "item_id", Value: 1}}},
		},
		colFeedback: {
			{Keys: bson.D{{Key: "value", Value: 1}, {Key: "day", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}

// transientAsConflict reports a transaction write conflict as a storage
// conflict so the engine retries it.
func transientAsConflict(err error) error {
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %w", tierledger.ErrStorageConflict, err)
	}
	return err
}
