package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

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

// compile-time interface check
var _ tlstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tierledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tierledger/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(toAccountModel(a)).Exec(ctx)
	if isUniqueViolation(err) {
		return tierledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetAccount(ctx context.Context, userID int64) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tierledger.ErrUserNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	res, err := s.sdb.NewUpdate((*accountModel)(nil)).
		Set("points = ?", m.Points).
		Set("level = ?", m.Level).
		Set("start_date = ?", m.StartDate).
		Set("expiry_date = ?", m.ExpiryDate).
		Set("version = version + 1").
		Set("updated_at = ?", now()).
		Where("user_id = ?", a.UserID).
		Where("version = ?", a.Version).
		Exec(ctx)
	if err != nil {
		return busyAsConflict(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if err := s.casResult(ctx, rows, a.UserID); err != nil {
		return err
	}
	a.Version++
	return nil
}

// claimVersion advances the account version inside tx if it still equals
// version, and reports how many rows it changed.
func claimVersion(ctx context.Context, tx *sqlitedriver.SqliteTx, userID, version int64) (int64, error) {
	res, err := tx.NewUpdate((*accountModel)(nil)).
		Set("version = version + 1").
		Set("updated_at = ?", now()).
		Where("user_id = ?", userID).
		Where("version = ?", version).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// casResult turns a zero-row conditional update into a conflict, or into
// ErrUserNotFound when the account does not exist at all.
func (s *Store) casResult(ctx context.Context, rows int64, userID int64) error {
	if rows > 0 {
		return nil
	}
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("%w: account %d", tierledger.ErrStorageConflict, userID)
}

// ==================== Catalog Store ====================

func (s *Store) CreateItem(ctx context.Context, it *catalog.Item) error {
	_, err := s.sdb.NewInsert(toItemModel(it)).Exec(ctx)
	if isUniqueViolation(err) {
		return tierledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetItem(ctx context.Context, itemID id.ItemID) (*catalog.Item, error) {
	return s.getItemWhere(ctx, "id = ?", itemID.String())
}

func (s *Store) GetItemByPath(ctx context.Context, path string) (*catalog.Item, error) {
	return s.getItemWhere(ctx, "path = ?", path)
}

func (s *Store) GetItemByHandle(ctx context.Context, handle string) (*catalog.Item, error) {
	if handle == "" {
		return nil, tierledger.ErrItemNotFound
	}
	return s.getItemWhere(ctx, "handle = ?", handle)
}

func (s *Store) getItemWhere(ctx context.Context, where string, arg any) (*catalog.Item, error) {
	m := new(itemModel)
	err := s.sdb.NewSelect(m).
		Where(where, arg).
		OrderExpr("updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tierledger.ErrItemNotFound
		}
		return nil, err
	}
	return fromItemModel(m)
}

func (s *Store) ListItemIDs(ctx context.Context) ([]id.ItemID, error) {
	var models []itemModel
	if err := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, id ASC").Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate((*itemModel)(nil)).
		Set("size = ?", size).
		Set("updated_at = ?", now()).
		Where("id = ?", itemID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tierledger.ErrItemNotFound
	}
	return nil
}

func (s *Store) SetItemHandle(ctx context.Context, itemID id.ItemID, handle string) (bool, error) {
	res, err := s.sdb.NewUpdate((*itemModel)(nil)).
		Set("handle = ?", handle).
		Set("updated_at = ?", now()).
		Where("id = ?", itemID.String()).
		Where("handle != ?", handle).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return false, err
	}
	return false, nil
}

// ==================== Delivery Store ====================

// RecordDelivery claims acct's version and inserts rec in one transaction.
func (s *Store) RecordDelivery(ctx context.Context, rec *delivery.Record, acct *account.Account) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return busyAsConflict(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	rows, err := claimVersion(ctx, tx, acct.UserID, acct.Version)
	if err != nil {
		return busyAsConflict(err)
	}
	if rows == 0 {
		if err := tx.Rollback(); err != nil {
			return err
		}
		return s.casResult(ctx, rows, acct.UserID)
	}

	if _, err := tx.NewInsert(toDeliveryModel(rec)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return tierledger.ErrAlreadyExists
		}
		return busyAsConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return busyAsConflict(err)
	}
	acct.Version++
	return nil
}

func (s *Store) CountDeliveriesOn(ctx context.Context, userID int64, day types.Date) (int, error) {
	var n int
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM tierledger_deliveries
		WHERE user_id = ? AND day = ?
	`, userID, day.String()).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListDeliveredItemIDs(ctx context.Context, userID int64) ([]id.ItemID, error) {
	var models []deliveryModel
	if err := s.sdb.NewSelect(&models).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, err
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
	var n int64
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM tierledger_deliveries WHERE user_id = ?
	`, userID).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ==================== Feedback Store ====================

func (s *Store) UpsertFeedback(ctx context.Context, f *feedback.Feedback) error {
	_, err := s.sdb.NewInsert(toFeedbackModel(f)).
		OnConflict("(user_id, item_id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("day = EXCLUDED.day").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetFeedback(ctx context.Context, userID int64, itemID id.ItemID) (*feedback.Feedback, error) {
	m := new(feedbackModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Where("item_id = ?", itemID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tierledger.ErrNotFound
		}
		return nil, err
	}
	return fromFeedbackModel(m)
}

func (s *Store) TopRated(ctx context.Context, since types.Date, limit int) ([]*feedback.Ranking, error) {
	var likes []feedbackModel
	err := s.sdb.NewSelect(&likes).
		Where("value = ?", int(feedback.Like)).
		Where("day >= ?", since.String()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for i := range likes {
		counts[likes[i].ItemID]++
	}

	result := make([]*feedback.Ranking, 0, len(counts))
	for key, n := range counts {
		itemID, err := id.ParseItemID(key)
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
			Likes:  n,
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
	_, err := s.sdb.NewInsert(toReceiptModel(r)).Exec(ctx)
	if isUniqueViolation(err) {
		return tierledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	m := new(receiptModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", receiptID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tierledger.ErrReceiptNotFound
		}
		return nil, err
	}
	return fromReceiptModel(m)
}

func (s *Store) ListReceipts(ctx context.Context, userID int64, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	var models []receiptModel
	q := s.sdb.NewSelect(&models).Where("user_id = ?", userID)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether err is a primary key or unique index
// violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// busyAsConflict reports a lock held by another writer as a conflict so the
// engine retries it.
func busyAsConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %w", tierledger.ErrStorageConflict, err)
	}
	return err
}
