// Package memory implements store.Store in process memory. It is intended for
// tests and single-process deployments; all data is lost on exit.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/store"
	"github.com/xraph/tierledger/types"
)

var _ store.Store = (*Store)(nil)

type pairKey struct {
	userID int64
	itemID string
}

type Store struct {
	mu sync.RWMutex

	// Account storage
	accounts map[int64]*account.Account

	// Catalog storage, in insertion order
	items     map[string]*catalog.Item
	itemOrder []string
	byPath    map[string]string
	byHandle  map[string]string

	// Delivery storage
	deliveries map[pairKey]*delivery.Record

	// Feedback storage
	feedback map[pairKey]*feedback.Feedback

	// Receipt storage
	receipts map[string]*receipt.Receipt

	closed bool
}

func New() *Store {
	return &Store{
		accounts:   make(map[int64]*account.Account),
		items:      make(map[string]*catalog.Item),
		byPath:     make(map[string]string),
		byHandle:   make(map[string]string),
		deliveries: make(map[pairKey]*delivery.Record),
		feedback:   make(map[pairKey]*feedback.Feedback),
		receipts:   make(map[string]*receipt.Receipt),
	}
}

// ──────────────────────────────────────────────────
// Account Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.UserID]; exists {
		return tierledger.ErrAlreadyExists
	}
	s.accounts[a.UserID] = a.Clone()
	return nil
}

func (s *Store) GetAccount(_ context.Context, userID int64) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[userID]; ok {
		return a.Clone(), nil
	}
	return nil, tierledger.ErrUserNotFound
}

func (s *Store) UpdateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.casAccount(a)
}

// casAccount writes a if its version is current. Callers hold s.mu.
func (s *Store) casAccount(a *account.Account) error {
	cur, ok := s.accounts[a.UserID]
	if !ok {
		return tierledger.ErrUserNotFound
	}
	if cur.Version != a.Version {
		return fmt.Errorf("%w: account %d at version %d, write based on %d",
			tierledger.ErrStorageConflict, a.UserID, cur.Version, a.Version)
	}
	a.Version++
	s.accounts[a.UserID] = a.Clone()
	return nil
}

// ──────────────────────────────────────────────────
// Catalog Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateItem(_ context.Context, it *catalog.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := it.ID.String()
	if _, exists := s.items[key]; exists {
		return tierledger.ErrAlreadyExists
	}
	if _, exists := s.byPath[it.Path]; exists {
		return tierledger.ErrAlreadyExists
	}

	c := *it
	s.items[key] = &c
	s.itemOrder = append(s.itemOrder, key)
	s.byPath[it.Path] = key
	if it.Handle != "" {
		s.byHandle[it.Handle] = key
	}
	return nil
}

func (s *Store) GetItem(_ context.Context, itemID id.ItemID) (*catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemLocked(itemID.String())
}

func (s *Store) GetItemByPath(_ context.Context, path string) (*catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byPath[path]
	if !ok {
		return nil, tierledger.ErrItemNotFound
	}
	return s.itemLocked(key)
}

func (s *Store) GetItemByHandle(_ context.Context, handle string) (*catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byHandle[handle]
	if !ok {
		return nil, tierledger.ErrItemNotFound
	}
	return s.itemLocked(key)
}

func (s *Store) itemLocked(key string) (*catalog.Item, error) {
	it, ok := s.items[key]
	if !ok {
		return nil, tierledger.ErrItemNotFound
	}
	c := *it
	return &c, nil
}

func (s *Store) ListItemIDs(_ context.Context) ([]id.ItemID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]id.ItemID, 0, len(s.itemOrder))
	for _, key := range s.itemOrder {
		result = append(result, s.items[key].ID)
	}
	return result, nil
}

func (s *Store) UpdateItemSize(_ context.Context, itemID id.ItemID, size *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID.String()]
	if !ok {
		return tierledger.ErrItemNotFound
	}
	if size != nil {
		v := *size
		size = &v
	}
	it.Size = size
	it.Touch()
	return nil
}

func (s *Store) SetItemHandle(_ context.Context, itemID id.ItemID, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemID.String()
	it, ok := s.items[key]
	if !ok {
		return false, tierledger.ErrItemNotFound
	}
	if it.Handle == handle {
		return false, nil
	}
	if it.Handle != "" {
		delete(s.byHandle, it.Handle)
	}
	it.Handle = handle
	it.Touch()
	s.byHandle[handle] = key
	return true, nil
}

// ──────────────────────────────────────────────────
// Delivery Store implementation
// ──────────────────────────────────────────────────

func (s *Store) RecordDelivery(_ context.Context, rec *delivery.Record, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{rec.UserID, rec.ItemID.String()}
	if _, exists := s.deliveries[key]; exists {
		return tierledger.ErrAlreadyExists
	}
	if err := s.casAccount(acct); err != nil {
		return err
	}
	c := *rec
	s.deliveries[key] = &c
	return nil
}

func (s *Store) CountDeliveriesOn(_ context.Context, userID int64, day types.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for key, rec := range s.deliveries {
		if key.userID == userID && rec.Date.Equal(day) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListDeliveredItemIDs(_ context.Context, userID int64) ([]id.ItemID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]id.ItemID, 0)
	for key, rec := range s.deliveries {
		if key.userID == userID {
			result = append(result, rec.ItemID)
		}
	}
	return result, nil
}

func (s *Store) CountDeliveries(_ context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.deliveries {
		if key.userID == userID {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Feedback Store implementation
// ──────────────────────────────────────────────────

func (s *Store) UpsertFeedback(_ context.Context, f *feedback.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{f.UserID, f.ItemID.String()}
	c := *f
	if prev, ok := s.feedback[key]; ok {
		c.CreatedAt = prev.CreatedAt
	}
	s.feedback[key] = &c
	return nil
}

func (s *Store) GetFeedback(_ context.Context, userID int64, itemID id.ItemID) (*feedback.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.feedback[pairKey{userID, itemID.String()}]
	if !ok {
		return nil, tierledger.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (s *Store) TopRated(_ context.Context, since types.Date, limit int) ([]*feedback.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes := make(map[string]int64)
	for key, f := range s.feedback {
		if f.Value == feedback.Like && !f.Date.Before(since) {
			likes[key.itemID]++
		}
	}

	result := make([]*feedback.Ranking, 0, len(likes))
	for key, n := range likes {
		it, ok := s.items[key]
		if !ok {
			continue
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

// ──────────────────────────────────────────────────
// Receipt Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateReceipt(_ context.Context, r *receipt.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[r.ID.String()]; exists {
		return tierledger.ErrAlreadyExists
	}
	c := *r
	s.receipts[r.ID.String()] = &c
	return nil
}

func (s *Store) GetReceipt(_ context.Context, receiptID id.ReceiptID) (*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.receipts[receiptID.String()]; ok {
		c := *r
		return &c, nil
	}
	return nil, tierledger.ErrReceiptNotFound
}

func (s *Store) ListReceipts(_ context.Context, userID int64, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*receipt.Receipt, 0)
	for _, r := range s.receipts {
		if r.UserID == userID {
			c := *r
			result = append(result, &c)
		}
	}
	// Newest first; IDs are time-ordered and break ties within a timestamp.
	slices.SortFunc(result, func(a, b *receipt.Receipt) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tierledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
