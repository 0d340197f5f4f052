package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/types"
)

var day = types.NewDate(2026, time.March, 10)

func newItem(t *testing.T, s *Store, path string) *catalog.Item {
	t.Helper()
	it := &catalog.Item{Entity: types.NewEntity(), ID: id.NewItemID(), Path: path}
	if err := s.CreateItem(context.Background(), it); err != nil {
		t.Fatalf("CreateItem(%s): %v", path, err)
	}
	return it
}

func TestUpdateAccountCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateAccount(ctx, account.New(1, time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAccount(ctx, account.New(1, time.Now())); !errors.Is(err, tierledger.ErrAlreadyExists) {
		t.Fatalf("duplicate create: %v", err)
	}

	a, _ := s.GetAccount(ctx, 1)
	b, _ := s.GetAccount(ctx, 1)

	a.Points = 50
	if err := s.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if a.Version != 1 {
		t.Errorf("version after update = %d, want 1", a.Version)
	}

	b.Points = 70
	if err := s.UpdateAccount(ctx, b); !errors.Is(err, tierledger.ErrStorageConflict) {
		t.Fatalf("stale update: got %v, want conflict", err)
	}

	got, _ := s.GetAccount(ctx, 1)
	if got.Points != 50 {
		t.Errorf("points = %d, want 50", got.Points)
	}

	if _, err := s.GetAccount(ctx, 2); !errors.Is(err, tierledger.ErrUserNotFound) {
		t.Errorf("missing account: %v", err)
	}
}

func TestGetAccountReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateAccount(ctx, account.New(1, time.Now()))

	a, _ := s.GetAccount(ctx, 1)
	a.Points = 999
	a.ExpiryDate = day.Ptr()

	b, _ := s.GetAccount(ctx, 1)
	if b.Points != 0 || b.ExpiryDate != nil {
		t.Errorf("mutation leaked into store: %+v", b)
	}
}

func TestRecordDelivery(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateAccount(ctx, account.New(7, time.Now()))
	it := newItem(t, s, "/a.txt")

	acct, _ := s.GetAccount(ctx, 7)
	stale := acct.Clone()

	rec := &delivery.Record{UserID: 7, ItemID: it.ID, Date: day}
	if err := s.RecordDelivery(ctx, rec, acct); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}

	t.Run("stale version leaves no record", func(t *testing.T) {
		other := newItem(t, s, "/b.txt")
		err := s.RecordDelivery(ctx, &delivery.Record{UserID: 7, ItemID: other.ID, Date: day}, stale)
		if !errors.Is(err, tierledger.ErrStorageConflict) {
			t.Fatalf("got %v, want conflict", err)
		}
		if n, _ := s.CountDeliveries(ctx, 7); n != 1 {
			t.Errorf("CountDeliveries = %d, want 1", n)
		}
	})

	t.Run("duplicate pair rejected", func(t *testing.T) {
		fresh, _ := s.GetAccount(ctx, 7)
		err := s.RecordDelivery(ctx, &delivery.Record{UserID: 7, ItemID: it.ID, Date: day.AddDays(1)}, fresh)
		if !errors.Is(err, tierledger.ErrAlreadyExists) {
			t.Fatalf("got %v, want already exists", err)
		}
	})

	t.Run("counts by day", func(t *testing.T) {
		if n, _ := s.CountDeliveriesOn(ctx, 7, day); n != 1 {
			t.Errorf("today = %d, want 1", n)
		}
		if n, _ := s.CountDeliveriesOn(ctx, 7, day.AddDays(1)); n != 0 {
			t.Errorf("tomorrow = %d, want 0", n)
		}
		ids, _ := s.ListDeliveredItemIDs(ctx, 7)
		if len(ids) != 1 || ids[0].String() != it.ID.String() {
			t.Errorf("ListDeliveredItemIDs = %v", ids)
		}
	})
}

func TestItemLookups(t *testing.T) {
	ctx := context.Background()
	s := New()
	it := newItem(t, s, "/docs/a.pdf")

	dup := &catalog.Item{ID: id.NewItemID(), Path: "/docs/a.pdf"}
	if err := s.CreateItem(ctx, dup); !errors.Is(err, tierledger.ErrAlreadyExists) {
		t.Errorf("duplicate path: %v", err)
	}

	changed, err := s.SetItemHandle(ctx, it.ID, "h1")
	if err != nil || !changed {
		t.Fatalf("SetItemHandle first: %v, %v", changed, err)
	}
	if changed, _ := s.SetItemHandle(ctx, it.ID, "h1"); changed {
		t.Error("same handle should be a no-op")
	}
	if changed, _ := s.SetItemHandle(ctx, it.ID, "h2"); !changed {
		t.Error("different handle should replace")
	}
	if _, err := s.GetItemByHandle(ctx, "h1"); !errors.Is(err, tierledger.ErrItemNotFound) {
		t.Errorf("old handle still resolves: %v", err)
	}
	got, err := s.GetItemByHandle(ctx, "h2")
	if err != nil || got.Path != "/docs/a.pdf" {
		t.Errorf("GetItemByHandle: %v, %v", got, err)
	}

	size := int64(42)
	if err := s.UpdateItemSize(ctx, it.ID, &size); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetItemByPath(ctx, "/docs/a.pdf")
	if got.Size == nil || *got.Size != 42 {
		t.Errorf("size = %v", got.Size)
	}
}

func TestTopRated(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newItem(t, s, "/a.txt")
	b := newItem(t, s, "/b.txt")
	c := newItem(t, s, "/c.txt")

	vote := func(user int64, it *catalog.Item, v feedback.Value, d types.Date) {
		t.Helper()
		if err := s.UpsertFeedback(ctx, &feedback.Feedback{UserID: user, ItemID: it.ID, Value: v, Date: d}); err != nil {
			t.Fatal(err)
		}
	}

	vote(1, a, feedback.Like, day)
	vote(2, a, feedback.Like, day)
	vote(1, b, feedback.Like, day)
	vote(2, b, feedback.Like, day)
	vote(3, c, feedback.Like, day.AddDays(-30)) // outside window
	vote(3, b, feedback.Like, day)
	vote(3, b, feedback.Dislike, day) // overwrites the like above

	got, err := s.TopRated(ctx, day.AddDays(-6), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("TopRated = %d rows, want 2", len(got))
	}
	// a and b tie on 2 likes; path order breaks the tie.
	if got[0].Path != "/a.txt" || got[1].Path != "/b.txt" || got[0].Likes != 2 || got[1].Likes != 2 {
		t.Errorf("TopRated = %+v, %+v", got[0], got[1])
	}

	if got, _ := s.TopRated(ctx, day.AddDays(-6), 1); len(got) != 1 {
		t.Errorf("limit not applied: %d rows", len(got))
	}
}

func TestListReceiptsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		r := &receipt.Receipt{
			Entity: types.NewEntityAt(base.Add(time.Duration(i) * time.Hour)),
			ID:     id.NewReceiptID(),
			UserID: 5,
			Days:   i + 1,
		}
		if err := s.CreateReceipt(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListReceipts(ctx, 5, receipt.ListOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Days != 3 || got[1].Days != 2 {
		t.Errorf("ListReceipts = %+v", got)
	}

	if _, err := s.GetReceipt(ctx, id.NewReceiptID()); !errors.Is(err, tierledger.ErrReceiptNotFound) {
		t.Errorf("missing receipt: %v", err)
	}
}

func TestCloseFailsPing(t *testing.T) {
	s := New()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if err := s.Ping(context.Background()); !errors.Is(err, tierledger.ErrStoreClosed) {
		t.Errorf("Ping after Close = %v", err)
	}
}
