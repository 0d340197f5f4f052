package tierledger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/tierledger"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestSyncCatalog(t *testing.T) {
	p := &recordingPlugin{}
	h := newHarness(t, tierledger.WithPlugin(p))
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "nested", "b.PDF"), "bravo")
	writeFile(t, filepath.Join(root, "c.jpg"), "ignored")

	res, err := h.l.SyncCatalog(ctx, root)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if res != (catalog.SyncResult{Inserted: 2}) {
		t.Errorf("first sync = %+v", res)
	}

	res, _ = h.l.SyncCatalog(ctx, root)
	if res != (catalog.SyncResult{Skipped: 2}) {
		t.Errorf("second sync = %+v", res)
	}

	writeFile(t, filepath.Join(root, "a.txt"), "alpha, longer now")
	res, _ = h.l.SyncCatalog(ctx, root)
	if res != (catalog.SyncResult{Updated: 1, Skipped: 1}) {
		t.Errorf("third sync = %+v", res)
	}

	it, err := h.store.GetItemByPath(ctx, filepath.Join(root, "a.txt"))
	if err != nil || it.Size == nil || *it.Size != int64(len("alpha, longer now")) {
		t.Errorf("item after resize = %+v, %v", it, err)
	}

	p.mu.Lock()
	if len(p.synced) != 3 {
		t.Errorf("sync events = %d, want 3", len(p.synced))
	}
	p.mu.Unlock()

	if _, err := h.l.SyncCatalog(ctx, filepath.Join(root, "missing")); err == nil {
		t.Error("missing root should fail")
	}
}

func TestSyncMakesNewItemsDeliverable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.txt"), "1")

	if _, err := h.l.SyncCatalog(ctx, root); err != nil {
		t.Fatal(err)
	}
	if _, err := h.l.RequestDistribution(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := h.l.RequestDistribution(ctx, 1); !errors.Is(err, tierledger.ErrNoItemsAvailable) {
		t.Fatalf("want no items, got %v", err)
	}

	writeFile(t, filepath.Join(root, "two.txt"), "2")
	if _, err := h.l.SyncCatalog(ctx, root, "txt"); err != nil {
		t.Fatal(err)
	}
	d, err := h.l.RequestDistribution(ctx, 1)
	if err != nil {
		t.Fatalf("after sync: %v", err)
	}
	if filepath.Base(d.Item.Path) != "two.txt" {
		t.Errorf("delivered %s, want two.txt", d.Item.Path)
	}
}

func TestRegisterItemIsGetOrCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.l.RegisterItem(ctx, "/x.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	size := int64(9)
	second, err := h.l.RegisterItem(ctx, "/x.txt", &size)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID.String() != second.ID.String() {
		t.Error("same path should map to the same item")
	}
	if second.Size == nil || *second.Size != 9 {
		t.Errorf("size = %v", second.Size)
	}

	if _, err := h.l.RegisterItem(ctx, "", nil); !errors.Is(err, tierledger.ErrInvalidInput) {
		t.Errorf("empty path = %v", err)
	}
	if _, err := h.l.GetItem(ctx, id.NewItemID()); !errors.Is(err, tierledger.ErrItemNotFound) {
		t.Errorf("unknown item = %v", err)
	}
}

func TestClearCacheIsSafe(t *testing.T) {
	h := newHarness(t, tierledger.WithCatalogCache(1, time.Minute))
	h.items(t, 2)
	h.l.ClearCache()
	if _, err := h.l.RequestDistribution(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
}

func TestRecordFeedbackAndTopRated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, _ := h.l.RegisterItem(ctx, "/a.txt", nil)
	b, _ := h.l.RegisterItem(ctx, "/b.txt", nil)

	mustVote := func(user int64, it *catalog.Item, v feedback.Value) {
		t.Helper()
		if _, err := h.l.RecordFeedback(ctx, user, it.ID, v); err != nil {
			t.Fatalf("RecordFeedback: %v", err)
		}
	}

	mustVote(1, b, feedback.Like)
	mustVote(2, b, feedback.Like)
	mustVote(1, a, feedback.Like)
	mustVote(1, a, feedback.Dislike) // replaces the like

	top, err := h.l.TopRated(ctx, 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].Path != "/b.txt" || top[0].Likes != 2 {
		t.Fatalf("TopRated = %+v", top)
	}

	// Likes age out of the window.
	h.clock.Advance(8 * 24 * time.Hour)
	if top, _ := h.l.TopRated(ctx, 7, 0); len(top) != 0 {
		t.Errorf("stale likes counted: %+v", top)
	}

	if _, err := h.l.RecordFeedback(ctx, 1, a.ID, 0); !errors.Is(err, tierledger.ErrInvalidFeedback) {
		t.Errorf("zero value = %v", err)
	}
	if _, err := h.l.RecordFeedback(ctx, 1, id.NewItemID(), feedback.Like); !errors.Is(err, tierledger.ErrItemNotFound) {
		t.Errorf("unknown item = %v", err)
	}
	if _, err := h.l.TopRated(ctx, 0, 5); !errors.Is(err, tierledger.ErrInvalidInput) {
		t.Errorf("zero window = %v", err)
	}
}
