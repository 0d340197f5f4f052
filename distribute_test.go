package tierledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tierledger"
)

func TestQuotaStopsAtDailyCap(t *testing.T) {
	p := &recordingPlugin{}
	h := newHarness(t, tierledger.WithPlugin(p))
	ctx := context.Background()
	h.items(t, 25)

	for i := range 10 {
		d, err := h.l.RequestDistribution(ctx, 1)
		if err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
		if d.DailyCap != 10 || d.RemainingAfter != 9-i {
			t.Errorf("delivery %d: cap %d remaining %d", i+1, d.DailyCap, d.RemainingAfter)
		}
	}

	_, err := h.l.RequestDistribution(ctx, 1)
	var qe *tierledger.QuotaExceededError
	if !errors.As(err, &qe) || qe.Cap != 10 || qe.Used != 10 {
		t.Fatalf("11th delivery = %v, want quota exceeded at 10", err)
	}
	if !errors.Is(err, tierledger.ErrQuotaExceeded) {
		t.Error("typed error should match the sentinel")
	}
	if left, _ := h.l.RemainingQuota(ctx, 1); left != 0 {
		t.Errorf("RemainingQuota = %d, want 0", left)
	}

	// A new calendar day resets the window.
	h.clock.Advance(24 * time.Hour)
	if left, _ := h.l.RemainingQuota(ctx, 1); left != 10 {
		t.Errorf("RemainingQuota next day = %d, want 10", left)
	}
	if _, err := h.l.RequestDistribution(ctx, 1); err != nil {
		t.Errorf("next-day delivery: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.quota) != 1 || p.quota[0] != 10 {
		t.Errorf("quota events = %v", p.quota)
	}
	if len(p.sent) != 11 {
		t.Errorf("delivery events = %d, want 11", len(p.sent))
	}
}

func TestDailyCapFollowsLevel(t *testing.T) {
	tests := []struct {
		level int
		cap   int
	}{
		{0, 10}, {1, 30}, {2, 50}, {3, 100},
	}
	for _, tt := range tests {
		h := newHarness(t)
		h.seed(t, 1, 0, tierledger.Level(tt.level), days(10))
		left, err := h.l.RemainingQuota(context.Background(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if left != tt.cap {
			t.Errorf("level %d: RemainingQuota = %d, want %d", tt.level, left, tt.cap)
		}
	}
}

func TestQuotaIgnoresCatalogSize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.items(t, 3)

	for range 3 {
		if _, err := h.l.RequestDistribution(ctx, 1); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := h.l.RequestDistribution(ctx, 1); !errors.Is(err, tierledger.ErrNoItemsAvailable) {
		t.Errorf("exhausted catalog = %v", err)
	}
	if left, _ := h.l.RemainingQuota(ctx, 1); left != 7 {
		t.Errorf("a failed pick must not use quota: remaining %d", left)
	}
}

func TestNoItemIsDeliveredTwice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, 1, 0, 3, days(30))
	h.items(t, 40)

	seen := make(map[string]bool)
	for day := range 3 {
		for range 15 {
			d, err := h.l.RequestDistribution(ctx, 1)
			if errors.Is(err, tierledger.ErrNoItemsAvailable) {
				break
			}
			if err != nil {
				t.Fatalf("day %d: %v", day, err)
			}
			key := d.Item.ID.String()
			if seen[key] {
				t.Fatalf("item %s delivered twice", d.Item.Path)
			}
			seen[key] = true
		}
		h.clock.Advance(24 * time.Hour)
	}

	if len(seen) != 40 {
		t.Errorf("delivered %d distinct items, want 40", len(seen))
	}
	if n, _ := h.l.SentCount(ctx, 1); n != 40 {
		t.Errorf("SentCount = %d, want 40", n)
	}
}

func TestConcurrentDeliveriesRespectQuota(t *testing.T) {
	h := newHarness(t, tierledger.WithMaxRetries(100))
	ctx := context.Background()
	h.items(t, 50)
	if _, err := h.l.EnsureAccount(ctx, 1); err != nil {
		t.Fatal(err)
	}

	const workers = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		got   []string
		other []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := h.l.RequestDistribution(ctx, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				got = append(got, d.Item.ID.String())
			case errors.Is(err, tierledger.ErrQuotaExceeded):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if len(got) != 10 {
		t.Errorf("%d deliveries succeeded, want exactly the cap of 10", len(got))
	}
	distinct := make(map[string]struct{})
	for _, g := range got {
		distinct[g] = struct{}{}
	}
	if len(distinct) != len(got) {
		t.Errorf("duplicate deliveries: %v", got)
	}
	if n, _ := h.l.SentCount(ctx, 1); n != int64(len(got)) {
		t.Errorf("SentCount = %d, successes = %d", n, len(got))
	}

	// A sequential follow-up finds the day already drained.
	if _, err := h.l.RequestDistribution(ctx, 1); !errors.Is(err, tierledger.ErrQuotaExceeded) {
		t.Errorf("follow-up request = %v, want ErrQuotaExceeded", err)
	}
	if n, _ := h.l.SentCount(ctx, 1); n != 10 {
		t.Errorf("SentCount after drain = %d, want 10", n)
	}
}

func TestSeededPicksAreReproducible(t *testing.T) {
	run := func() []string {
		h := newHarness(t)
		h.items(t, 20)
		var paths []string
		for range 5 {
			d, err := h.l.RequestDistribution(context.Background(), 1)
			if err != nil {
				t.Fatal(err)
			}
			paths = append(paths, d.Item.Path)
		}
		return paths
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged: %v vs %v", a, b)
		}
	}
}

func TestCacheAndResolveHandle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.items(t, 1)

	d, err := h.l.RequestDistribution(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Item.HasHandle() {
		t.Fatal("fresh item should have no handle")
	}

	if err := h.l.CacheHandle(ctx, d.Item.ID, "file-abc"); err != nil {
		t.Fatal(err)
	}
	if err := h.l.CacheHandle(ctx, d.Item.ID, "file-abc"); err != nil {
		t.Fatalf("repeat write should be a no-op: %v", err)
	}

	it, err := h.l.ResolveHandle(ctx, "file-abc")
	if err != nil || it.ID.String() != d.Item.ID.String() {
		t.Errorf("ResolveHandle = %+v, %v", it, err)
	}
	if _, err := h.l.ResolveHandle(ctx, "nope"); !tierledger.IsNotFound(err) {
		t.Errorf("unknown handle = %v", err)
	}
	if err := h.l.CacheHandle(ctx, d.Item.ID, ""); !errors.Is(err, tierledger.ErrInvalidInput) {
		t.Errorf("empty handle = %v", err)
	}
}
