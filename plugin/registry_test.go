package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
)

type recorder struct {
	name string
	mu   sync.Mutex
	seen []string
	err  error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(ev string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ev)
	return r.err
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func (r *recorder) OnTierChanged(context.Context, *receipt.Receipt) error { return r.add("tier") }

func (r *recorder) OnQuotaExceeded(context.Context, int64, tier.Level, int) error {
	return r.add("quota")
}

func (r *recorder) OnItemDelivered(context.Context, *delivery.Record, int) error {
	return r.add("delivered")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnCatalogSynced(ctx context.Context, _ catalog.SyncResult, _ time.Duration) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterDispatchesToImplementedHooks(t *testing.T) {
	r := quietRegistry()
	p := &recorder{name: "rec"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	r.EmitTierChanged(ctx, &receipt.Receipt{})
	r.EmitQuotaExceeded(ctx, 1, 0, 10)
	r.EmitItemDelivered(ctx, &delivery.Record{}, 3)
	r.EmitFeedbackRecorded(ctx, nil) // not implemented by recorder

	got := p.events()
	want := []string{"tier", "quota", "delivered"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recorder{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&recorder{name: "dup"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if r.Get("dup") == nil || r.Get("missing") != nil {
		t.Error("Get lookup mismatch")
	}
	if len(r.List()) != 1 {
		t.Errorf("List() = %v", r.List())
	}
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	r := quietRegistry()
	p := &recorder{name: "failing", err: errors.New("boom")}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	r.EmitTierChanged(context.Background(), &receipt.Receipt{})
	if len(p.events()) != 1 {
		t.Error("hook should still have been called")
	}
}

func TestSlowHookTimesOut(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	if err := r.Register(slowPlugin{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitCatalogSynced(context.Background(), catalog.SyncResult{}, 0)
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("emit blocked for %v, expected timeout", elapsed)
	}
}
