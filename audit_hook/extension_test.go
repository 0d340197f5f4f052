package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/tierledger"
	audithook "github.com/xraph/tierledger/audit_hook"
	"github.com/xraph/tierledger/store/memory"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (r *memRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *memRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func (r *memRecorder) find(action string) *audithook.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Action == action {
			return e
		}
	}
	return nil
}

func newLedger(t *testing.T, opts ...audithook.Option) (*tierledger.Ledger, *memRecorder) {
	t.Helper()
	rec := &memRecorder{}
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]audithook.Option{audithook.WithLogger(discard)}, opts...)
	l := tierledger.New(memory.New(),
		tierledger.WithLogger(discard),
		tierledger.WithPlugin(audithook.New(rec, opts...)),
	)
	return l, rec
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	l, rec := newLedger(t)

	if _, err := l.GrantPoints(ctx, 5, 500); err != nil {
		t.Fatal(err)
	}
	r, err := l.ConfirmTransition(ctx, 5, tierledger.VIP2, 30)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ConfirmTransition(ctx, 5, tierledger.VIP1, 30); !errors.Is(err, tierledger.ErrDowngradeForbidden) {
		t.Fatalf("err = %v, want ErrDowngradeForbidden", err)
	}
	if _, err := l.AdminSetLevelAndExpiry(ctx, 5, tierledger.VIP3, 10); err != nil {
		t.Fatal(err)
	}

	want := []string{
		audithook.ActionPointsGranted,
		audithook.ActionTierUpgraded,
		audithook.ActionTransitionRejected,
		audithook.ActionTierOverridden,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	upgraded := rec.find(audithook.ActionTierUpgraded)
	if upgraded.ResourceID != r.ID.String() {
		t.Errorf("ResourceID = %s, want receipt %s", upgraded.ResourceID, r.ID)
	}
	if upgraded.Metadata["points_charged"] != int64(150) {
		t.Errorf("points_charged = %v, want 150", upgraded.Metadata["points_charged"])
	}

	rejected := rec.find(audithook.ActionTransitionRejected)
	if rejected.Outcome != audithook.OutcomeFailure || rejected.Reason == "" {
		t.Errorf("rejected event = %+v, want a failure with a reason", rejected)
	}
	if rejected.ResourceID != "5" {
		t.Errorf("ResourceID = %q, want %q", rejected.ResourceID, "5")
	}
}

func TestEnabledAndDisabledActions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"all", nil, 2},
		{"only debits", []audithook.Option{audithook.WithEnabledActions(audithook.ActionPointsDebited)}, 1},
		{"grants disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionPointsGranted)}, 1},
		{"nothing relevant", []audithook.Option{audithook.WithEnabledActions(audithook.ActionCatalogSynced)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, rec := newLedger(t, tt.opts...)
			if _, err := l.GrantPoints(ctx, 1, 10); err != nil {
				t.Fatal(err)
			}
			if _, err := l.GrantPoints(ctx, 1, -4); err != nil {
				t.Fatal(err)
			}
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("recorded %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestRecorderFailureDoesNotFailOperation(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("audit backend down")
	})
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := tierledger.New(memory.New(),
		tierledger.WithLogger(discard),
		tierledger.WithPlugin(audithook.New(failing, audithook.WithLogger(discard))),
	)
	acct, err := l.GrantPoints(context.Background(), 2, 30)
	if err != nil {
		t.Fatalf("GrantPoints() = %v, want success despite audit failure", err)
	}
	if acct.Points != 30 {
		t.Errorf("Points = %d, want 30", acct.Points)
	}
}
