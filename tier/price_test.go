package tier

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPriceTableExactRows(t *testing.T) {
	pt := DefaultPriceTable()

	tests := []struct {
		name  string
		level Level
		days  int
		base  Level
		want  int64
	}{
		{"vip1 30d", 1, 30, 0, 60},
		{"vip1 90d", 1, 90, 1, 160},
		{"vip2 30d from vip1", 2, 30, 1, 150},
		{"vip2 30d renewal", 2, 30, 2, 100},
		{"vip2 90d renewal falls back to default row", 2, 90, 2, 400},
		{"vip3 365d", 3, 365, 0, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pt.PriceFor(tt.level, tt.days, tt.base)
			if !ok {
				t.Fatal("expected a plan")
			}
			if got != tt.want {
				t.Errorf("PriceFor(%d, %d, %d) = %d, want %d", tt.level, tt.days, tt.base, got, tt.want)
			}
		})
	}
}

func TestPriceForProration(t *testing.T) {
	pt := DefaultPriceTable()

	tests := []struct {
		name  string
		level Level
		days  int
		base  Level
		want  int64
	}{
		{"zero days is free", 1, 0, 1, 0},
		{"below shortest row", 1, 20, 1, 40},
		{"one day", 1, 1, 1, 2},
		{"between rows", 1, 60, 1, 110},
		{"just under a row", 1, 89, 1, 158},
		{"beyond longest row", 1, 730, 1, 1200},
		{"renewal schedule prorates from renewal row", 2, 15, 2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pt.PriceFor(tt.level, tt.days, tt.base)
			if !ok {
				t.Fatal("expected a plan")
			}
			if got != tt.want {
				t.Errorf("PriceFor(%d, %d, %d) = %d, want %d", tt.level, tt.days, tt.base, got, tt.want)
			}
		})
	}
}

func TestPriceForNoSuchPlan(t *testing.T) {
	only := Level(2)
	pt := MustPriceTable(
		Package{Level: 1, Days: 30, Points: 60},
		Package{Level: 2, Days: 30, Points: 100, FromLevel: &only},
	)

	if _, ok := pt.PriceFor(3, 30, 0); ok {
		t.Error("level without rows should have no plan")
	}
	if _, ok := pt.PriceFor(2, 30, 1); ok {
		t.Error("from-level row must not apply to other buyers")
	}
	if got, ok := pt.PriceFor(2, 30, 2); !ok || got != 100 {
		t.Errorf("PriceFor(2, 30, 2) = %d, %v", got, ok)
	}
}

func TestPriceForMonotonicInDays(t *testing.T) {
	pt := DefaultPriceTable()

	for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
		for base := None; base <= lvl; base++ {
			var prev int64 = -1
			for _, d := range pt.Durations() {
				got, ok := pt.PriceFor(lvl, d, base)
				if !ok {
					t.Fatalf("no plan for %s %dd from %s", lvl, d, base)
				}
				if got <= prev {
					t.Errorf("%s from %s: %dd costs %d, not more than previous %d", lvl, base, d, got, prev)
				}
				prev = got
			}

			// Prorated values never decrease either.
			prev = -1
			for d := 0; d <= 400; d++ {
				got, _ := pt.PriceFor(lvl, d, base)
				if got < prev {
					t.Fatalf("%s from %s: %dd costs %d, less than %dd", lvl, base, d, got, d-1)
				}
				prev = got
			}
		}
	}
}

func TestNewPriceTableValidation(t *testing.T) {
	bad := Level(7)
	tests := []struct {
		name string
		pkgs []Package
	}{
		{"empty", nil},
		{"level zero", []Package{{Level: 0, Days: 30, Points: 10}}},
		{"level too high", []Package{{Level: 4, Days: 30, Points: 10}}},
		{"zero days", []Package{{Level: 1, Days: 0, Points: 10}}},
		{"zero points", []Package{{Level: 1, Days: 30, Points: 0}}},
		{"bad from level", []Package{{Level: 1, Days: 30, Points: 10, FromLevel: &bad}}},
		{"duplicate", []Package{{Level: 1, Days: 30, Points: 10}, {Level: 1, Days: 30, Points: 20}}},
		{"not increasing", []Package{{Level: 1, Days: 30, Points: 100}, {Level: 1, Days: 90, Points: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceTable(tt.pkgs...)
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	pt := DefaultPriceTable()
	got := pt.Durations()
	want := []int{30, 90, 365}
	if len(got) != len(want) {
		t.Fatalf("Durations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Durations() = %v, want %v", got, want)
		}
	}
	if !pt.AllowsDuration(90) || pt.AllowsDuration(60) {
		t.Error("AllowsDuration mismatch")
	}

	narrowed, err := pt.WithDurations(365, 30, 30)
	if err != nil {
		t.Fatal(err)
	}
	if narrowed.AllowsDuration(90) || !narrowed.AllowsDuration(30) {
		t.Error("narrowed durations mismatch")
	}
	if len(narrowed.Durations()) != 2 {
		t.Errorf("expected compacted durations, got %v", narrowed.Durations())
	}

	if _, err := pt.WithDurations(); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule for empty set, got %v", err)
	}
}

func TestOffers(t *testing.T) {
	pt := DefaultPriceTable()

	t.Run("no tier sees every default row", func(t *testing.T) {
		offers := pt.Offers(None, false)
		if len(offers) != 9 {
			t.Fatalf("expected 9 offers, got %d", len(offers))
		}
		for _, p := range offers {
			if p.FromLevel != nil {
				t.Errorf("unexpected from-level row %+v", p)
			}
		}
	})

	t.Run("active vip2 sees vip2 and vip3 with renewal price", func(t *testing.T) {
		offers := pt.Offers(2, true)
		if len(offers) != 6 {
			t.Fatalf("expected 6 offers, got %d", len(offers))
		}
		for _, p := range offers {
			if p.Level < 2 {
				t.Errorf("lower level offered: %+v", p)
			}
			if p.Level == 2 && p.Days == 30 && p.Points != 100 {
				t.Errorf("expected renewal price, got %+v", p)
			}
		}
	})

	t.Run("expired vip2 sees everything", func(t *testing.T) {
		if got := len(pt.Offers(2, false)); got != 9 {
			t.Errorf("expected 9 offers, got %d", got)
		}
	})
}

const sampleSchedule = `
packages:
  - level: 1
    days: 30
    points: 60
    label: Starter
  - level: 1
    days: 90
    points: 160
  - level: 2
    days: 30
    points: 150
  - level: 2
    days: 30
    points: 100
    from_level: 2
durations: [30]
`

func TestLoadPriceTable(t *testing.T) {
	pt, err := LoadPriceTable(strings.NewReader(sampleSchedule))
	if err != nil {
		t.Fatalf("LoadPriceTable: %v", err)
	}

	if got := len(pt.Packages()); got != 4 {
		t.Errorf("expected 4 packages, got %d", got)
	}
	if pt.Packages()[0].Label != "Starter" {
		t.Errorf("order not preserved: %+v", pt.Packages()[0])
	}
	if pt.AllowsDuration(90) {
		t.Error("durations override ignored")
	}
	if got, _ := pt.PriceFor(2, 30, 2); got != 100 {
		t.Errorf("from_level row not loaded, got %d", got)
	}
}

func TestLoadPriceTableErrors(t *testing.T) {
	if _, err := LoadPriceTable(strings.NewReader("packages: [{level: 1, days: 30, points: 60, bogus: 1}]")); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, err := LoadPriceTable(strings.NewReader("packages: [{level: 9, days: 30, points: 60}]")); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestLoadPriceTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	if err := os.WriteFile(path, []byte(sampleSchedule), 0o600); err != nil {
		t.Fatal(err)
	}

	pt, err := LoadPriceTableFile(path)
	if err != nil {
		t.Fatalf("LoadPriceTableFile: %v", err)
	}
	if got, ok := pt.PriceFor(1, 90, 1); !ok || got != 160 {
		t.Errorf("PriceFor(1, 90, 1) = %d, %v", got, ok)
	}

	if _, err := LoadPriceTableFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
