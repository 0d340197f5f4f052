package tier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSchedule is returned when a price schedule fails validation.
var ErrInvalidSchedule = errors.New("tier: invalid price schedule")

// Package is one purchasable row of the price schedule.
type Package struct {
	Level  Level  `json:"level" yaml:"level"`
	Days   int    `json:"days" yaml:"days"`
	Points int64  `json:"points" yaml:"points"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	// FromLevel restricts the row to buyers currently at that level.
	// Nil rows apply to everyone without a more specific match.
	FromLevel *Level `json:"from_level,omitempty" yaml:"from_level,omitempty"`
}

// appliesFrom reports whether the row is the specific row for base.
func (p Package) appliesFrom(base Level) bool {
	return p.FromLevel != nil && *p.FromLevel == base
}

// Schedule is the on-disk form of a price table.
type Schedule struct {
	Packages []Package `yaml:"packages"`
	// Durations optionally narrows the purchasable day counts. Empty means
	// every distinct Days value in Packages.
	Durations []int `yaml:"durations,omitempty"`
}

// PriceTable is an immutable, validated price schedule.
// It is safe for concurrent use.
type PriceTable struct {
	packages  []Package
	durations []int
}

// NewPriceTable validates pkgs and builds a table that preserves their order.
func NewPriceTable(pkgs ...Package) (*PriceTable, error) {
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: no packages", ErrInvalidSchedule)
	}

	type key struct {
		level Level
		days  int
		from  Level
	}
	seen := make(map[key]struct{}, len(pkgs))
	for i, p := range pkgs {
		if !p.Level.Purchasable() {
			return nil, fmt.Errorf("%w: package %d: level %d out of range", ErrInvalidSchedule, i, p.Level)
		}
		if p.Days <= 0 {
			return nil, fmt.Errorf("%w: package %d: days must be positive", ErrInvalidSchedule, i)
		}
		if p.Points <= 0 {
			return nil, fmt.Errorf("%w: package %d: points must be positive", ErrInvalidSchedule, i)
		}
		from := Level(-1)
		if p.FromLevel != nil {
			if !p.FromLevel.Valid() {
				return nil, fmt.Errorf("%w: package %d: from_level %d out of range", ErrInvalidSchedule, i, *p.FromLevel)
			}
			from = *p.FromLevel
		}
		k := key{p.Level, p.Days, from}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: package %d: duplicate %s/%dd row", ErrInvalidSchedule, i, p.Level, p.Days)
		}
		seen[k] = struct{}{}
	}

	t := &PriceTable{packages: slices.Clone(pkgs)}
	t.durations = t.distinctDays()

	// Every schedule a buyer can actually see must price longer terms higher.
	for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
		for base := None; base <= MaxLevel; base++ {
			rows := t.effective(lvl, base)
			for i := 1; i < len(rows); i++ {
				if rows[i].Points <= rows[i-1].Points {
					return nil, fmt.Errorf("%w: %s from %s: %dd costs %d, not more than %dd at %d",
						ErrInvalidSchedule, lvl, base, rows[i].Days, rows[i].Points, rows[i-1].Days, rows[i-1].Points)
				}
			}
		}
	}

	return t, nil
}

// MustPriceTable is like NewPriceTable but panics on error.
func MustPriceTable(pkgs ...Package) *PriceTable {
	t, err := NewPriceTable(pkgs...)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadPriceTable decodes a YAML schedule from r.
func LoadPriceTable(r io.Reader) (*PriceTable, error) {
	var s Schedule
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("tier: decode schedule: %w", err)
	}
	t, err := NewPriceTable(s.Packages...)
	if err != nil {
		return nil, err
	}
	if len(s.Durations) > 0 {
		return t.WithDurations(s.Durations...)
	}
	return t, nil
}

// LoadPriceTableFile reads a YAML schedule from path.
func LoadPriceTableFile(path string) (*PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tier: open schedule: %w", err)
	}
	defer f.Close()

	return LoadPriceTable(f)
}

// DefaultPriceTable returns the built-in schedule.
func DefaultPriceTable() *PriceTable {
	renewing := Level(2)
	return MustPriceTable(
		Package{Level: 1, Days: 30, Points: 60, Label: "VIP1 30 days"},
		Package{Level: 1, Days: 90, Points: 160, Label: "VIP1 90 days"},
		Package{Level: 1, Days: 365, Points: 600, Label: "VIP1 365 days"},
		Package{Level: 2, Days: 30, Points: 150, Label: "VIP2 30 days"},
		Package{Level: 2, Days: 30, Points: 100, Label: "VIP2 30 days (renewal)", FromLevel: &renewing},
		Package{Level: 2, Days: 90, Points: 400, Label: "VIP2 90 days"},
		Package{Level: 2, Days: 365, Points: 1500, Label: "VIP2 365 days"},
		Package{Level: 3, Days: 30, Points: 300, Label: "VIP3 30 days"},
		Package{Level: 3, Days: 90, Points: 800, Label: "VIP3 90 days"},
		Package{Level: 3, Days: 365, Points: 3000, Label: "VIP3 365 days"},
	)
}

// WithDurations returns a copy of t whose purchasable day counts are limited
// to days. Every entry must be a positive day count.
func (t *PriceTable) WithDurations(days ...int) (*PriceTable, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty duration set", ErrInvalidSchedule)
	}
	ds := slices.Clone(days)
	for _, d := range ds {
		if d <= 0 {
			return nil, fmt.Errorf("%w: duration %d must be positive", ErrInvalidSchedule, d)
		}
	}
	slices.Sort(ds)
	return &PriceTable{packages: t.packages, durations: slices.Compact(ds)}, nil
}

// Packages returns the schedule rows in their configured order.
func (t *PriceTable) Packages() []Package {
	return slices.Clone(t.packages)
}

// Durations returns the allowed purchase lengths in days, ascending.
func (t *PriceTable) Durations() []int {
	return slices.Clone(t.durations)
}

// AllowsDuration reports whether days is a purchasable length.
func (t *PriceTable) AllowsDuration(days int) bool {
	_, ok := slices.BinarySearch(t.durations, days)
	return ok
}

// Offers returns the rows a buyer at current should be shown. Everything is
// offered when the buyer has no active tier; otherwise only the same level
// or higher. A row tied to the buyer's level replaces the default row of the
// same length; rows tied to other levels are hidden.
func (t *PriceTable) Offers(current Level, active bool) []Package {
	var out []Package
	for _, p := range t.packages {
		if p.FromLevel != nil && *p.FromLevel != current {
			continue
		}
		if p.FromLevel == nil && t.hasSpecific(p.Level, p.Days, current) {
			continue
		}
		if current != None && active && p.Level < current {
			continue
		}
		if !t.AllowsDuration(p.Days) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PriceFor returns the points value of holding level for days, as seen by a
// buyer currently at base. An exact schedule row wins; zero days is free; any
// other length is prorated from the neighbouring rows, rounding down. The
// boolean is false when level has no rows at all for that buyer.
func (t *PriceTable) PriceFor(level Level, days int, base Level) (int64, bool) {
	rows := t.effective(level, base)
	if len(rows) == 0 {
		return 0, false
	}
	if days <= 0 {
		return 0, true
	}

	i := sort.Search(len(rows), func(i int) bool { return rows[i].Days >= days })
	switch {
	case i < len(rows) && rows[i].Days == days:
		return rows[i].Points, true
	case i == 0:
		// Shorter than the shortest row.
		return rows[0].Points * int64(days) / int64(rows[0].Days), true
	case i == len(rows):
		// Longer than the longest row.
		last := rows[len(rows)-1]
		return last.Points * int64(days) / int64(last.Days), true
	default:
		lo, hi := rows[i-1], rows[i]
		span := int64(hi.Days - lo.Days)
		return lo.Points + (hi.Points-lo.Points)*int64(days-lo.Days)/span, true
	}
}

// effective returns the rows a buyer at base sees for level, one per day
// count, sorted by days. A from-level row replaces the default row of the
// same length.
func (t *PriceTable) effective(level Level, base Level) []Package {
	byDays := make(map[int]Package)
	for _, p := range t.packages {
		if p.Level != level {
			continue
		}
		switch {
		case p.appliesFrom(base):
			byDays[p.Days] = p
		case p.FromLevel == nil:
			if cur, ok := byDays[p.Days]; !ok || !cur.appliesFrom(base) {
				byDays[p.Days] = p
			}
		}
	}

	rows := make([]Package, 0, len(byDays))
	for _, p := range byDays {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Days < rows[j].Days })
	return rows
}

func (t *PriceTable) hasSpecific(level Level, days int, base Level) bool {
	for _, p := range t.packages {
		if p.Level == level && p.Days == days && p.appliesFrom(base) {
			return true
		}
	}
	return false
}

func (t *PriceTable) distinctDays() []int {
	ds := make([]int, 0, len(t.packages))
	for _, p := range t.packages {
		ds = append(ds, p.Days)
	}
	slices.Sort(ds)
	return slices.Compact(ds)
}
