package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateDaysUntil(t *testing.T) {
	tests := []struct {
		name string
		from Date
		to   Date
		want int
	}{
		{"same day", NewDate(2024, 1, 1), NewDate(2024, 1, 1), 0},
		{"one day", NewDate(2024, 1, 1), NewDate(2024, 1, 2), 1},
		{"across month", NewDate(2024, 1, 31), NewDate(2024, 2, 10), 10},
		{"leap year", NewDate(2024, 2, 28), NewDate(2024, 3, 1), 2},
		{"full year", NewDate(2024, 1, 1), NewDate(2025, 1, 1), 366},
		{"backwards", NewDate(2024, 1, 10), NewDate(2024, 1, 1), -9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.DaysUntil(tt.to); got != tt.want {
				t.Errorf("DaysUntil: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDateAddDaysRoundTrip(t *testing.T) {
	base := NewDate(2024, 1, 1)
	for _, n := range []int{0, 1, 29, 30, 90, 365, -15} {
		got := base.AddDays(n)
		if base.DaysUntil(got) != n {
			t.Errorf("AddDays(%d): DaysUntil = %d", n, base.DaysUntil(got))
		}
	}
}

func TestDateOfIgnoresClock(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	late := time.Date(2024, 3, 5, 23, 59, 0, 0, loc)
	if got := DateOf(late); !got.Equal(NewDate(2024, 3, 5)) {
		t.Errorf("DateOf: got %s, want 2024-03-05", got)
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2024, 1, 1)
	b := NewDate(2024, 1, 2)

	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering is wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After ordering is wrong")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Error("Compare ordering is wrong")
	}
	if !MaxDate(a, b).Equal(b) || !MaxDate(b, a).Equal(b) {
		t.Error("MaxDate should return the later date")
	}
	if !(Date{}).Before(a) {
		t.Error("zero date should sort first")
	}
}

func TestDateParseAndString(t *testing.T) {
	d, err := ParseDate("2024-07-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-07-15" {
		t.Errorf("String: got %q", d.String())
	}

	zero, err := ParseDate("")
	if err != nil || !zero.IsZero() {
		t.Errorf("empty string should parse to zero date, got %v, %v", zero, err)
	}

	if _, err := ParseDate("15/07/2024"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D  Date  `json:"d"`
		P  *Date `json:"p,omitempty"`
		Zr Date  `json:"zr"`
	}

	in := wrapper{D: NewDate(2024, 2, 29), P: NewDate(2025, 1, 1).Ptr()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"d":"2024-02-29","p":"2025-01-01","zr":null}`
	if string(data) != want {
		t.Errorf("marshal: got %s, want %s", data, want)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.D.Equal(in.D) || out.P == nil || !out.P.Equal(*in.P) || !out.Zr.IsZero() {
		t.Errorf("unmarshal mismatch: %+v", out)
	}
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want Date
	}{
		{"nil", nil, Date{}},
		{"string", "2024-05-01", NewDate(2024, 5, 1)},
		{"bytes", []byte("2024-05-01"), NewDate(2024, 5, 1)},
		{"time", time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), NewDate(2024, 5, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if !d.Equal(tt.want) {
				t.Errorf("Scan: got %s, want %s", d, tt.want)
			}
		})
	}

	var d Date
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestDatePtrHelpers(t *testing.T) {
	if DatePtrString(nil) != "" {
		t.Error("nil pointer should render empty")
	}
	p, err := ParseDatePtr("")
	if err != nil || p != nil {
		t.Errorf("empty string should yield nil pointer, got %v, %v", p, err)
	}
	p, err = ParseDatePtr("2024-12-31")
	if err != nil || p == nil || DatePtrString(p) != "2024-12-31" {
		t.Errorf("round trip failed: %v, %v", p, err)
	}
}
