package account

import (
	"testing"
	"time"

	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

func TestAccountActivity(t *testing.T) {
	today := types.NewDate(2024, 6, 1)

	tests := []struct {
		name      string
		level     tier.Level
		expiry    *types.Date
		active    bool
		remaining int
	}{
		{"no tier", 0, nil, false, 0},
		{"level without expiry", 2, nil, false, 0},
		{"expired yesterday", 1, today.AddDays(-1).Ptr(), false, 0},
		{"expires today", 1, today.Ptr(), true, 0},
		{"forty days left", 1, today.AddDays(40).Ptr(), true, 40},
		{"level zero with stale expiry", 0, today.AddDays(10).Ptr(), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{UserID: 1, Level: tt.level, ExpiryDate: tt.expiry}
			if got := a.IsActive(today); got != tt.active {
				t.Errorf("IsActive = %v, want %v", got, tt.active)
			}
			if got := a.RemainingDays(today); got != tt.remaining {
				t.Errorf("RemainingDays = %d, want %d", got, tt.remaining)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := New(7, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	a.ExpiryDate = types.NewDate(2024, 2, 1).Ptr()

	c := a.Clone()
	*c.ExpiryDate = types.NewDate(2030, 1, 1)
	c.Points = 99

	if !a.ExpiryDate.Equal(types.NewDate(2024, 2, 1)) {
		t.Error("clone shares expiry pointer with original")
	}
	if a.Points != 0 {
		t.Error("clone shares points with original")
	}
}
