package feedback

import (
	"cmp"
	"slices"

	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

// Value is a user's verdict on an item.
type Value int

const (
	Dislike Value = -1
	Like    Value = 1
)

// Valid reports whether v is Like or Dislike.
func (v Value) Valid() bool { return v == Like || v == Dislike }

// Feedback is the latest verdict a user gave an item. A newer verdict for the
// same pair replaces the old one.
type Feedback struct {
	types.Entity
	UserID int64      `json:"user_id"`
	ItemID id.ItemID  `json:"item_id"`
	Value  Value      `json:"value"`
	Date   types.Date `json:"date"`
}

// Ranking is one row of the most-liked list.
type Ranking struct {
	ItemID id.ItemID `json:"item_id"`
	Path   string    `json:"path"`
	Handle string    `json:"handle,omitempty"`
	Likes  int64     `json:"likes"`
}

// SortRankings orders rs by likes descending, then path ascending.
func SortRankings(rs []*Ranking) {
	slices.SortFunc(rs, func(a, b *Ranking) int {
		if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
}
