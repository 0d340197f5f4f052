// Package tier defines entitlement levels, their daily distribution caps, and
// the points price schedule used to buy and prorate them.
package tier

import "fmt"

// Level is a subscription rank. Zero means "no subscription".
type Level int

// Level bounds.
const (
	None     Level = 0
	MinLevel Level = 1
	MaxLevel Level = 3
)

// Valid reports whether l is a storable level (0..3).
func (l Level) Valid() bool { return l >= None && l <= MaxLevel }

// Purchasable reports whether l can be bought with points (1..3).
func (l Level) Purchasable() bool { return l >= MinLevel && l <= MaxLevel }

// String returns "none" for level 0 and "vip<N>" otherwise.
func (l Level) String() string {
	if l == None {
		return "none"
	}
	return fmt.Sprintf("vip%d", int(l))
}

// dailyCaps maps a level to the number of items it may receive per calendar day.
var dailyCaps = map[Level]int{
	0: 10,
	1: 30,
	2: 50,
	3: 100,
}

// DailyCap returns the per-day distribution cap for level. Unknown levels get
// the level-0 cap.
func DailyCap(l Level) int {
	if c, ok := dailyCaps[l]; ok {
		return c
	}
	return dailyCaps[None]
}
