package tierledger

import (
	"github.com/xraph/tierledger/command"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Re-export common types for convenience so users don't have to import the
// leaf packages for everyday calls.

// Entity is re-exported from types package.
type Entity = types.Entity

// Date is re-exported from types package.
type Date = types.Date

// Level is re-exported from tier package.
type Level = tier.Level

// Receipt is re-exported from receipt package.
type Receipt = receipt.Receipt

// TierCommand is re-exported from command package.
type TierCommand = command.Tier

// Re-export tier levels
const (
	LevelNone = tier.None
	VIP1      = tier.Level(1)
	VIP2      = tier.Level(2)
	VIP3      = tier.Level(3)
)

// Re-export constructors
var (
	NewEntity = types.NewEntity
	NewDate   = types.NewDate
	ParseDate = types.ParseDate
	DailyCap  = tier.DailyCap
)
