package delivery

import (
	"time"

	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

// Record marks that an item has been handed to a user. There is at most one
// record per (UserID, ItemID); Date is the calendar day it was sent and only
// feeds the daily quota.
type Record struct {
	UserID    int64      `json:"user_id"`
	ItemID    id.ItemID  `json:"item_id"`
	Date      types.Date `json:"date"`
	CreatedAt time.Time  `json:"created_at"`
}
