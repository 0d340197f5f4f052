package catalog

import (
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/types"
)

// Item is a distributable file known to the catalog.
type Item struct {
	types.Entity
	ID   id.ItemID `json:"id"`
	Path string    `json:"path"`
	// Handle is the delivery system's reusable reference to the file. It is
	// only known after the first successful delivery.
	Handle string `json:"handle,omitempty"`
	Size   *int64 `json:"size,omitempty"`
}

// HasHandle reports whether a delivery handle has been cached.
func (i *Item) HasHandle() bool { return i.Handle != "" }

// SyncResult summarizes a catalog synchronization pass.
type SyncResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
