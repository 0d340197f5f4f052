package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tierledger/account"
	"github.com/xraph/tierledger/catalog"
	"github.com/xraph/tierledger/delivery"
	"github.com/xraph/tierledger/feedback"
	"github.com/xraph/tierledger/id"
	"github.com/xraph/tierledger/receipt"
	"github.com/xraph/tierledger/tier"
	"github.com/xraph/tierledger/types"
)

// Days are kept as "2006-01-02" strings so range filters compare correctly.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:tierledger_accounts"`

	UserID     int64     `grove:"user_id,pk"   bson:"_id"`
	Points     int64     `grove:"points"       bson:"points"`
	Level      int       `grove:"level"        bson:"level"`
	StartDate  string    `grove:"start_date"   bson:"start_date,omitempty"`
	ExpiryDate string    `grove:"expiry_date"  bson:"expiry_date,omitempty"`
	Version    int64     `grove:"version"      bson:"version"`
	CreatedAt  time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		UserID:     a.UserID,
		Points:     a.Points,
		Level:      int(a.Level),
		StartDate:  types.DatePtrString(a.StartDate),
		ExpiryDate: types.DatePtrString(a.ExpiryDate),
		Version:    a.Version,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	start, err := types.ParseDatePtr(m.StartDate)
	if err != nil {
		return nil, fmt.Errorf("account %d start date: %w", m.UserID, err)
	}
	expiry, err := types.ParseDatePtr(m.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("account %d expiry date: %w", m.UserID, err)
	}
	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:     m.UserID,
		Points:     m.Points,
		Level:      tier.Level(m.Level),
		StartDate:  start,
		ExpiryDate: expiry,
		Version:    m.Version,
	}, nil
}

// ==================== Catalog models ====================

type itemModel struct {
	grove.BaseModel `grove:"table:tierledger_items"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Path      string    `grove:"path"       bson:"path"`
	Handle    string    `grove:"handle"     bson:"handle"`
	Size      *int64    `grove:"size"       bson:"size,omitempty"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toItemModel(it *catalog.Item) *itemModel {
	return &itemModel{
		ID:        it.ID.String(),
		Path:      it.Path,
		Handle:    it.Handle,
		Size:      it.Size,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

func fromItemModel(m *itemModel) (*catalog.Item, error) {
	itemID, err := id.ParseItemID(m.ID)
	if err != nil {
		return nil, err
	}
	return &catalog.Item{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:     itemID,
		Path:   m.Path,
		Handle: m.Handle,
		Size:   m.Size,
	}, nil
}

// ==================== Delivery models ====================

type deliveryModel struct {
	grove.BaseModel `grove:"table:tierledger_deliveries"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	UserID    int64     `grove:"user_id"    bson:"user_id"`
	ItemID    string    `grove:"item_id"    bson:"item_id"`
	Day       string    `grove:"day"        bson:"day"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toDeliveryModel(r *delivery.Record) *deliveryModel {
	return &deliveryModel{
		Key:       pairKey(r.UserID, r.ItemID),
		UserID:    r.UserID,
		ItemID:    r.ItemID.String(),
		Day:       r.Date.String(),
		CreatedAt: r.CreatedAt,
	}
}

// ==================== Feedback models ====================

type feedbackModel struct {
	grove.BaseModel `grove:"table:tierledger_feedback"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	UserID    int64     `grove:"user_id"    bson:"user_id"`
	ItemID    string    `grove:"item_id"    bson:"item_id"`
	Value     int       `grove:"value"      bson:"value"`
	Day       string    `grove:"day"        bson:"day"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toFeedbackModel(f *feedback.Feedback) *feedbackModel {
	return &feedbackModel{
		Key:       pairKey(f.UserID, f.ItemID),
		UserID:    f.UserID,
		ItemID:    f.ItemID.String(),
		Value:     int(f.Value),
		Day:       f.Date.String(),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func fromFeedbackModel(m *feedbackModel) (*feedback.Feedback, error) {
	itemID, err := id.ParseItemID(m.ItemID)
	if err != nil {
		return nil, err
	}
	day, err := types.ParseDate(m.Day)
	if err != nil {
		return nil, err
	}
	return &feedback.Feedback{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID: m.UserID,
		ItemID: itemID,
		Value:  feedback.Value(m.Value),
		Date:   day,
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:tierledger_receipts"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	UserID         int64     `grove:"user_id"         bson:"user_id"`
	Kind           string    `grove:"kind"            bson:"kind"`
	PreviousLevel  int       `grove:"previous_level"  bson:"previous_level"`
	NewLevel       int       `grove:"new_level"       bson:"new_level"`
	Days           int       `grove:"days"            bson:"days"`
	PreviousExpiry string    `grove:"previous_expiry" bson:"previous_expiry,omitempty"`
	NewExpiry      string    `grove:"new_expiry"      bson:"new_expiry"`
	PointsCharged  int64     `grove:"points_charged"  bson:"points_charged"`
	Credited       int64     `grove:"credited"        bson:"credited"`
	BalanceAfter   int64     `grove:"balance_after"   bson:"balance_after"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toReceiptModel(r *receipt.Receipt) *receiptModel {
	return &receiptModel{
		ID:             r.ID.String(),
		UserID:         r.UserID,
		Kind:           string(r.Kind),
		PreviousLevel:  int(r.PreviousLevel),
		NewLevel:       int(r.NewLevel),
		Days:           r.Days,
		PreviousExpiry: types.DatePtrString(r.PreviousExpiry),
		NewExpiry:      r.NewExpiry.String(),
		PointsCharged:  r.PointsCharged,
		Credited:       r.CreditedFromPriorTier,
		BalanceAfter:   r.BalanceAfter,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*receipt.Receipt, error) {
	receiptID, err := id.ParseReceiptID(m.ID)
	if err != nil {
		return nil, err
	}
	prev, err := types.ParseDatePtr(m.PreviousExpiry)
	if err != nil {
		return nil, err
	}
	next, err := types.ParseDate(m.NewExpiry)
	if err != nil {
		return nil, err
	}
	return &receipt.Receipt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                    receiptID,
		UserID:                m.UserID,
		Kind:                  receipt.Kind(m.Kind),
		PreviousLevel:         tier.Level(m.PreviousLevel),
		NewLevel:              tier.Level(m.NewLevel),
		Days:                  m.Days,
		PreviousExpiry:        prev,
		NewExpiry:             next,
		PointsCharged:         m.PointsCharged,
		CreditedFromPriorTier: m.Credited,
		BalanceAfter:          m.BalanceAfter,
	}, nil
}

// pairKey is the document key of a per-user, per-item record.
func pairKey(userID int64, itemID id.ItemID) string {
	return fmt.Sprintf("%d:%s", userID, itemID.String())
}
