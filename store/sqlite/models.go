package sqlite

import (
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

// Calendar days are stored as ISO-8601 TEXT so that string order matches
// date order.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:tierledger_accounts"`

	UserID     int64     `grove:"user_id,pk"`
	Points     int64     `grove:"points"`
	Level      int       `grove:"level"`
	StartDate  *string   `grove:"start_date"`
	ExpiryDate *string   `grove:"expiry_date"`
	Version    int64     `grove:"version"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		UserID:     a.UserID,
		Points:     a.Points,
		Level:      int(a.Level),
		StartDate:  dateText(a.StartDate),
		ExpiryDate: dateText(a.ExpiryDate),
		Version:    a.Version,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	start, err := parseDateText(m.StartDate)
	if err != nil {
		return nil, err
	}
	expiry, err := parseDateText(m.ExpiryDate)
	if err != nil {
		return nil, err
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

	ID        string    `grove:"id,pk"`
	Path      string    `grove:"path"`
	Handle    string    `grove:"handle"`
	Size      *int64    `grove:"size"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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

	UserID    int64     `grove:"user_id,pk"`
	ItemID    string    `grove:"item_id,pk"`
	Day       string    `grove:"day"`
	CreatedAt time.Time `grove:"created_at"`
}

func toDeliveryModel(r *delivery.Record) *deliveryModel {
	return &deliveryModel{
		UserID:    r.UserID,
		ItemID:    r.ItemID.String(),
		Day:       r.Date.String(),
		CreatedAt: r.CreatedAt,
	}
}

// ==================== Feedback models ====================

type feedbackModel struct {
	grove.BaseModel `grove:"table:tierledger_feedback"`

	UserID    int64     `grove:"user_id,pk"`
	ItemID    string    `grove:"item_id,pk"`
	Value     int       `grove:"value"`
	Day       string    `grove:"day"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toFeedbackModel(f *feedback.Feedback) *feedbackModel {
	return &feedbackModel{
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

	ID             string    `grove:"id,pk"`
	UserID         int64     `grove:"user_id"`
	Kind           string    `grove:"kind"`
	PreviousLevel  int       `grove:"previous_level"`
	NewLevel       int       `grove:"new_level"`
	Days           int       `grove:"days"`
	PreviousExpiry *string   `grove:"previous_expiry"`
	NewExpiry      string    `grove:"new_expiry"`
	PointsCharged  int64     `grove:"points_charged"`
	Credited       int64     `grove:"credited"`
	BalanceAfter   int64     `grove:"balance_after"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toReceiptModel(r *receipt.Receipt) *receiptModel {
	return &receiptModel{
		ID:             r.ID.String(),
		UserID:         r.UserID,
		Kind:           string(r.Kind),
		PreviousLevel:  int(r.PreviousLevel),
		NewLevel:       int(r.NewLevel),
		Days:           r.Days,
		PreviousExpiry: dateText(r.PreviousExpiry),
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
	prev, err := parseDateText(m.PreviousExpiry)
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

// ==================== Date helpers ====================

func dateText(d *types.Date) *string {
	if d == nil || d.IsZero() {
		return nil
	}
	s := d.String()
	return &s
}

func parseDateText(s *string) (*types.Date, error) {
	if s == nil {
		return nil, nil
	}
	return types.ParseDatePtr(*s)
}
