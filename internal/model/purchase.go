package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketPurchase is an append-only ledger entry.
type TicketPurchase struct {
	ID              string    `json:"id" db:"id"`
	EventID         string    `json:"event_id" db:"event_id"`
	TierID          string    `json:"tier_id" db:"tier_id"`
	BuyerID         string    `json:"buyer_id" db:"buyer_id"`
	Quantity        int       `json:"quantity" db:"quantity"`
	Paid            bool      `json:"paid" db:"paid"`
	RedemptionToken string    `json:"redemption_token" db:"redemption_token"`
	PurchasedAt     time.Time `json:"purchased_at" db:"purchased_at"`
}

// PurchaseRequest is the purchase input after authentication.
type PurchaseRequest struct {
	EventID  string
	TierID   string
	BuyerID  string
	Quantity int
	Paid     bool
}

// PurchaseConfirmation is returned to the buyer once the sale is committed.
type PurchaseConfirmation struct {
	PurchaseID      string          `json:"purchase_id"`
	EventID         string          `json:"event_id"`
	TierID          string          `json:"tier_id"`
	TierTitle       string          `json:"tier_title"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	RedemptionToken string          `json:"redemption_token"`
	QRCode          string          `json:"qr_code"`
	PurchasedAt     time.Time       `json:"purchased_at"`
}

// PassEvent carries the event display fields shown on a pass.
type PassEvent struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	OrganizerID   string           `json:"organizer_id"`
	OrganizerName string           `json:"organizer_name,omitempty"`
	BannerImages  []string         `json:"banner_images"`
	Locations     []LocationOption `json:"locations"`
	Dates         []DateGroup      `json:"dates"`
	IsCancelled   bool             `json:"is_cancelled"`
}

// Pass is a purchase resolved with its event and tier for display.
type Pass struct {
	*TicketPurchase
	Event *PassEvent  `json:"event"`
	Tier  *TicketTier `json:"tier"`
}

func NewPassEvent(e *Event) *PassEvent {
	return &PassEvent{
		ID:            e.ID,
		Title:         e.Title,
		OrganizerID:   e.OrganizerID,
		OrganizerName: e.OrganizerName,
		BannerImages:  e.BannerImages,
		Locations:     e.Locations,
		Dates:         e.Dates,
		IsCancelled:   e.IsCancelled,
	}
}
