package model

import (
	"strings"
	"time"

	apperrors "eventstage/pkg/app_errors"

	"github.com/shopspring/decimal"
)

// TicketTier 票種: one priced, capacity limited tier of an event.
type TicketTier struct {
	ID          string          `json:"id" db:"id"`
	EventID     string          `json:"event_id" db:"event_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Currency    string          `json:"currency" db:"currency"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Sold        int             `json:"sold" db:"sold"`
	Position    int             `json:"position" db:"position"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Remaining 剩餘可售數量
func (t *TicketTier) Remaining() int {
	return t.Quantity - t.Sold
}

func (t *TicketTier) IsSoldOut() bool {
	return t.Remaining() <= 0
}

// TierSpec is the input for adding a tier. Sold always starts at zero.
type TierSpec struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity" binding:"min=0"`
}

func (s TierSpec) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return apperrors.ErrTitleRequired
	}
	if s.Quantity < 0 || s.Price.IsNegative() {
		return apperrors.ErrInvalidInput
	}
	return nil
}

// UpdateTierParams lists the mutable tier fields. There is deliberately no
// Sold field, so a "sold" key in a request body is dropped on decode.
type UpdateTierParams struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency"`
	Quantity    *int             `json:"quantity"`
}

func (p UpdateTierParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil && p.Currency == nil && p.Quantity == nil
}

func (p UpdateTierParams) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperrors.ErrTitleRequired
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return apperrors.ErrInvalidInput
	}
	if p.Price != nil && p.Price.IsNegative() {
		return apperrors.ErrInvalidInput
	}
	return nil
}

// Apply copies set fields onto the tier and reports ErrQuantityBelowSold
// when the new capacity cannot cover tickets already sold.
func (p UpdateTierParams) Apply(t *TicketTier, now time.Time) error {
	if p.Quantity != nil && *p.Quantity < t.Sold {
		return apperrors.ErrQuantityBelowSold
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
	if p.Quantity != nil {
		t.Quantity = *p.Quantity
	}
	t.UpdatedAt = now
	return nil
}
