package quote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

// Status is the sales stage of a saved quote.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusOrdered  Status = "ordered"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusOrdered:
		return true
	}
	return false
}

// ParseStatus converts raw into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown quote status %q", raw)
	}
	return s, nil
}

// Quote is a persisted quote. ID, CreatedAt and UpdatedAt are assigned by the store.
type Quote struct {
	ID              string          `json:"id"`
	QuoteNumber     string          `json:"quoteNumber"`
	Customer        Customer        `json:"customer"`
	PartnerID       string          `json:"partnerId,omitempty"`
	PartnerName     string          `json:"partnerName,omitempty"`
	PartnerLogoURL  string          `json:"partnerLogoUrl,omitempty"`
	Configuration   Configuration   `json:"configuration"`
	PricingSnapshot rates.RateTable `json:"pricingSnapshot"`
	OriginalTotal   decimal.Decimal `json:"originalTotal"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	FinalTotal      decimal.Decimal `json:"finalTotal"`
	Status          Status          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Total is the frozen result of a calculation: the pre-discount grand total, the
// campaign discount and what the customer pays.
type Total struct {
	OriginalTotal  decimal.Decimal `json:"originalTotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
}

// Total returns the totals stored on q.
func (q Quote) Total() Total {
	return Total{OriginalTotal: q.OriginalTotal, DiscountAmount: q.DiscountAmount, FinalTotal: q.FinalTotal}
}
