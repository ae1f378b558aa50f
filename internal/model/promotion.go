package model

import "github.com/shopspring/decimal"

const (
	PromotionPercent = "PERCENT"
	PromotionFixed   = "FIXED"
)

// Promotion is a discount rule. StoreID zero means the rule is system-wide.
type Promotion struct {
	ID            ID              `json:"id"`
	Code          string          `json:"code"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinSpend      decimal.Decimal `json:"min_spend"`
	MaxDiscount   decimal.Decimal `json:"max_discount"`
	StartDate     Time            `json:"start_date"`
	EndDate       Time            `json:"end_date"`
	StoreID       ID              `json:"store_id"`
}

// SystemWide reports whether the promotion applies to every store.
func (p Promotion) SystemWide() bool {
	return p.StoreID.IsZero()
}
