package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// SystemWideLabel is shown instead of a store name for store_id = 0.
const SystemWideLabel = "Toàn hệ thống"

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
)

// Errors returned by code validation.
var (
	ErrEmptyCode   = errors.New("promotion code is required")
	ErrInvalidCode = errors.New("promotion code is invalid")
	ErrNotStarted  = errors.New("promotion has not started yet")
	ErrExpired     = errors.New("promotion has expired")
	ErrMinSpend    = errors.New("order does not reach the minimum spend")
	ErrWrongStore  = errors.New("promotion does not apply to this store")
)

// StatusAt classifies p against now. Both boundaries count as active.
func StatusAt(p model.Promotion, now time.Time) Status {
	if !p.StartDate.IsZero() && now.Before(p.StartDate.Time) {
		return StatusUpcoming
	}
	if !p.EndDate.IsZero() && now.After(p.EndDate.Time) {
		return StatusExpired
	}
	return StatusActive
}

// DiscountLabel renders "Giảm 10%" or "Giảm 20.000đ".
func DiscountLabel(p model.Promotion) string {
	if isPercent(p) {
		return "Giảm " + p.DiscountValue.String() + "%"
	}
	return "Giảm " + pricing.FormatVND(p.DiscountValue)
}

// Discount computes the amount p takes off subtotal. Below the minimum spend
// nothing is discounted; percentage discounts respect MaxDiscount when set.
func Discount(p model.Promotion, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(p.MinSpend) || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	if isPercent(p) {
		amount = subtotal.Mul(p.DiscountValue).Div(decimal.NewFromInt(100)).Round(0)
		if p.MaxDiscount.IsPositive() && amount.GreaterThan(p.MaxDiscount) {
			amount = p.MaxDiscount
		}
	} else {
		amount = p.DiscountValue
	}

	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Target is where the app navigates when a promotion card is tapped.
func Target(p model.Promotion) string {
	if p.SystemWide() {
		return "/categories"
	}
	return "/stores/" + p.StoreID.String() + "/items"
}

func isPercent(p model.Promotion) bool {
	return strings.EqualFold(p.Category, model.PromotionPercent)
}

// Source looks promotions up upstream. Satisfied by *apiclient.Client.
type Source interface {
	FindPromotionByCode(ctx context.Context, code string) (model.Promotion, error)
}

// Applied is a validated code with the discount it yields.
type Applied struct {
	Promotion model.Promotion
	Discount  decimal.Decimal
}

// Validator checks promo codes entered at checkout against the backend.
type Validator struct {
	source Source
	now    func() time.Time
}

func NewValidator(source Source) *Validator {
	return &Validator{source: source, now: time.Now}
}

// Validate resolves code and checks it is usable for an order of subtotal at
// storeID. storeID is empty when the cart spans stores or has no store; only
// system-wide promotions apply then.
func (v *Validator) Validate(ctx context.Context, code string, storeID model.ID, subtotal decimal.Decimal) (*Applied, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	p, err := v.source.FindPromotionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("find promotion: %w", err)
	}

	switch StatusAt(p, v.now()) {
	case StatusUpcoming:
		return nil, ErrNotStarted
	case StatusExpired:
		return nil, ErrExpired
	}

	if !p.SystemWide() && (storeID.IsZero() || !MatchID(p.StoreID, storeID)) {
		return nil, ErrWrongStore
	}

	if subtotal.LessThan(p.MinSpend) {
		return nil, fmt.Errorf("%w (%s)", ErrMinSpend, pricing.FormatVND(p.MinSpend))
	}

	return &Applied{Promotion: p, Discount: Discount(p, subtotal)}, nil
}

// IsValidationError reports errors caused by the code itself rather than by
// the backend call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCode) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrMinSpend) ||
		errors.Is(err, ErrWrongStore)
}
