package cart

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single cart line on every screen.
const MaxQuantity int32 = 99

// Errors returned by the cart.
var (
	ErrItemNotFound        = errors.New("cart item not found")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 99")
	ErrRemovalNeedsConfirm = errors.New("decrementing the last unit removes the item and must be confirmed")
	ErrFoodNotFound        = errors.New("food not found")
	ErrUnknownSize         = errors.New("size is not offered for this food")
	ErrUnknownTopping      = errors.New("topping is not offered for this food")
	ErrSyncFailed          = errors.New("cart sync failed")
	ErrCartBusy            = errors.New("cart is being updated, try again")
)

// Item is one cart line. Price is the unit price including size and toppings.
type Item struct {
	Key        string          `json:"key"`
	FoodID     model.ID        `json:"food_id"`
	StoreID    model.ID        `json:"store_id"`
	Title      string          `json:"title"`
	Image      string          `json:"image"`
	Price      decimal.Decimal `json:"price"`
	Size       string          `json:"size,omitempty"`
	ToppingIDs []model.ID      `json:"topping_ids,omitempty"`
	Toppings   []string        `json:"toppings,omitempty"`
	Quantity   int32           `json:"quantity"`
	AddedAt    time.Time       `json:"added_at"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt32(it.Quantity))
}

// Line returns the remote cart representation of the item at quantity q.
func (it Item) Line(q int32) model.CartLine {
	var toppings []string
	for _, id := range it.ToppingIDs {
		toppings = append(toppings, id.String())
	}
	return model.CartLine{FoodID: it.FoodID, Quantity: q, Size: it.Size, Toppings: toppings}
}

// Key builds the composite key that merges repeated additions of the same
// food with the same options. Topping order does not matter.
func Key(foodID model.ID, size string, toppings []model.ID) string {
	ids := make([]string, 0, len(toppings))
	for _, t := range toppings {
		ids = append(ids, strings.TrimSpace(t.String()))
	}
	sort.Strings(ids)
	return "food:" + strings.TrimSpace(foodID.String()) +
		"|size:" + strings.TrimSpace(size) +
		"|toppings:" + strings.Join(ids, ",")
}

// Lines converts items for pricing.
func Lines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Price: it.Price, Quantity: it.Quantity})
	}
	return lines
}

func clamp(q int32) int32 {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// FromOrder turns a past order's lines back into cart items for reordering.
// Order lines carry topping names only, so the key is built from those.
func FromOrder(o model.Order) []Item {
	items := make([]Item, 0, len(o.Items))
	for _, oi := range o.Items {
		if oi.Quantity < 1 {
			continue
		}
		toppings := make([]model.ID, 0, len(oi.Toppings))
		for _, t := range oi.Toppings {
			toppings = append(toppings, model.ID(t))
		}
		items = append(items, Item{
			Key:      Key(oi.FoodID, oi.Size, toppings),
			FoodID:   oi.FoodID,
			StoreID:  o.StoreID,
			Title:    oi.Title,
			Image:    oi.Image,
			Price:    oi.Price,
			Size:     oi.Size,
			Toppings: oi.Toppings,
			Quantity: clamp(oi.Quantity),
		})
	}
	return items
}
