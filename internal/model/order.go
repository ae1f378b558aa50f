package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:    "Chờ xác nhận",
	OrderStatusConfirmed:  "Đã xác nhận",
	OrderStatusPreparing:  "Đang chuẩn bị",
	OrderStatusDelivering: "Đang giao",
	OrderStatusDelivered:  "Đã giao",
	OrderStatusCancelled:  "Đã hủy",
}

// Upstream sends either the code or free-form localized text.
var orderStatusAliases = map[string]OrderStatus{
	"chờ xác nhận":   OrderStatusPending,
	"đã xác nhận":    OrderStatusConfirmed,
	"đang chuẩn bị":  OrderStatusPreparing,
	"đang giao":      OrderStatusDelivering,
	"đang giao hàng": OrderStatusDelivering,
	"đã giao":        OrderStatusDelivered,
	"hoàn thành":     OrderStatusDelivered,
	"đã hủy":         OrderStatusCancelled,
	"đã huỷ":         OrderStatusCancelled,
	"pending":        OrderStatusPending,
	"confirmed":      OrderStatusConfirmed,
	"preparing":      OrderStatusPreparing,
	"delivering":     OrderStatusDelivering,
	"shipping":       OrderStatusDelivering,
	"delivered":      OrderStatusDelivered,
	"completed":      OrderStatusDelivered,
	"cancelled":      OrderStatusCancelled,
	"canceled":       OrderStatusCancelled,
}

// ParseOrderStatus maps a status code or its localized text to a canonical status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	key := strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
	st, ok := orderStatusAliases[key]
	return st, ok
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if st, ok := ParseOrderStatus(raw); ok {
		*s = st
		return nil
	}
	// Keep unknown statuses verbatim so they can still be displayed.
	*s = OrderStatus(raw)
	return nil
}

// Label is the Vietnamese text shown to customers.
func (s OrderStatus) Label() string {
	if l, ok := orderStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s OrderStatus) Known() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Cancellable is a display hint; the backend decides whether a cancel succeeds.
func (s OrderStatus) Cancellable() bool { return s == OrderStatusPending }

func (s OrderStatus) Rateable() bool { return s == OrderStatusDelivered }

type OrderItem struct {
	ID       ID              `json:"id"`
	FoodID   ID              `json:"food_id"`
	Title    string          `json:"title"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
	Size     string          `json:"size,omitempty"`
	Toppings []string        `json:"toppings,omitempty"`
	Rated    bool            `json:"rated"`
}

type Delivery struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Address string   `json:"address"`
	Note    string   `json:"note,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type Order struct {
	ID            ID              `json:"id"`
	Code          string          `json:"code"`
	Status        OrderStatus     `json:"status"`
	StoreID       ID              `json:"store_id"`
	Items         []OrderItem     `json:"items"`
	Delivery      Delivery        `json:"delivery"`
	PaymentMethod string          `json:"payment_method"`
	PromoCode     string          `json:"promo_code,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Rated         bool            `json:"rated"`
	CreatedAt     Time            `json:"created_at"`
}

// CreateOrderItem is a line of an order submission.
type CreateOrderItem struct {
	FoodID   ID              `json:"food_id"`
	Quantity int32           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Size     string          `json:"size,omitempty"`
	Toppings []string        `json:"toppings,omitempty"`
}

// CreateOrder is the payload posted to the orders endpoint.
type CreateOrder struct {
	IdempotencyKey string            `json:"idempotency_key"`
	StoreID        ID                `json:"store_id,omitempty"`
	Items          []CreateOrderItem `json:"items"`
	Delivery       Delivery          `json:"delivery"`
	PaymentMethod  string            `json:"payment_method"`
	PromoCode      string            `json:"promo_code,omitempty"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	ShippingFee    decimal.Decimal   `json:"shipping_fee"`
	Discount       decimal.Decimal   `json:"discount"`
	Total          decimal.Decimal   `json:"total"`
}
