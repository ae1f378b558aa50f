package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/cart"
	"github.com/foodly/storefront/internal/events"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/pricing"
	"github.com/foodly/storefront/internal/promotion"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Errors returned by checkout.
var (
	ErrEmptySelection  = errors.New("no items selected for checkout")
	ErrMissingName     = errors.New("recipient name is required")
	ErrMissingPhone    = errors.New("phone number is required")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrMissingAddress  = errors.New("delivery address is required")
	ErrInvalidPayment  = errors.New("invalid payment_method")
	ErrInvalidLocation = errors.New("invalid delivery coordinates")
	ErrOrderNotFound   = errors.New("order to reorder not found")
)

// Accepted payment methods.
const (
	PaymentCOD   = "COD"
	PaymentMoMo  = "MOMO"
	PaymentVNPay = "VNPAY"
	PaymentCard  = "CARD"
)

var paymentMethods = map[string]bool{
	PaymentCOD:   true,
	PaymentMoMo:  true,
	PaymentVNPay: true,
	PaymentCard:  true,
}

var phonePattern = regexp.MustCompile(`^(0|\+84)[0-9]{9,10}$`)

// CartSource is the part of the cart checkout needs. Satisfied by *cart.Service.
type CartSource interface {
	Selected(ctx context.Context, customer uuid.UUID) ([]cart.Item, error)
	Pick(ctx context.Context, customer uuid.UUID, keys []string) ([]cart.Item, error)
	Consume(ctx context.Context, customer uuid.UUID, keys []string) error
}

// OrderAPI is satisfied by *apiclient.Client.
type OrderAPI interface {
	GetOrder(ctx context.Context, id model.ID) (model.Order, error)
	CreateOrder(ctx context.Context, req model.CreateOrder) (model.Order, error)
}

// PromoValidator is satisfied by *promotion.Validator.
type PromoValidator interface {
	Validate(ctx context.Context, code string, storeID model.ID, subtotal decimal.Decimal) (*promotion.Applied, error)
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, e events.OrderPlaced) error
}

// Request picks what is being bought. ReorderID takes precedence; otherwise
// SelectedKeys, falling back to the cart's saved selection.
type Request struct {
	SelectedKeys []string
	ReorderID    model.ID
	PromoCode    string
}

// SubmitRequest is a Request plus delivery and payment details.
type SubmitRequest struct {
	Request
	Delivery       model.Delivery
	PaymentMethod  string
	IdempotencyKey string
}

// Quote is a priced checkout.
type Quote struct {
	Items       []cart.Item      `json:"items"`
	Summary     pricing.Summary  `json:"summary"`
	Promotion   *model.Promotion `json:"promotion,omitempty"`
	StoreID     model.ID         `json:"store_id,omitempty"`
	FromReorder bool             `json:"from_reorder"`
}

// Result is a placed order with the quote it was priced from.
type Result struct {
	Order model.Order `json:"order"`
	Quote Quote       `json:"quote"`
}

// Service prices and submits orders.
type Service struct {
	cart        CartSource
	orders      OrderAPI
	promos      PromoValidator
	events      EventPublisher
	shippingFee decimal.Decimal
	log         zerolog.Logger
	newKey      func() string
}

func NewService(c CartSource, orders OrderAPI, promos PromoValidator, ev EventPublisher, shippingFee decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		cart:        c,
		orders:      orders,
		promos:      promos,
		events:      ev,
		shippingFee: shippingFee,
		log:         log.With().Str("component", "checkout").Logger(),
		newKey:      uuid.NewString,
	}
}

// Prepare gathers the items being bought and prices them with the flat
// shipping fee and the optional promo code. Nothing selected prices as an
// all-zero summary with no shipping; only Submit rejects it.
func (s *Service) Prepare(ctx context.Context, customer uuid.UUID, req Request) (Quote, error) {
	var q Quote
	switch {
	case !req.ReorderID.IsZero():
		o, err := s.orders.GetOrder(ctx, req.ReorderID)
		if err != nil {
			if errors.Is(err, apiclient.ErrNotFound) {
				return Quote{}, ErrOrderNotFound
			}
			return Quote{}, fmt.Errorf("get order: %w", err)
		}
		q.Items = cart.FromOrder(o)
		q.FromReorder = true
	case len(req.SelectedKeys) > 0:
		items, err := s.cart.Pick(ctx, customer, req.SelectedKeys)
		if err != nil {
			return Quote{}, err
		}
		q.Items = items
	default:
		items, err := s.cart.Selected(ctx, customer)
		if err != nil {
			return Quote{}, err
		}
		q.Items = items
	}
	if len(q.Items) == 0 {
		q.Items = []cart.Item{}
		q.Summary = pricing.Quote(nil, s.shippingFee, decimal.Zero)
		return q, nil
	}

	q.StoreID = singleStore(q.Items)
	lines := cart.Lines(q.Items)
	discount := decimal.Zero

	if code := strings.TrimSpace(req.PromoCode); code != "" {
		applied, err := s.promos.Validate(ctx, code, q.StoreID, pricing.Subtotal(lines))
		if err != nil {
			return Quote{}, err
		}
		discount = applied.Discount
		q.Promotion = &applied.Promotion
	}

	q.Summary = pricing.Quote(lines, s.shippingFee, discount)
	return q, nil
}

// Submit places the order upstream. Purchased cart lines are dropped only
// after upstream accepts the order.
func (s *Service) Submit(ctx context.Context, customer uuid.UUID, req SubmitRequest) (*Result, error) {
	delivery, err := validateDelivery(req.Delivery)
	if err != nil {
		return nil, err
	}
	payment := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if !paymentMethods[payment] {
		return nil, ErrInvalidPayment
	}

	q, err := s.Prepare(ctx, customer, req.Request)
	if err != nil {
		return nil, err
	}
	if len(q.Items) == 0 {
		return nil, ErrEmptySelection
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = s.newKey()
	}

	payload := model.CreateOrder{
		IdempotencyKey: key,
		StoreID:        q.StoreID,
		Items:          orderItems(q.Items),
		Delivery:       delivery,
		PaymentMethod:  payment,
		Subtotal:       q.Summary.Subtotal,
		ShippingFee:    q.Summary.ShippingFee,
		Discount:       q.Summary.Discount,
		Total:          q.Summary.Total,
	}
	if q.Promotion != nil {
		payload.PromoCode = q.Promotion.Code
	}

	order, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if !q.FromReorder {
		keys := make([]string, 0, len(q.Items))
		for _, it := range q.Items {
			keys = append(keys, it.Key)
		}
		if err := s.cart.Consume(ctx, customer, keys); err != nil {
			s.log.Error().Err(err).Str("order_id", order.ID.String()).Msg("drop purchased cart lines")
		}
	}

	err = s.events.OrderPlaced(ctx, events.OrderPlaced{
		OrderID:    order.ID,
		CustomerID: customer,
		StoreID:    q.StoreID,
		ItemCount:  len(q.Items),
		Total:      q.Summary.Total,
		Payment:    payment,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("publish order_placed")
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("customer_id", customer.String()).
		Str("total", q.Summary.Total.String()).
		Msg("order placed")

	return &Result{Order: order, Quote: q}, nil
}

func validateDelivery(d model.Delivery) (model.Delivery, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	d.Note = strings.TrimSpace(d.Note)
	d.Phone = normalizePhone(d.Phone)

	if d.Name == "" {
		return d, ErrMissingName
	}
	if d.Phone == "" {
		return d, ErrMissingPhone
	}
	if !phonePattern.MatchString(d.Phone) {
		return d, ErrInvalidPhone
	}
	if d.Address == "" {
		return d, ErrMissingAddress
	}
	if (d.Lat == nil) != (d.Lng == nil) {
		return d, ErrInvalidLocation
	}
	if d.Lat != nil && (*d.Lat < -90 || *d.Lat > 90 || *d.Lng < -180 || *d.Lng > 180) {
		return d, ErrInvalidLocation
	}
	return d, nil
}

func normalizePhone(p string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(p))
}

func orderItems(items []cart.Item) []model.CreateOrderItem {
	out := make([]model.CreateOrderItem, 0, len(items))
	for _, it := range items {
		oi := model.CreateOrderItem{
			FoodID:   it.FoodID,
			Quantity: it.Quantity,
			Price:    it.Price,
			Size:     it.Size,
			Toppings: it.Toppings,
		}
		if len(it.ToppingIDs) > 0 {
			oi.Toppings = make([]string, 0, len(it.ToppingIDs))
			for _, id := range it.ToppingIDs {
				oi.Toppings = append(oi.Toppings, id.String())
			}
		}
		out = append(out, oi)
	}
	return out
}

// singleStore returns the store every item belongs to, or "" for mixed carts.
func singleStore(items []cart.Item) model.ID {
	var id model.ID
	for _, it := range items {
		if it.StoreID.IsZero() {
			continue
		}
		if id == "" {
			id = it.StoreID
			continue
		}
		if !promotion.MatchID(id, it.StoreID) {
			return ""
		}
	}
	return id
}

// IsValidationError reports errors the caller can fix by changing the request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrMissingPhone) ||
		errors.Is(err, ErrInvalidPhone) ||
		errors.Is(err, ErrMissingAddress) ||
		errors.Is(err, ErrInvalidPayment) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, cart.ErrItemNotFound) ||
		promotion.IsValidationError(err)
}
