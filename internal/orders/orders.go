package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/cart"
	"github.com/foodly/storefront/internal/model"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

// Errors returned by the order service.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotRateable    = errors.New("only delivered orders can be rated")
	ErrNoRatings      = errors.New("ratings are required")
	ErrInvalidStars   = errors.New("stars must be between 1 and 5")
	ErrFoodNotInOrder = errors.New("food is not part of this order")
)

// OrderAPI is the upstream order surface. Satisfied by *apiclient.Client.
type OrderAPI interface {
	Lister
	GetOrder(ctx context.Context, id model.ID) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id model.ID, status model.OrderStatus) (model.Order, error)
	CreateRating(ctx context.Context, r model.Rating) error
}

// View decorates an order with the hints the order screens need.
type View struct {
	model.Order
	StatusLabel string `json:"status_label"`
	Cancellable bool   `json:"cancellable"`
	Rateable    bool   `json:"rateable"`
}

func NewView(o model.Order) View {
	return View{
		Order:       o,
		StatusLabel: o.Status.Label(),
		Cancellable: o.Status.Cancellable(),
		Rateable:    o.Status.Rateable() && !o.Rated,
	}
}

// Page is one page of the order list.
type Page struct {
	Orders   []View `json:"orders"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	HasMore  bool   `json:"has_more"`
}

// Service reads and acts on the customer's orders.
type Service struct {
	api        OrderAPI
	markers    Markers
	events     EventPublisher
	trackURL   string
	log        zerolog.Logger
	maxScanned int
}

// NewService creates a Service. trackBaseURL prefixes the tracking link
// encoded in order QR codes.
func NewService(api OrderAPI, markers Markers, ev EventPublisher, trackBaseURL string, log zerolog.Logger) *Service {
	return &Service{
		api:        api,
		markers:    markers,
		events:     ev,
		trackURL:   trackBaseURL,
		log:        log.With().Str("component", "orders").Logger(),
		maxScanned: 5,
	}
}

// List returns one page. Repeated ids inside the page are dropped.
func (s *Service) List(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	pageSize = normalizePageSize(pageSize)

	batch, err := s.api.ListOrders(ctx, page, pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("list orders: %w", err)
	}
	return Page{
		Orders:   views(Dedup(batch)),
		Page:     page,
		PageSize: pageSize,
		HasMore:  len(batch) == pageSize,
	}, nil
}

// AwaitingRating walks the order history and returns delivered orders that
// have not been rated yet.
func (s *Service) AwaitingRating(ctx context.Context) ([]View, error) {
	feed := NewFeed(s.api, MaxPageSize)
	if err := feed.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for feed.HasMore() && feed.Page() < s.maxScanned {
		if err := feed.LoadMore(ctx); err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
	}

	out := []View{}
	for _, o := range feed.Orders() {
		if o.Status.Rateable() && !o.Rated {
			out = append(out, NewView(o))
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id model.ID) (View, error) {
	o, err := s.get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return NewView(o), nil
}

// Cancel asks upstream to cancel the order. Upstream owns the transition
// rules, so no local status check is made.
func (s *Service) Cancel(ctx context.Context, id model.ID) (View, error) {
	o, err := s.api.UpdateOrderStatus(ctx, id, model.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			return View{}, ErrOrderNotFound
		}
		return View{}, fmt.Errorf("cancel order: %w", err)
	}
	s.log.Info().Str("order_id", id.String()).Str("status", string(o.Status)).Msg("order cancelled")
	return NewView(o), nil
}

// Reorder returns the order's lines as cart items ready for checkout.
func (s *Service) Reorder(ctx context.Context, id model.ID) ([]cart.Item, error) {
	o, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return cart.FromOrder(o), nil
}

// QR renders a PNG QR code of the order's tracking link for handover.
func (s *Service) QR(ctx context.Context, id model.ID, size int) ([]byte, error) {
	o, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if size < 128 || size > 1024 {
		size = 256
	}
	return qrcode.Encode(s.TrackingURL(o.ID), qrcode.Medium, size)
}

func (s *Service) TrackingURL(id model.ID) string {
	return s.trackURL + "/orders/" + id.String() + "/track"
}

func (s *Service) get(ctx context.Context, id model.ID) (model.Order, error) {
	o, err := s.api.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func views(orders []model.Order) []View {
	out := make([]View, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewView(o))
	}
	return out
}

// IsValidationError reports errors caused by the request itself.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNotRateable) ||
		errors.Is(err, ErrNoRatings) ||
		errors.Is(err, ErrInvalidStars) ||
		errors.Is(err, ErrFoodNotInOrder)
}
