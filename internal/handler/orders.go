package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/foodly/storefront/internal/cart"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/orders"
	"github.com/foodly/storefront/internal/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderServicer is satisfied by *orders.Service.
type OrderServicer interface {
	List(ctx context.Context, page, pageSize int) (orders.Page, error)
	AwaitingRating(ctx context.Context) ([]orders.View, error)
	Get(ctx context.Context, id model.ID) (orders.View, error)
	Cancel(ctx context.Context, id model.ID) (orders.View, error)
	Reorder(ctx context.Context, id model.ID) ([]cart.Item, error)
	QR(ctx context.Context, id model.ID, size int) ([]byte, error)
	TrackingURL(id model.ID) string
	Rate(ctx context.Context, orderID model.ID, inputs []orders.RatingInput) ([]orders.RatingResult, error)
}

// LocationReader is satisfied by *tracking.Tracker.
type LocationReader interface {
	LastLocation(ctx context.Context, orderID model.ID) (*tracking.Location, error)
}

// OrderHandler serves the customer's order history.
type OrderHandler struct {
	svc       OrderServicer
	locations LocationReader
	log       zerolog.Logger
}

func NewOrderHandler(svc OrderServicer, locations LocationReader, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, locations: locations, log: log.With().Str("handler", "orders").Logger()}
}

// RegisterRoutes mounts under /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/awaiting-rating", h.AwaitingRating)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/cancel", h.Cancel)
		r.Post("/reorder", h.Reorder)
		r.Get("/qr", h.QR)
		r.Get("/location", h.Location)
		r.Post("/ratings", h.Rate)
	})
}

// --- Request / Response types ---

type rateRequest struct {
	Ratings []orders.RatingInput `json:"ratings"`
}

type orderDetailResponse struct {
	orders.View
	TrackingURL string `json:"tracking_url"`
}

type reorderResponse struct {
	OrderID model.ID    `json:"order_id"`
	Items   []cart.Item `json:"items"`
}

func (h *OrderHandler) fail(w http.ResponseWriter, op string, err error) {
	if orders.IsValidationError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeError(w, h.log, op, err)
}

// --- Handlers ---

// List returns one page: ?page=1&page_size=10.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", orders.DefaultPageSize)

	p, err := h.svc.List(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrderHandler) AwaitingRating(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.AwaitingRating(r.Context())
	if err != nil {
		h.fail(w, "list orders awaiting rating", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderDetailResponse{View: v, TrackingURL: h.svc.TrackingURL(v.ID)})
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Cancel(r.Context(), pathID(r, "id"))
	if err != nil {
		h.fail(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Reorder returns the order's lines; the client then checks out with
// reorder_id.
func (h *OrderHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	items, err := h.svc.Reorder(r.Context(), id)
	if err != nil {
		h.fail(w, "reorder", err)
		return
	}
	if items == nil {
		items = []cart.Item{}
	}
	writeJSON(w, http.StatusOK, reorderResponse{OrderID: id, Items: items})
}

// QR renders the handover code as PNG: ?size=256.
func (h *OrderHandler) QR(w http.ResponseWriter, r *http.Request) {
	png, err := h.svc.QR(r.Context(), pathID(r, "id"), queryInt(r, "size", 256))
	if err != nil {
		h.fail(w, "order qr", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Location returns the shipper's last known position, 204 if none yet.
func (h *OrderHandler) Location(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	// ownership is enforced upstream
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		h.fail(w, "get order", err)
		return
	}
	loc, err := h.locations.LastLocation(r.Context(), id)
	if err != nil {
		h.fail(w, "last location", err)
		return
	}
	if loc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// Rate submits star ratings for foods of a delivered order. The response
// carries one result per food; duplicates and upstream failures are reported
// there rather than failing the request.
func (h *OrderHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	results, err := h.svc.Rate(r.Context(), pathID(r, "id"), req.Ratings)
	if err != nil {
		h.fail(w, "rate order", err)
		return
	}
	status := http.StatusOK
	for _, res := range results {
		if res.Status == orders.RatingCreated {
			status = http.StatusCreated
			break
		}
	}
	writeJSON(w, status, map[string]any{"results": results})
}
