package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// LocationUpdater is satisfied by *tracking.Tracker.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, orderID model.ID, lat, lng float64) (tracking.Location, error)
}

// OrderLookup is satisfied by *apiclient.Client. The caller's token is
// forwarded, so upstream decides whether the shipper may see the order.
type OrderLookup interface {
	GetOrder(ctx context.Context, id model.ID) (model.Order, error)
}

// ShipperHandler receives position reports from shipper apps.
type ShipperHandler struct {
	orders  OrderLookup
	tracker LocationUpdater
	log     zerolog.Logger
}

func NewShipperHandler(orders OrderLookup, tracker LocationUpdater, log zerolog.Logger) *ShipperHandler {
	return &ShipperHandler{orders: orders, tracker: tracker, log: log.With().Str("handler", "shipper").Logger()}
}

// RegisterRoutes mounts under /shipper.
func (h *ShipperHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{id}/location", h.UpdateLocation)
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (h *ShipperHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}
	id := pathID(r, "id")
	if id.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	if _, err := h.orders.GetOrder(r.Context(), id); err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeError(w, h.log, "lookup order", err)
		return
	}

	loc, err := h.tracker.UpdateLocation(r.Context(), id, *req.Lat, *req.Lng)
	if err != nil {
		if errors.Is(err, tracking.ErrInvalidLocation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, h.log, "update location", err)
		return
	}
	writeJSON(w, http.StatusAccepted, loc)
}
