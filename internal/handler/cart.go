package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/foodly/storefront/internal/cart"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartServicer is satisfied by *cart.Service.
type CartServicer interface {
	Items(ctx context.Context, customer uuid.UUID) ([]cart.Item, error)
	Add(ctx context.Context, customer uuid.UUID, req cart.AddRequest) (cart.Item, error)
	Increment(ctx context.Context, customer uuid.UUID, key string) (cart.Item, error)
	Decrement(ctx context.Context, customer uuid.UUID, key string, confirm bool) (*cart.Item, error)
	SetQuantity(ctx context.Context, customer uuid.UUID, key string, q int32) (cart.Item, error)
	Remove(ctx context.Context, customer uuid.UUID, key string) error
	Clear(ctx context.Context, customer uuid.UUID) error
	Select(ctx context.Context, customer uuid.UUID, keys []string) error
	Selected(ctx context.Context, customer uuid.UUID) ([]cart.Item, error)
}

// CartHandler serves the customer's cart.
type CartHandler struct {
	svc CartServicer
	log zerolog.Logger
}

func NewCartHandler(svc CartServicer, log zerolog.Logger) *CartHandler {
	return &CartHandler{svc: svc, log: log.With().Str("handler", "cart").Logger()}
}

// RegisterRoutes mounts under /cart. Item keys must be path-escaped.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.Add)
	r.Route("/items/{key}", func(r chi.Router) {
		r.Put("/", h.SetQuantity)
		r.Delete("/", h.Remove)
		r.Post("/increment", h.Increment)
		r.Post("/decrement", h.Decrement)
	})
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.PutSelection)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	FoodID   model.ID   `json:"food_id"`
	Size     string     `json:"size"`
	Toppings []model.ID `json:"toppings"`
	Quantity int32      `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

type selectionRequest struct {
	Keys []string `json:"keys"`
}

type cartResponse struct {
	Items    []cart.Item     `json:"items"`
	Count    int32           `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func toCartResponse(items []cart.Item) cartResponse {
	resp := cartResponse{Items: items, Subtotal: pricing.Subtotal(cart.Lines(items))}
	if resp.Items == nil {
		resp.Items = []cart.Item{}
	}
	for _, it := range items {
		resp.Count += it.Quantity
	}
	return resp
}

func isCartValidationError(err error) bool {
	return errors.Is(err, cart.ErrInvalidQuantity) ||
		errors.Is(err, cart.ErrUnknownSize) ||
		errors.Is(err, cart.ErrUnknownTopping)
}

func (h *CartHandler) fail(w http.ResponseWriter, op string, err error) {
	if isCartValidationError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeError(w, h.log, op, err)
}

// --- Handlers ---

// Get returns every cart line with the cart subtotal.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Items(r.Context(), cust)
	if err != nil {
		h.fail(w, "list cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.FoodID.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "food_id is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.svc.Add(r.Context(), cust, cart.AddRequest{
		FoodID:   req.FoodID,
		Size:     req.Size,
		Toppings: req.Toppings,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.fail(w, "add cart item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	key, err := pathKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item key"})
		return
	}
	item, err := h.svc.Increment(r.Context(), cust, key)
	if err != nil {
		h.fail(w, "increment cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Decrement takes one unit off. Removing the last unit needs ?confirm=true,
// otherwise 409; a removed line answers 204.
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	key, err := pathKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item key"})
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	item, err := h.svc.Decrement(r.Context(), cust, key, confirm)
	if err != nil {
		h.fail(w, "decrement cart item", err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	key, err := pathKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item key"})
		return
	}
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	item, err := h.svc.SetQuantity(r.Context(), cust, key, req.Quantity)
	if err != nil {
		h.fail(w, "set cart quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	key, err := pathKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item key"})
		return
	}
	if err := h.svc.Remove(r.Context(), cust, key); err != nil {
		h.fail(w, "remove cart item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Clear(r.Context(), cust); err != nil {
		h.fail(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSelection returns the lines chosen for checkout.
func (h *CartHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Selected(r.Context(), cust)
	if err != nil {
		h.fail(w, "get selection", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// PutSelection replaces the checkout selection. Unknown keys are a 400.
func (h *CartHandler) PutSelection(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.svc.Select(r.Context(), cust, req.Keys); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.fail(w, "set selection", err)
		return
	}
	items, err := h.svc.Selected(r.Context(), cust)
	if err != nil {
		h.fail(w, "get selection", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}
