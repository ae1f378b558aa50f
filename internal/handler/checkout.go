package handler

import (
	"context"
	"net/http"

	"github.com/foodly/storefront/internal/checkout"
	"github.com/foodly/storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutServicer is satisfied by *checkout.Service.
type CheckoutServicer interface {
	Prepare(ctx context.Context, customer uuid.UUID, req checkout.Request) (checkout.Quote, error)
	Submit(ctx context.Context, customer uuid.UUID, req checkout.SubmitRequest) (*checkout.Result, error)
}

// CheckoutHandler prices and places orders.
type CheckoutHandler struct {
	svc CheckoutServicer
	log zerolog.Logger
}

func NewCheckoutHandler(svc CheckoutServicer, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, log: log.With().Str("handler", "checkout").Logger()}
}

// RegisterRoutes mounts under /checkout.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/quote", h.Quote)
	r.Post("/", h.Submit)
}

// --- Request types ---

type quoteRequest struct {
	SelectedKeys []string `json:"selected_keys"`
	ReorderID    model.ID `json:"reorder_id"`
	PromoCode    string   `json:"promo_code"`
}

func (q quoteRequest) toRequest() checkout.Request {
	return checkout.Request{SelectedKeys: q.SelectedKeys, ReorderID: q.ReorderID, PromoCode: q.PromoCode}
}

type submitRequest struct {
	quoteRequest
	Delivery       model.Delivery `json:"delivery"`
	PaymentMethod  string         `json:"payment_method"`
	IdempotencyKey string         `json:"idempotency_key"`
}

func (h *CheckoutHandler) fail(w http.ResponseWriter, op string, err error) {
	if checkout.IsValidationError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeError(w, h.log, op, err)
}

// --- Handlers ---

// Quote prices the selection (or a reorder) without placing anything.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	q, err := h.svc.Prepare(r.Context(), cust, req.toRequest())
	if err != nil {
		h.fail(w, "quote checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Submit places the order. An Idempotency-Key header is used when the body
// carries none.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	result, err := h.svc.Submit(r.Context(), cust, checkout.SubmitRequest{
		Request:        req.toRequest(),
		Delivery:       req.Delivery,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.fail(w, "submit checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
