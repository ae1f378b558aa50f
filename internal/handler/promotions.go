package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/pricing"
	"github.com/foodly/storefront/internal/promotion"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PromoValidator is satisfied by *promotion.Validator.
type PromoValidator interface {
	Validate(ctx context.Context, code string, storeID model.ID, subtotal decimal.Decimal) (*promotion.Applied, error)
}

// PromotionHandler serves the promotions screen and code checks.
type PromotionHandler struct {
	src       promotion.BoardSource
	validator PromoValidator
	log       zerolog.Logger
	now       func() time.Time
}

func NewPromotionHandler(src promotion.BoardSource, validator PromoValidator, log zerolog.Logger) *PromotionHandler {
	return &PromotionHandler{
		src:       src,
		validator: validator,
		log:       log.With().Str("handler", "promotions").Logger(),
		now:       time.Now,
	}
}

// RegisterRoutes mounts under /promotions.
func (h *PromotionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/validate", h.Validate)
}

type validatePromoRequest struct {
	Code     string          `json:"code"`
	StoreID  model.ID        `json:"store_id"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type validatePromoResponse struct {
	Promotion     model.Promotion `json:"promotion"`
	DiscountLabel string          `json:"discount_label"`
	Discount      decimal.Decimal `json:"discount"`
	DiscountText  string          `json:"discount_text"`
}

// List returns every promotion as a display card with status and store name.
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := promotion.Board(r.Context(), h.src, h.now(), h.log)
	if err != nil {
		writeError(w, h.log, "list promotions", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// Validate checks a code against a subtotal before checkout.
func (h *PromotionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validatePromoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	applied, err := h.validator.Validate(r.Context(), req.Code, req.StoreID, req.Subtotal)
	if err != nil {
		if promotion.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, h.log, "validate promotion", err)
		return
	}
	writeJSON(w, http.StatusOK, validatePromoResponse{
		Promotion:     applied.Promotion,
		DiscountLabel: promotion.DiscountLabel(applied.Promotion),
		Discount:      applied.Discount,
		DiscountText:  pricing.FormatVND(applied.Discount),
	})
}
