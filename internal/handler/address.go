package handler

import (
	"context"
	"net/http"

	"github.com/foodly/storefront/internal/address"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AddressSuggester is satisfied by *address.Suggester.
type AddressSuggester interface {
	Suggest(ctx context.Context, query string) ([]address.Suggestion, error)
}

type AddressHandler struct {
	svc AddressSuggester
	log zerolog.Logger
}

func NewAddressHandler(svc AddressSuggester, log zerolog.Logger) *AddressHandler {
	return &AddressHandler{svc: svc, log: log.With().Str("handler", "address").Logger()}
}

// RegisterRoutes mounts under /address.
func (h *AddressHandler) RegisterRoutes(r chi.Router) {
	r.Get("/suggest", h.Suggest)
}

// Suggest answers ?q= with up to five places. Short queries return [].
func (h *AddressHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	got, err := h.svc.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.log, "suggest address", err)
		return
	}
	if got == nil {
		got = []address.Suggestion{}
	}
	writeJSON(w, http.StatusOK, got)
}
