package handler

import (
	"context"
	"net/http"

	"github.com/foodly/storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CustomerLister is satisfied by *apiclient.Client.
type CustomerLister interface {
	ListCustomers(ctx context.Context, search string) ([]model.Customer, error)
}

// AdminHandler serves the admin customer list.
type AdminHandler struct {
	customers CustomerLister
	log       zerolog.Logger
}

func NewAdminHandler(customers CustomerLister, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{customers: customers, log: log.With().Str("handler", "admin").Logger()}
}

// RegisterRoutes mounts under /admin.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers", h.ListCustomers)
}

// ListCustomers proxies ?search= to the platform.
func (h *AdminHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.ListCustomers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.log, "list customers", err)
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}
