package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/foodly/storefront/internal/catalog"
	"github.com/foodly/storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CatalogServicer is satisfied by *catalog.Service.
type CatalogServicer interface {
	ListStores(ctx context.Context, f catalog.Filter) ([]model.Store, error)
	GetStore(ctx context.Context, id model.ID) (model.Store, error)
	ListFoods(ctx context.Context, storeID model.ID, f catalog.Filter) ([]model.Food, error)
	GetFood(ctx context.Context, id model.ID) (model.Food, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// CatalogHandler serves store and menu browsing.
type CatalogHandler struct {
	svc CatalogServicer
	log zerolog.Logger
}

func NewCatalogHandler(svc CatalogServicer, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log.With().Str("handler", "catalog").Logger()}
}

// RegisterRoutes mounts at the root: /stores, /foods, /categories.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stores", h.ListStores)
	r.Get("/stores/{id}", h.GetStore)
	r.Get("/stores/{id}/foods", h.ListFoods)
	r.Get("/foods/{id}", h.GetFood)
	r.Get("/categories", h.ListCategories)
}

// filterFrom reads ?q=&category_id=&open=true.
func filterFrom(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	open, _ := strconv.ParseBool(q.Get("open"))
	return catalog.Filter{
		Query:      q.Get("q"),
		CategoryID: model.ID(q.Get("category_id")),
		OpenOnly:   open,
	}
}

func (h *CatalogHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.svc.ListStores(r.Context(), filterFrom(r))
	if err != nil {
		writeError(w, h.log, "list stores", err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *CatalogHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetStore(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, h.log, "get store", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *CatalogHandler) ListFoods(w http.ResponseWriter, r *http.Request) {
	foods, err := h.svc.ListFoods(r.Context(), pathID(r, "id"), filterFrom(r))
	if err != nil {
		writeError(w, h.log, "list foods", err)
		return
	}
	writeJSON(w, http.StatusOK, foods)
}

func (h *CatalogHandler) GetFood(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetFood(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, h.log, "get food", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.log, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
