package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/foodly/storefront/internal/address"
	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/cart"
	"github.com/foodly/storefront/internal/catalog"
	"github.com/foodly/storefront/internal/checkout"
	"github.com/foodly/storefront/internal/middleware"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("encode JSON response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// customerID returns the authenticated customer or writes 401.
func customerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id := middleware.CustomerID(r.Context())
	if id == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return uuid.Nil, false
	}
	return id, true
}

func pathID(r *http.Request, name string) model.ID {
	return model.ID(chi.URLParam(r, name))
}

// pathKey unescapes a cart key; keys contain ':' and '|'.
func pathKey(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "key"))
}

func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

// isNotFound covers every "no such thing" sentinel the services return.
func isNotFound(err error) bool {
	return errors.Is(err, apiclient.ErrNotFound) ||
		errors.Is(err, cart.ErrItemNotFound) ||
		errors.Is(err, cart.ErrFoodNotFound) ||
		errors.Is(err, checkout.ErrOrderNotFound) ||
		errors.Is(err, orders.ErrOrderNotFound) ||
		errors.Is(err, catalog.ErrStoreNotFound) ||
		errors.Is(err, catalog.ErrFoodNotFound)
}

// writeError maps service errors that no handler-specific check claimed.
// Validation errors are checked by each handler before calling this.
func writeError(w http.ResponseWriter, log zerolog.Logger, op string, err error) {
	var apiErr *apiclient.APIError
	switch {
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFoundMessage(err)})
	case errors.Is(err, cart.ErrRemovalNeedsConfirm), errors.Is(err, cart.ErrCartBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &apiErr) && apiErr.ClientError():
		log.Warn().Err(err).Str("op", op).Msg("upstream rejected request")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": apiErr.Message})
	case errors.As(err, &apiErr),
		errors.Is(err, apiclient.ErrUnexpectedShape),
		errors.Is(err, cart.ErrSyncFailed),
		errors.Is(err, address.ErrProvider):
		log.Error().Err(err).Str("op", op).Msg("upstream failure")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
	default:
		log.Error().Err(err).Str("op", op).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func notFoundMessage(err error) string {
	if errors.Is(err, apiclient.ErrNotFound) {
		return "not found"
	}
	return err.Error()
}
