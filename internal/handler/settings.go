package handler

import (
	"context"
	"net/http"

	"github.com/foodly/storefront/internal/settings"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettingsServicer is satisfied by *settings.Service.
type SettingsServicer interface {
	Get(ctx context.Context, customerID uuid.UUID) (settings.Settings, error)
	UpdateNotifications(ctx context.Context, customerID uuid.UUID, n settings.Notifications) (settings.Settings, error)
	EnableTwoFactor(ctx context.Context, customerID uuid.UUID, method string) (settings.Settings, []string, error)
	DisableTwoFactor(ctx context.Context, customerID uuid.UUID) (settings.Settings, error)
	UseBackupCode(ctx context.Context, customerID uuid.UUID, code string) (int, error)
}

// SettingsHandler serves account security and notification settings.
type SettingsHandler struct {
	svc SettingsServicer
	log zerolog.Logger
}

func NewSettingsHandler(svc SettingsServicer, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, log: log.With().Str("handler", "settings").Logger()}
}

// RegisterRoutes mounts under /settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/notifications", h.UpdateNotifications)
	r.Post("/two-factor", h.EnableTwoFactor)
	r.Delete("/two-factor", h.DisableTwoFactor)
	r.Post("/two-factor/backup-codes/verify", h.UseBackupCode)
}

type enableTwoFactorRequest struct {
	Method string `json:"method"`
}

type enableTwoFactorResponse struct {
	Settings    settings.Settings `json:"settings"`
	BackupCodes []string          `json:"backup_codes"`
}

type backupCodeRequest struct {
	Code string `json:"code"`
}

func (h *SettingsHandler) fail(w http.ResponseWriter, op string, err error) {
	if settings.IsValidationError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeError(w, h.log, op, err)
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Get(r.Context(), cust)
	if err != nil {
		h.fail(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req settings.Notifications
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s, err := h.svc.UpdateNotifications(r.Context(), cust, req)
	if err != nil {
		h.fail(w, "update notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// EnableTwoFactor returns the backup codes in plaintext exactly once.
func (h *SettingsHandler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req enableTwoFactorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s, codes, err := h.svc.EnableTwoFactor(r.Context(), cust, req.Method)
	if err != nil {
		h.fail(w, "enable two-factor", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, enableTwoFactorResponse{Settings: s, BackupCodes: codes})
}

func (h *SettingsHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.DisableTwoFactor(r.Context(), cust)
	if err != nil {
		h.fail(w, "disable two-factor", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) UseBackupCode(w http.ResponseWriter, r *http.Request) {
	cust, ok := customerID(w, r)
	if !ok {
		return
	}
	var req backupCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	left, err := h.svc.UseBackupCode(r.Context(), cust, req.Code)
	if err != nil {
		h.fail(w, "use backup code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"backup_codes_left": left})
}
