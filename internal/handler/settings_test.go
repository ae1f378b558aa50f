package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/foodly/storefront/internal/handler"
	"github.com/foodly/storefront/internal/settings"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSettings struct {
	enabledWith string
	useErr      error
}

func (m *mockSettings) Get(ctx context.Context, id uuid.UUID) (settings.Settings, error) {
	return settings.Defaults(id), nil
}

func (m *mockSettings) UpdateNotifications(ctx context.Context, id uuid.UUID, n settings.Notifications) (settings.Settings, error) {
	s := settings.Defaults(id)
	s.Notifications = n
	return s, nil
}

func (m *mockSettings) EnableTwoFactor(ctx context.Context, id uuid.UUID, method string) (settings.Settings, []string, error) {
	if method == "PIGEON" {
		return settings.Settings{}, nil, settings.ErrInvalidMethod
	}
	m.enabledWith = method
	s := settings.Defaults(id)
	s.TwoFactor.Enabled = true
	return s, []string{"ABCD-EFGH"}, nil
}

func (m *mockSettings) DisableTwoFactor(ctx context.Context, id uuid.UUID) (settings.Settings, error) {
	return settings.Defaults(id), nil
}

func (m *mockSettings) UseBackupCode(ctx context.Context, id uuid.UUID, code string) (int, error) {
	return 7, m.useErr
}

func newSettingsRouter(m *mockSettings) http.Handler {
	return newAuthedRouter("/settings", handler.NewSettingsHandler(m, zerolog.Nop()).RegisterRoutes)
}

func TestSettingsGet(t *testing.T) {
	rr := doRequest(t, newSettingsRouter(&mockSettings{}), "GET", "/settings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s := decodeBody[settings.Settings](t, rr)
	assert.Equal(t, testCustomer, s.CustomerID)
	assert.True(t, s.Notifications.OrderUpdates)
	assert.False(t, s.Notifications.SMS)
}

func TestSettingsNotifications(t *testing.T) {
	rr := doRequest(t, newSettingsRouter(&mockSettings{}), "PUT", "/settings/notifications", settings.Notifications{SMS: true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, settings.Notifications{SMS: true}, decodeBody[settings.Settings](t, rr).Notifications)
}

func TestSettingsTwoFactor(t *testing.T) {
	m := &mockSettings{}
	h := newSettingsRouter(m)

	rr := doRequest(t, h, "POST", "/settings/two-factor", map[string]string{"method": "email"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "email", m.enabledWith)
	assert.Contains(t, rr.Body.String(), "ABCD-EFGH")

	rr = doRequest(t, h, "POST", "/settings/two-factor", map[string]string{"method": "PIGEON"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, "DELETE", "/settings/two-factor", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSettingsBackupCode(t *testing.T) {
	rr := doRequest(t, newSettingsRouter(&mockSettings{}), "POST", "/settings/two-factor/backup-codes/verify", map[string]string{"code": "ABCD-EFGH"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]int{"backup_codes_left": 7}, decodeBody[map[string]int](t, rr))

	rr = doRequest(t, newSettingsRouter(&mockSettings{useErr: settings.ErrInvalidBackupCode}), "POST", "/settings/two-factor/backup-codes/verify", map[string]string{"code": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, newSettingsRouter(&mockSettings{useErr: errors.New("conn reset")}), "POST", "/settings/two-factor/backup-codes/verify", map[string]string{"code": "x"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", errorMessage(t, rr))
}
