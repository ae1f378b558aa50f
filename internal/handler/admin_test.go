package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/foodly/storefront/internal/handler"
	"github.com/foodly/storefront/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCustomers struct {
	search string
}

func (m *mockCustomers) ListCustomers(ctx context.Context, search string) ([]model.Customer, error) {
	m.search = search
	return nil, nil
}

func TestAdminCustomers(t *testing.T) {
	m := &mockCustomers{}
	h := newAuthedRouter("/admin", handler.NewAdminHandler(m, zerolog.Nop()).RegisterRoutes)

	rr := doRequest(t, h, "GET", "/admin/customers?search=lan", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.Equal(t, "lan", m.search)
}
