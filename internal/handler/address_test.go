package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/foodly/storefront/internal/address"
	"github.com/foodly/storefront/internal/handler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSuggester struct {
	got []address.Suggestion
	err error
}

func (m *mockSuggester) Suggest(ctx context.Context, q string) ([]address.Suggestion, error) {
	return m.got, m.err
}

func TestAddressSuggest(t *testing.T) {
	h := newAuthedRouter("/address", handler.NewAddressHandler(&mockSuggester{}, zerolog.Nop()).RegisterRoutes)
	rr := doRequest(t, h, "GET", "/address/suggest?q=le", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	h = newAuthedRouter("/address", handler.NewAddressHandler(&mockSuggester{err: address.ErrProvider}, zerolog.Nop()).RegisterRoutes)
	rr = doRequest(t, h, "GET", "/address/suggest?q=le+loi", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
