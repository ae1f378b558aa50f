package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/checkout"
	"github.com/foodly/storefront/internal/handler"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/promotion"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCheckout struct {
	prepareFn func(ctx context.Context, customer uuid.UUID, req checkout.Request) (checkout.Quote, error)
	submitFn  func(ctx context.Context, customer uuid.UUID, req checkout.SubmitRequest) (*checkout.Result, error)
}

func (m *mockCheckout) Prepare(ctx context.Context, customer uuid.UUID, req checkout.Request) (checkout.Quote, error) {
	return m.prepareFn(ctx, customer, req)
}

func (m *mockCheckout) Submit(ctx context.Context, customer uuid.UUID, req checkout.SubmitRequest) (*checkout.Result, error) {
	return m.submitFn(ctx, customer, req)
}

func newCheckoutRouter(m *mockCheckout) http.Handler {
	return newAuthedRouter("/checkout", handler.NewCheckoutHandler(m, zerolog.Nop()).RegisterRoutes)
}

func TestCheckoutQuote(t *testing.T) {
	var got checkout.Request
	m := &mockCheckout{prepareFn: func(ctx context.Context, customer uuid.UUID, req checkout.Request) (checkout.Quote, error) {
		assert.Equal(t, testCustomer, customer)
		got = req
		return checkout.Quote{StoreID: "3"}, nil
	}}

	rr := doRequest(t, newCheckoutRouter(m), "POST", "/checkout/quote", map[string]any{
		"selected_keys": []string{"a", "b"},
		"promo_code":    "GIAM10",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"a", "b"}, got.SelectedKeys)
	assert.Equal(t, "GIAM10", got.PromoCode)
	assert.Equal(t, model.ID("3"), decodeBody[checkout.Quote](t, rr).StoreID)
}

func TestCheckoutQuoteErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty selection", checkout.ErrEmptySelection, http.StatusBadRequest},
		{"expired promo", promotion.ErrExpired, http.StatusBadRequest},
		{"min spend", fmt.Errorf("%w (50.000đ)", promotion.ErrMinSpend), http.StatusBadRequest},
		{"reorder missing", checkout.ErrOrderNotFound, http.StatusNotFound},
		{"upstream down", fmt.Errorf("find promotion: %w", &apiclient.APIError{Status: 500, Message: "boom"}), http.StatusBadGateway},
		{"unexpected", fmt.Errorf("redis: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockCheckout{prepareFn: func(ctx context.Context, customer uuid.UUID, req checkout.Request) (checkout.Quote, error) {
				return checkout.Quote{}, tt.err
			}}
			rr := doRequest(t, newCheckoutRouter(m), "POST", "/checkout/quote", map[string]any{})
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestCheckoutSubmit(t *testing.T) {
	var got checkout.SubmitRequest
	m := &mockCheckout{submitFn: func(ctx context.Context, customer uuid.UUID, req checkout.SubmitRequest) (*checkout.Result, error) {
		got = req
		return &checkout.Result{Order: model.Order{ID: "501", Status: model.OrderStatusPending}}, nil
	}}

	req := map[string]any{
		"reorder_id":     42,
		"payment_method": "cod",
		"delivery": map[string]any{
			"name": "Lan", "phone": "0901234567", "address": "12 Lê Lợi",
		},
	}
	h := newCheckoutRouter(m)

	rr := doRequest(t, h, "POST", "/checkout", req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, model.ID("42"), got.ReorderID)
	assert.Equal(t, "cod", got.PaymentMethod)
	assert.Equal(t, "Lan", got.Delivery.Name)
	assert.Equal(t, model.ID("501"), decodeBody[checkout.Result](t, rr).Order.ID)
}

func TestCheckoutSubmitUpstreamRejects(t *testing.T) {
	m := &mockCheckout{submitFn: func(ctx context.Context, customer uuid.UUID, req checkout.SubmitRequest) (*checkout.Result, error) {
		return nil, fmt.Errorf("create order: %w", &apiclient.APIError{Status: 400, Message: "Cửa hàng đã đóng cửa"})
	}}

	rr := doRequest(t, newCheckoutRouter(m), "POST", "/checkout", map[string]any{})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Cửa hàng đã đóng cửa", errorMessage(t, rr))
}

func TestCheckoutSubmitValidation(t *testing.T) {
	m := &mockCheckout{submitFn: func(ctx context.Context, customer uuid.UUID, req checkout.SubmitRequest) (*checkout.Result, error) {
		return nil, checkout.ErrInvalidPhone
	}}

	rr := doRequest(t, newCheckoutRouter(m), "POST", "/checkout", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, checkout.ErrInvalidPhone.Error(), errorMessage(t, rr))
}

func TestCheckoutBadBody(t *testing.T) {
	rr := doRequest(t, newCheckoutRouter(&mockCheckout{}), "POST", "/checkout", "not an object")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
