package router_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodly/storefront/internal/auth"
	"github.com/foodly/storefront/internal/config"
	"github.com/foodly/storefront/internal/enum"
	"github.com/foodly/storefront/internal/handler"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/router"
	"github.com/foodly/storefront/internal/tracking"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

type stubUpdater struct{}

func (stubUpdater) GetOrder(ctx context.Context, id model.ID) (model.Order, error) {
	return model.Order{ID: id}, nil
}

func (stubUpdater) UpdateLocation(ctx context.Context, orderID model.ID, lat, lng float64) (tracking.Location, error) {
	return tracking.Location{Lat: lat, Lng: lng}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: []string{"http://localhost:5173"}}
	h := router.Handlers{
		Catalog:    handler.NewCatalogHandler(nil, log),
		Promotions: handler.NewPromotionHandler(nil, nil, log),
		Cart:       handler.NewCartHandler(nil, log),
		Checkout:   handler.NewCheckoutHandler(nil, log),
		Orders:     handler.NewOrderHandler(nil, nil, log),
		Settings:   handler.NewSettingsHandler(nil, log),
		Address:    handler.NewAddressHandler(nil, log),
		Shipper:    handler.NewShipperHandler(stubUpdater{}, stubUpdater{}, log),
		Admin:      handler.NewAdminHandler(nil, log),
	}
	return router.New(cfg, h, nil, log)
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, uuid.New(), role, time.Minute)
	require.NoError(t, err)
	return tok
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := serve(newTestRouter(t), httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t)
	for _, path := range []string{"/cart", "/orders", "/stores", "/promotions", "/settings", "/address/suggest"} {
		rr := serve(h, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestRoleGuards(t *testing.T) {
	h := newTestRouter(t)
	body := []byte(`{"lat":10.77,"lng":106.7}`)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		want   int
	}{
		{"customer cannot list customers", "GET", "/admin/customers", enum.RoleCustomer, http.StatusForbidden},
		{"shipper cannot list customers", "GET", "/admin/customers", enum.RoleShipper, http.StatusForbidden},
		{"customer cannot report location", "POST", "/shipper/orders/1/location", enum.RoleCustomer, http.StatusForbidden},
		{"shipper reports location", "POST", "/shipper/orders/1/location", enum.RoleShipper, http.StatusAccepted},
		{"admin reports location", "POST", "/shipper/orders/1/location", enum.RoleAdmin, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.role))
			rr := serve(h, req)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rr := serve(newTestRouter(t), req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	rr := serve(newTestRouter(t), httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
