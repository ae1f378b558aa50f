package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/catalog"
	"github.com/foodly/storefront/internal/handler"
	"github.com/foodly/storefront/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	lastFilter catalog.Filter
}

func (m *mockCatalog) ListStores(ctx context.Context, f catalog.Filter) ([]model.Store, error) {
	m.lastFilter = f
	return []model.Store{{ID: "1", Name: "Phở Hà Nội", IsOpen: true}}, nil
}

func (m *mockCatalog) GetStore(ctx context.Context, id model.ID) (model.Store, error) {
	return model.Store{}, catalog.ErrStoreNotFound
}

func (m *mockCatalog) ListFoods(ctx context.Context, storeID model.ID, f catalog.Filter) ([]model.Food, error) {
	m.lastFilter = f
	return []model.Food{{ID: "10", StoreID: storeID, Title: "Phở bò"}}, nil
}

func (m *mockCatalog) GetFood(ctx context.Context, id model.ID) (model.Food, error) {
	return model.Food{ID: id}, nil
}

func (m *mockCatalog) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, fmt.Errorf("list categories: %w", apiclient.ErrUnexpectedShape)
}

func TestCatalogRoutes(t *testing.T) {
	m := &mockCatalog{}
	h := newAuthedRouter("", handler.NewCatalogHandler(m, zerolog.Nop()).RegisterRoutes)

	rr := doRequest(t, h, "GET", "/stores?q=pho&open=true&category_id=4", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, catalog.Filter{Query: "pho", CategoryID: "4", OpenOnly: true}, m.lastFilter)

	rr = doRequest(t, h, "GET", "/stores/1/foods?q=bo", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.ID("1"), decodeBody[[]model.Food](t, rr)[0].StoreID)

	rr = doRequest(t, h, "GET", "/stores/2", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, "GET", "/foods/10", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, "GET", "/categories", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
