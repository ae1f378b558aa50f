package catalog

import (
	"context"
	"testing"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	stores []model.Store
	foods  map[model.ID][]model.Food
}

func (m *mockSource) ListStores(ctx context.Context) ([]model.Store, error) { return m.stores, nil }

func (m *mockSource) GetStore(ctx context.Context, id model.ID) (model.Store, error) {
	for _, s := range m.stores {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Store{}, apiclient.ErrNotFound
}

func (m *mockSource) ListStoreFoods(ctx context.Context, storeID model.ID) ([]model.Food, error) {
	foods, ok := m.foods[storeID]
	if !ok {
		return nil, apiclient.ErrNotFound
	}
	return foods, nil
}

func (m *mockSource) GetFood(ctx context.Context, id model.ID) (model.Food, error) {
	return model.Food{}, apiclient.ErrNotFound
}

func (m *mockSource) ListCategories(ctx context.Context) ([]model.Category, error) {
	return []model.Category{{ID: "1", Name: "Cơm"}}, nil
}

func newTestService() *Service {
	return NewService(&mockSource{
		stores: []model.Store{
			{ID: "1", Name: "Phở Hà Nội", Address: "Quận 1", IsOpen: true},
			{ID: "2", Name: "Bún Bò Huế", Address: "Đường Điện Biên Phủ", IsOpen: false},
			{ID: "3", Name: "Cơm Tấm", Address: "Quận 3", IsOpen: true},
		},
		foods: map[model.ID][]model.Food{
			"1": {
				{ID: "10", CategoryID: "5", Title: "Phở bò tái"},
				{ID: "11", CategoryID: "6", Title: "Trà đá", Description: "Miễn phí"},
			},
		},
	})
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Phở", "pho"},
		{"  Bún Bò Huế ", "bun bo hue"},
		{"Đường", "duong"},
		{"", ""},
		{"Pizza", "pizza"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), tt.in)
	}
}

func TestListStoresSearch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	got, err := svc.ListStores(ctx, Filter{Query: "pho"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ID("1"), got[0].ID)

	// Matches the address "Điện Biên Phủ".
	got, err = svc.ListStores(ctx, Filter{Query: "dien bien"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ID("2"), got[0].ID)

	got, err = svc.ListStores(ctx, Filter{Query: "QUAN", OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListStores(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestListFoods(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	got, err := svc.ListFoods(ctx, "1", Filter{Query: "tra da"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ID("11"), got[0].ID)

	got, err = svc.ListFoods(ctx, "1", Filter{CategoryID: "5"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ID("10"), got[0].ID)

	_, err = svc.ListFoods(ctx, "99", Filter{})
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestNotFoundMapping(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetStore(context.Background(), "42")
	assert.ErrorIs(t, err, ErrStoreNotFound)
	_, err = svc.GetFood(context.Background(), "42")
	assert.ErrorIs(t, err, ErrFoodNotFound)
}
