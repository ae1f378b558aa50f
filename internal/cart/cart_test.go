package cart

import (
	"testing"

	"github.com/foodly/storefront/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromOrder(t *testing.T) {
	o := model.Order{
		StoreID: "10",
		Items: []model.OrderItem{
			{FoodID: "1", Title: "Cơm tấm", Price: decimal.NewFromInt(50000), Quantity: 2, Toppings: []string{"Trứng"}},
			{FoodID: "2", Title: "Trà đá", Price: decimal.NewFromInt(30000), Quantity: 0},
			{FoodID: "3", Title: "Chè", Price: decimal.NewFromInt(20000), Quantity: 120},
		},
	}

	items := FromOrder(o)
	require.Len(t, items, 2)
	assert.Equal(t, "food:1|size:|toppings:Trứng", items[0].Key)
	assert.Equal(t, model.ID("10"), items[0].StoreID)
	assert.Equal(t, MaxQuantity, items[1].Quantity)
}

func TestItemLine(t *testing.T) {
	it := Item{FoodID: "1", Size: "L", ToppingIDs: []model.ID{"t1"}, Quantity: 3}
	line := it.Line(0)
	assert.Equal(t, model.CartLine{FoodID: "1", Quantity: 0, Size: "L", Toppings: []string{"t1"}}, line)
}
