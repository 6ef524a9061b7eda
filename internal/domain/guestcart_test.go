package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(price, discount string) *ProductSnapshot {
	return &ProductSnapshot{
		Name:          "Widget",
		Price:         decimal.RequireFromString(price),
		DiscountPrice: decimal.RequireFromString(discount),
	}
}

func TestProductSnapshot_EffectivePrice(t *testing.T) {
	assert.True(t, snapshot("100", "80").EffectivePrice().Equal(decimal.NewFromInt(80)))
	assert.True(t, snapshot("100", "0").EffectivePrice().Equal(decimal.NewFromInt(100)))
	assert.True(t, snapshot("100", "-5").EffectivePrice().Equal(decimal.NewFromInt(100)))
}

func TestGuestCart_Recalculate(t *testing.T) {
	cart := NewGuestCart()
	cart.Products = []GuestCartItem{
		{ProductID: "p1", Quantity: 2, Product: snapshot("100", "0")},
		{ProductID: "p2", Quantity: 1, Product: snapshot("60", "50")},
		{ProductID: "p3", Quantity: 4},
	}

	cart.Recalculate()

	assert.Equal(t, 7, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(250)), "got %s", cart.TotalPrice)
}

func TestGuestCart_Recalculate_Empty(t *testing.T) {
	cart := NewGuestCart()
	cart.TotalItems = 9
	cart.Recalculate()

	assert.Zero(t, cart.TotalItems)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestGuestCart_FindItemIndex(t *testing.T) {
	cart := &GuestCart{Products: []GuestCartItem{{ProductID: "a"}, {ProductID: "b"}}}
	assert.Equal(t, 1, cart.FindItemIndex("b"))
	assert.Equal(t, -1, cart.FindItemIndex("z"))
}

func TestGuestCart_MergeItems_PreservesOrder(t *testing.T) {
	cart := &GuestCart{Products: []GuestCartItem{
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 3},
	}}

	assert.Equal(t, []MergeItem{{"p2", 1}, {"p1", 3}}, cart.MergeItems())
	assert.NotNil(t, NewGuestCart().MergeItems())
}

func TestGuestCart_Clone_IsDeep(t *testing.T) {
	cart := &GuestCart{Products: []GuestCartItem{
		{ProductID: "p1", Quantity: 1, Product: &ProductSnapshot{Name: "A", Images: []string{"a.jpg"}}},
	}}

	clone := cart.Clone()
	clone.Products[0].Quantity = 9
	clone.Products[0].Product.Name = "B"
	clone.Products[0].Product.Images[0] = "b.jpg"

	assert.Equal(t, 1, cart.Products[0].Quantity)
	assert.Equal(t, "A", cart.Products[0].Product.Name)
	assert.Equal(t, "a.jpg", cart.Products[0].Product.Images[0])
}

func TestGuestCart_DecodesBrowserPayload(t *testing.T) {
	// Payload as written by the storefront web client, with plain JSON numbers.
	raw := `{"products":[{"productId":"p1","quantity":2,"product":{"name":"Mug","price":12.5,"discountPrice":0,"images":["m.jpg"],"stock":3}}],"totalItems":2,"totalPrice":25}`

	var cart GuestCart
	require.NoError(t, json.Unmarshal([]byte(raw), &cart))

	require.Len(t, cart.Products, 1)
	assert.Equal(t, "p1", cart.Products[0].ProductID)
	assert.Equal(t, "Mug", cart.Products[0].Product.Name)
	assert.True(t, cart.Products[0].Product.Price.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(25)))
}
