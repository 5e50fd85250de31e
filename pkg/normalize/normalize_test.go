package normalize

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdash/pkg/domain/model"
)

func TestMoneyCoercion(t *testing.T) {
	value, err := Money("149.90")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("149.9")))

	zero, err := Money("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = Money("1,99")
	assert.Error(t, err)
}

func TestEnumLowering(t *testing.T) {
	assert.Equal(t, "paid", Enum("PAID"))
	assert.Equal(t, "partially_refunded", Enum("PARTIALLY_REFUNDED"))
	assert.Equal(t, "active", Enum(" ACTIVE "))
	assert.Equal(t, "draft", Enum("draft"))
}

func TestProductFromREST(t *testing.T) {
	raw := `{
		"id": 11,
		"title": "Trail Shoe",
		"vendor": "Acme",
		"product_type": "Footwear",
		"status": "active",
		"variants": [{"id": 21, "sku": "TS-9", "price": "49.95", "inventory_quantity": 3, "compare_at_price": "59.95"}],
		"images": [{"id": 31, "src": "https://cdn.example/shoe.jpg", "alt": "shoe"}]
	}`

	product, err := ProductFromREST(json.RawMessage(raw))
	require.NoError(t, err)

	assert.EqualValues(t, 11, product.ID)
	assert.Equal(t, model.ProductActive, product.Status)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "TS-9", product.Variants[0].SKU)
	require.NotNil(t, product.Variants[0].CompareAtPrice)
	assert.True(t, product.Variants[0].CompareAtPrice.Equal(decimal.RequireFromString("59.95")))
	require.Len(t, product.Images, 1)
	assert.Equal(t, "https://cdn.example/shoe.jpg", product.Images[0].Src)
}

func TestProductFromGraphQL(t *testing.T) {
	raw := `{
		"id": "gid://shopify/Product/11",
		"title": "Trail Shoe",
		"vendor": "Acme",
		"productType": "Footwear",
		"status": "ARCHIVED",
		"variants": {"edges": [{"node": {"id": "gid://shopify/ProductVariant/21", "sku": "TS-9", "price": "49.95", "inventoryQuantity": 3, "compareAtPrice": null}}]},
		"images": {"edges": [{"node": {"id": "gid://shopify/ProductImage/31", "url": "https://cdn.example/shoe.jpg", "altText": "shoe"}}]}
	}`

	product, err := ProductFromGraphQL(json.RawMessage(raw))
	require.NoError(t, err)

	assert.EqualValues(t, 11, product.ID)
	assert.Equal(t, model.ProductArchived, product.Status)
	require.Len(t, product.Variants, 1)
	assert.EqualValues(t, 21, product.Variants[0].ID)
	assert.Nil(t, product.Variants[0].CompareAtPrice)
	require.Len(t, product.Images, 1)
	assert.EqualValues(t, 31, product.Images[0].ID)
}

func TestCustomerFromREST(t *testing.T) {
	raw := `{"id": 556677, "email": "jo@example.com", "created_at": "2026-06-01T00:00:00Z", "orders_count": 4, "total_spent": "612.40", "tags": "wholesale, repeat ", "accepts_marketing": true}`

	customer, err := CustomerFromREST(json.RawMessage(raw))
	require.NoError(t, err)

	assert.EqualValues(t, 556677, customer.ID)
	assert.Equal(t, 4, customer.OrdersCount)
	assert.True(t, customer.TotalSpent.Equal(decimal.RequireFromString("612.40")))
	assert.Equal(t, []string{"wholesale", "repeat"}, customer.Tags)
	assert.True(t, customer.AcceptsMarketing)
}

func TestCustomerFromGraphQL(t *testing.T) {
	raw := `{
		"id": "gid://shopify/Customer/556677",
		"email": "",
		"createdAt": "2026-06-01T00:00:00Z",
		"numberOfOrders": "4",
		"amountSpent": {"amount": "612.4"},
		"tags": ["wholesale"],
		"emailMarketingConsent": {"marketingState": "SUBSCRIBED"}
	}`

	customer, err := CustomerFromGraphQL(json.RawMessage(raw))
	require.NoError(t, err)

	assert.EqualValues(t, 556677, customer.ID)
	assert.Empty(t, customer.Email)
	assert.Equal(t, 4, customer.OrdersCount)
	assert.True(t, customer.AcceptsMarketing)
}

func TestInventoryLevelFromREST(t *testing.T) {
	raw := `{"inventory_item_id": 42, "location_id": 7, "available": -2}`

	level, err := InventoryLevelFromREST(json.RawMessage(raw))
	require.NoError(t, err)

	assert.EqualValues(t, 42, level.InventoryItemID)
	assert.EqualValues(t, 7, level.LocationID)
	// Negative availability is preserved on the canonical record.
	assert.Equal(t, -2, level.Available)
}

func TestInventoryLevelFromGraphQL(t *testing.T) {
	raw := `{"available": 5, "item": {"id": "gid://shopify/InventoryItem/42"}, "location": {"id": "gid://shopify/Location/7"}}`

	level, err := InventoryLevelFromGraphQL(json.RawMessage(raw))
	require.NoError(t, err)

	assert.EqualValues(t, 42, level.InventoryItemID)
	assert.EqualValues(t, 7, level.LocationID)
	assert.Equal(t, 5, level.Available)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{}, splitTags(""))
	assert.Equal(t, []string{"a", "b"}, splitTags("a, b"))
	assert.Equal(t, []string{"solo"}, splitTags(" solo ,"))
}
