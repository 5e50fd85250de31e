package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdash/pkg/analytics"
	"shopdash/pkg/cache"
	"shopdash/pkg/domain/model"
	"shopdash/pkg/shopify"
)

type fakeAPI struct {
	call    func(ctx context.Context, store model.Store, method, path string, params url.Values) (*shopify.Response, error)
	graphql func(ctx context.Context, store model.Store, query string, variables map[string]any) (json.RawMessage, error)

	callCount    int
	graphqlCount int
}

func (f *fakeAPI) Call(ctx context.Context, store model.Store, method, path string, params url.Values, _ any) (*shopify.Response, error) {
	f.callCount++
	if f.call == nil {
		return nil, &shopify.APIError{Kind: shopify.KindTransient, Message: "no rest stub"}
	}
	return f.call(ctx, store, method, path, params)
}

func (f *fakeAPI) GraphQL(ctx context.Context, store model.Store, query string, variables map[string]any) (json.RawMessage, error) {
	f.graphqlCount++
	if f.graphql == nil {
		return nil, &shopify.APIError{Kind: shopify.KindTransient, Message: "no graphql stub"}
	}
	return f.graphql(ctx, store, query, variables)
}

type fakeDeactivator struct {
	deactivated []uuid.UUID
}

func (f *fakeDeactivator) Deactivate(id uuid.UUID) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

func testStore() model.Store {
	return model.Store{
		ID:          uuid.MustParse("2f7a1c9e-8f1d-4f7e-9c3a-5b2d6e8f0a1b"),
		ShopDomain:  "demo-store.myshopify.com",
		AccessToken: "shpat_test",
		IsActive:    true,
	}
}

func fastConfig() CollectionConfig {
	return CollectionConfig{PageSize: 2, MaxPages: 5, PageDelay: time.Millisecond}
}

func restOrderJSON(id int64, total string) string {
	return fmt.Sprintf(`{
		"id": %d,
		"created_at": "2026-08-10T12:00:00Z",
		"total_price": %q,
		"subtotal_price": %q,
		"total_tax": "0.00",
		"financial_status": "paid",
		"customer": {"id": 556677},
		"line_items": []
	}`, id, total, total)
}

func ordersBody(ids ...int64) json.RawMessage {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, restOrderJSON(id, "10.00"))
	}
	body := `{"orders":[`
	for i, item := range items {
		if i > 0 {
			body += ","
		}
		body += item
	}
	body += `]}`
	return json.RawMessage(body)
}

func nextLink(pageInfo string) http.Header {
	h := http.Header{}
	h.Set("Link", fmt.Sprintf(`<https://demo-store.myshopify.com/admin/api/2024-01/orders.json?page_info=%s&limit=2>; rel="next"`, pageInfo))
	return h
}

func TestCollectOrders(t *testing.T) {
	store := testStore()
	rng := DateRange{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}

	t.Run("normalizes and caches the result", func(t *testing.T) {
		api := &fakeAPI{
			call: func(_ context.Context, _ model.Store, method, path string, params url.Values) (*shopify.Response, error) {
				assert.Equal(t, http.MethodGet, method)
				assert.Equal(t, "orders.json", path)
				assert.Equal(t, "any", params.Get("status"))
				assert.Equal(t, "2026-08-01T00:00:00Z", params.Get("created_at_min"))
				return &shopify.Response{Body: ordersBody(101, 102), Header: http.Header{}}, nil
			},
		}
		svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

		orders, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.EqualValues(t, 101, orders[0].ID)
		assert.EqualValues(t, 556677, orders[0].CustomerID)
		assert.Equal(t, model.FinancialPaid, orders[0].FinancialStatus)

		// Second call must be served from cache.
		again, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.NoError(t, err)
		assert.Equal(t, orders, again)
		assert.Equal(t, 1, api.callCount)
	})

	t.Run("returns the partial result when a later page fails", func(t *testing.T) {
		api := &fakeAPI{}
		api.call = func(_ context.Context, _ model.Store, _, _ string, params url.Values) (*shopify.Response, error) {
			if api.callCount == 1 {
				return &shopify.Response{Body: ordersBody(1, 2), Header: nextLink("cursor1")}, nil
			}
			assert.Equal(t, "cursor1", params.Get("page_info"))
			return nil, &shopify.APIError{Kind: shopify.KindTransient, StatusCode: 500, Message: "upstream blew up"}
		}
		svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

		orders, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.NoError(t, err)
		require.Len(t, orders, 2)
	})

	t.Run("page_info requests drop the original query filters", func(t *testing.T) {
		api := &fakeAPI{}
		api.call = func(_ context.Context, _ model.Store, _, _ string, params url.Values) (*shopify.Response, error) {
			if api.callCount == 1 {
				return &shopify.Response{Body: ordersBody(1, 2), Header: nextLink("cursor1")}, nil
			}
			assert.Empty(t, params.Get("created_at_min"))
			assert.Empty(t, params.Get("status"))
			return &shopify.Response{Body: ordersBody(3), Header: http.Header{}}, nil
		}
		svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

		orders, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.NoError(t, err)
		assert.Len(t, orders, 3)
	})

	t.Run("falls back to graphql on a protected data denial", func(t *testing.T) {
		api := &fakeAPI{
			call: func(_ context.Context, _ model.Store, _, _ string, _ url.Values) (*shopify.Response, error) {
				return nil, &shopify.APIError{Kind: shopify.KindProtectedData, StatusCode: 403, Message: "protected customer data"}
			},
			graphql: func(_ context.Context, _ model.Store, _ string, variables map[string]any) (json.RawMessage, error) {
				assert.Contains(t, variables["query"], "created_at:>=2026-08-01T00:00:00Z")
				return json.RawMessage(`{
					"orders": {
						"edges": [{"cursor": "c1", "node": {
							"id": "gid://shopify/Order/998877",
							"createdAt": "2026-08-10T12:00:00Z",
							"displayFinancialStatus": "PAID",
							"totalPriceSet": {"shopMoney": {"amount": "55.00"}},
							"subtotalPriceSet": {"shopMoney": {"amount": "55.00"}},
							"totalTaxSet": {"shopMoney": {"amount": "0.00"}},
							"lineItems": {"edges": []}
						}}],
						"pageInfo": {"hasNextPage": false, "endCursor": "c1"}
					}
				}`), nil
			},
		}
		svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

		orders, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.EqualValues(t, 998877, orders[0].ID)
		assert.Equal(t, model.FinancialPaid, orders[0].FinancialStatus)
		assert.Equal(t, 1, api.graphqlCount)
	})

	t.Run("deactivates the store on an auth failure", func(t *testing.T) {
		api := &fakeAPI{
			call: func(_ context.Context, _ model.Store, _, _ string, _ url.Values) (*shopify.Response, error) {
				return nil, &shopify.APIError{Kind: shopify.KindUnauthorized, StatusCode: 401, Message: "invalid token"}
			},
		}
		deactivator := &fakeDeactivator{}
		svc := NewCollectionService(api, cache.NewMemory(), deactivator, fastConfig())

		_, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.Error(t, err)
		assert.True(t, shopify.IsKind(err, shopify.KindUnauthorized))
		require.Len(t, deactivator.deactivated, 1)
		assert.Equal(t, store.ID, deactivator.deactivated[0])
	})

	t.Run("skips malformed records without failing the page", func(t *testing.T) {
		api := &fakeAPI{
			call: func(_ context.Context, _ model.Store, _, _ string, _ url.Values) (*shopify.Response, error) {
				body := `{"orders":[` + restOrderJSON(7, "10.00") + `,{"id": 8, "created_at": "not a timestamp"}]}`
				return &shopify.Response{Body: json.RawMessage(body), Header: http.Header{}}, nil
			},
		}
		svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

		orders, err := svc.CollectOrders(context.Background(), store, rng, analytics.PerformanceFilters{})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.EqualValues(t, 7, orders[0].ID)
	})
}

func TestCollectProducts(t *testing.T) {
	store := testStore()

	api := &fakeAPI{
		call: func(_ context.Context, _ model.Store, _, path string, _ url.Values) (*shopify.Response, error) {
			assert.Equal(t, "products.json", path)
			return &shopify.Response{Body: json.RawMessage(`{
				"products": [{
					"id": 42,
					"title": "Widget",
					"vendor": "Acme",
					"product_type": "Gadget",
					"status": "ACTIVE",
					"variants": [],
					"images": []
				}]
			}`), Header: http.Header{}}, nil
		},
	}
	svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

	products, err := svc.CollectProducts(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.EqualValues(t, 42, products[0].ID)
	assert.Equal(t, model.ProductActive, products[0].Status)

	_, err = svc.CollectProducts(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount)
}

func TestCollectCustomersProtectedDataFallback(t *testing.T) {
	store := testStore()

	api := &fakeAPI{
		call: func(_ context.Context, _ model.Store, _, _ string, _ url.Values) (*shopify.Response, error) {
			return nil, &shopify.APIError{Kind: shopify.KindProtectedData, StatusCode: 403, Message: "protected customer data"}
		},
		graphql: func(_ context.Context, _ model.Store, query string, _ map[string]any) (json.RawMessage, error) {
			assert.Contains(t, query, "customers(first: $first")
			return json.RawMessage(`{
				"customers": {
					"edges": [{"cursor": "c1", "node": {
						"id": "gid://shopify/Customer/556677",
						"email": "jo@example.com",
						"createdAt": "2026-05-01T00:00:00Z",
						"numberOfOrders": "4",
						"amountSpent": {"amount": "612.40"},
						"emailMarketingConsent": {"marketingState": "subscribed"}
					}}],
					"pageInfo": {"hasNextPage": false, "endCursor": "c1"}
				}
			}`), nil
		},
	}
	svc := NewCollectionService(api, cache.NewMemory(), nil, fastConfig())

	customers, err := svc.CollectCustomers(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.EqualValues(t, 556677, customers[0].ID)
	assert.Equal(t, 4, customers[0].OrdersCount)
	assert.True(t, customers[0].AcceptsMarketing)
}

func TestCacheKeys(t *testing.T) {
	store := testStore()
	rng := DateRange{
		Start: time.Unix(1700000000, 0).UTC(),
		End:   time.Unix(1700600000, 0).UTC(),
	}

	assert.Equal(t, "products_"+store.ID.String(), cacheKey("products", store))

	plain := rangedCacheKey("orders", store, rng, analytics.PerformanceFilters{})
	assert.Equal(t, fmt.Sprintf("orders_%s_1700000000_1700600000", store.ID), plain)

	filtered := rangedCacheKey("orders", store, rng, analytics.PerformanceFilters{Vendor: "Acme"})
	assert.NotEqual(t, plain, filtered)
	assert.Contains(t, filtered, plain+"_")
}
