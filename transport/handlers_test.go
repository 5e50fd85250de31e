package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopdash/pkg/analytics"
	"shopdash/pkg/cache"
	"shopdash/pkg/domain/model"
	"shopdash/pkg/domain/service"
)

type stubStores struct {
	store model.Store
}

func (s *stubStores) NextID() (uuid.UUID, error)   { return uuid.New(), nil }
func (s *stubStores) Create(*model.Store) error    { return nil }
func (s *stubStores) Deactivate(uuid.UUID) error   { return nil }
func (s *stubStores) List() ([]model.Store, error) { return []model.Store{s.store}, nil }

func (s *stubStores) Find(id uuid.UUID) (*model.Store, error) {
	if id != s.store.ID {
		return nil, model.ErrStoreNotFound
	}
	found := s.store
	return &found, nil
}

func (s *stubStores) FindByDomain(shopDomain string) (*model.Store, error) {
	if shopDomain != s.store.ShopDomain {
		return nil, model.ErrStoreNotFound
	}
	found := s.store
	return &found, nil
}

type stubAnalytics struct {
	lastRange   service.DateRange
	lastFilters analytics.PerformanceFilters
}

func (s *stubAnalytics) SalesAnalytics(_ context.Context, _ model.Store, rng service.DateRange) service.SalesReport {
	s.lastRange = rng
	return service.SalesReport{DataSource: model.SourceShopify}
}

func (s *stubAnalytics) ProductAnalytics(_ context.Context, _ model.Store, rng service.DateRange, filters analytics.PerformanceFilters) service.ProductReport {
	s.lastRange = rng
	s.lastFilters = filters
	return service.ProductReport{DataSource: model.SourceShopify}
}

func (s *stubAnalytics) CustomerAnalytics(context.Context, model.Store) service.CustomerReport {
	return service.CustomerReport{DataSource: model.SourceShopify}
}

func (s *stubAnalytics) InventoryAnalytics(context.Context, model.Store) service.InventoryReport {
	return service.InventoryReport{DataSource: model.SourceFallback}
}

func (s *stubAnalytics) DashboardAnalytics(_ context.Context, _ model.Store, rng service.DateRange) service.DashboardReport {
	s.lastRange = rng
	return service.DashboardReport{DataSource: model.SourceShopify}
}

func activeStore() model.Store {
	return model.Store{
		ID:         uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		ShopDomain: "demo-store.myshopify.com",
		IsActive:   true,
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	store := activeStore()
	stores := &stubStores{store: store}
	stub := &stubAnalytics{}
	router := Router(stores, stub, cache.NewMemory())

	t.Run("sales returns the report as json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/"+store.ID.String()+"/analytics/sales", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, model.SourceShopify, payload["data_source"])
	})

	t.Run("explicit date range is passed through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/"+store.ID.String()+"/analytics/sales?start=2026-08-01&end=2026-08-14", nil)
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), stub.lastRange.Start)
		assert.Equal(t, time.Date(2026, 8, 14, 23, 59, 59, 0, time.UTC), stub.lastRange.End)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/"+store.ID.String()+"/analytics/sales?start=yesterday", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("product filters come from the query string", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/"+store.ID.String()+"/analytics/products?vendor=Acme&product_type=Gadget", nil)
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Acme", stub.lastFilters.Vendor)
		assert.Equal(t, "Gadget", stub.lastFilters.ProductType)
	})

	t.Run("invalid store id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/not-a-uuid/analytics/sales", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown store id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/"+uuid.NewString()+"/analytics/sales", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("inactive store is rejected", func(t *testing.T) {
		inactive := activeStore()
		inactive.IsActive = false
		router := Router(&stubStores{store: inactive}, stub, cache.NewMemory())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stores/"+inactive.ID.String()+"/analytics/sales", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestClearCacheHandler(t *testing.T) {
	store := activeStore()
	memory := cache.NewMemory()
	memory.Set("orders_"+store.ID.String()+"_100_200", "cached", time.Minute)
	memory.Set("analytics_sales_"+store.ID.String()+"_100_200", "cached", time.Minute)
	otherKey := "orders_" + uuid.NewString() + "_100_200"
	memory.Set(otherKey, "cached", time.Minute)

	router := Router(&stubStores{store: store}, &stubAnalytics{}, memory)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stores/"+store.ID.String()+"/cache/clear", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 2, payload["deleted"])

	// Other stores keep their entries.
	_, found := memory.Get(otherKey)
	assert.True(t, found)
}

func TestWebhookHandler(t *testing.T) {
	store := activeStore()

	t.Run("order webhook invalidates order and analytics entries", func(t *testing.T) {
		memory := cache.NewMemory()
		memory.Set("orders_"+store.ID.String()+"_100_200", "cached", time.Minute)
		memory.Set("order_history_"+store.ID.String(), "cached", time.Minute)
		memory.Set("analytics_dashboard_"+store.ID.String()+"_100_200", "cached", time.Minute)
		memory.Set("products_"+store.ID.String(), "cached", time.Minute)

		router := Router(&stubStores{store: store}, &stubAnalytics{}, memory)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/orders/create", nil)
		req.Header.Set("X-Shopify-Shop-Domain", store.ShopDomain)
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, memory.Len())
		_, found := memory.Get("products_" + store.ID.String())
		assert.True(t, found)
	})

	t.Run("unknown shop is acknowledged without invalidation", func(t *testing.T) {
		memory := cache.NewMemory()
		memory.Set("orders_"+store.ID.String()+"_100_200", "cached", time.Minute)

		router := Router(&stubStores{store: store}, &stubAnalytics{}, memory)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/orders/create", nil)
		req.Header.Set("X-Shopify-Shop-Domain", "someone-else.myshopify.com")
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, memory.Len())
	})

	t.Run("missing shop domain header", func(t *testing.T) {
		router := Router(&stubStores{store: store}, &stubAnalytics{}, cache.NewMemory())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/orders/create", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	router := Router(&stubStores{store: activeStore()}, &stubAnalytics{}, cache.NewMemory())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
