package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"shopdash/pkg/analytics"
	"shopdash/pkg/cache"
	"shopdash/pkg/domain/model"
	"shopdash/pkg/normalize"
	"shopdash/pkg/shopify"
)

// DateRange bounds date-scoped collection; both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ShopifyAPI is the slice of the Shopify client the collection service uses;
// tests inject a fake.
type ShopifyAPI interface {
	Call(ctx context.Context, store model.Store, method, path string, params url.Values, body any) (*shopify.Response, error)
	GraphQL(ctx context.Context, store model.Store, query string, variables map[string]any) (json.RawMessage, error)
}

// StoreDeactivator marks a store's connection invalid after an auth failure.
// Store lifecycle itself is owned elsewhere.
type StoreDeactivator interface {
	Deactivate(id uuid.UUID) error
}

// CollectionConfig tunes pagination and cache policy.
type CollectionConfig struct {
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
	// OrdersTTL is short since orders drive near-real-time dashboards.
	OrdersTTL time.Duration
	// EntityTTL covers products, customers and inventory.
	EntityTTL time.Duration
}

func (c CollectionConfig) withDefaults() CollectionConfig {
	if c.PageSize <= 0 {
		c.PageSize = shopify.DefaultPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = shopify.DefaultMaxPages
	}
	if c.PageDelay <= 0 {
		c.PageDelay = shopify.DefaultPageDelay
	}
	if c.OrdersTTL <= 0 {
		c.OrdersTTL = 30 * time.Minute
	}
	if c.EntityTTL <= 0 {
		c.EntityTTL = 2 * time.Hour
	}
	return c
}

// CollectionService fetches normalized entity collections, cache-aside per
// entity. A failure mid-pagination yields the partial result with a warning,
// since partial data is still useful for dashboards; only a failure before
// anything was collected surfaces as an error.
type CollectionService interface {
	CollectOrders(ctx context.Context, store model.Store, rng DateRange, filters analytics.PerformanceFilters) ([]model.Order, error)
	CollectOrderHistory(ctx context.Context, store model.Store) ([]model.Order, error)
	CollectProducts(ctx context.Context, store model.Store) ([]model.Product, error)
	CollectCustomers(ctx context.Context, store model.Store) ([]model.Customer, error)
	CollectInventoryLevels(ctx context.Context, store model.Store) ([]model.InventoryLevel, error)
}

func NewCollectionService(api ShopifyAPI, store cache.Cache, deactivator StoreDeactivator, cfg CollectionConfig) CollectionService {
	return &collectionService{
		api:         api,
		cache:       store,
		deactivator: deactivator,
		cfg:         cfg.withDefaults(),
	}
}

type collectionService struct {
	api         ShopifyAPI
	cache       cache.Cache
	deactivator StoreDeactivator
	cfg         CollectionConfig
}

func (s *collectionService) CollectOrders(ctx context.Context, store model.Store, rng DateRange, filters analytics.PerformanceFilters) ([]model.Order, error) {
	key := rangedCacheKey("orders", store, rng, filters)
	if cached, found := s.cache.Get(key); found {
		if orders, ok := cached.([]model.Order); ok {
			return orders, nil
		}
	}

	orders, err := s.fetchOrdersREST(ctx, store, rng)
	if err != nil && shopify.IsKind(err, shopify.KindProtectedData) {
		// The app lacks the protected-customer-data scope; GraphQL exposes a
		// reduced, scope-compliant field set for the same orders.
		log.WithFields(log.Fields{"shop": store.ShopDomain, "entity": "orders"}).
			Info("protected data scope missing, falling back to graphql")
		orders, err = s.fetchOrdersGraphQL(ctx, store, rng)
	}
	if err != nil {
		return nil, s.collectionFailed(store, "orders", err)
	}

	s.cache.Set(key, orders, s.cfg.OrdersTTL)
	return orders, nil
}

func (s *collectionService) CollectOrderHistory(ctx context.Context, store model.Store) ([]model.Order, error) {
	key := cacheKey("order_history", store)
	if cached, found := s.cache.Get(key); found {
		if orders, ok := cached.([]model.Order); ok {
			return orders, nil
		}
	}

	// Unbounded range: customer segmentation needs full lifetime recency.
	orders, err := s.fetchOrdersREST(ctx, store, DateRange{})
	if err != nil && shopify.IsKind(err, shopify.KindProtectedData) {
		orders, err = s.fetchOrdersGraphQL(ctx, store, DateRange{})
	}
	if err != nil {
		return nil, s.collectionFailed(store, "order_history", err)
	}

	s.cache.Set(key, orders, s.cfg.EntityTTL)
	return orders, nil
}

func (s *collectionService) CollectProducts(ctx context.Context, store model.Store) ([]model.Product, error) {
	key := cacheKey("products", store)
	if cached, found := s.cache.Get(key); found {
		if products, ok := cached.([]model.Product); ok {
			return products, nil
		}
	}

	pager := s.restPager(store, "products.json", "products", nil)
	products, err := drainPages(ctx, pager.Next, normalize.ProductFromREST, store, "products")
	if err != nil {
		return nil, s.collectionFailed(store, "products", err)
	}

	s.cache.Set(key, products, s.cfg.EntityTTL)
	return products, nil
}

func (s *collectionService) CollectCustomers(ctx context.Context, store model.Store) ([]model.Customer, error) {
	key := cacheKey("customers", store)
	if cached, found := s.cache.Get(key); found {
		if customers, ok := cached.([]model.Customer); ok {
			return customers, nil
		}
	}

	pager := s.restPager(store, "customers.json", "customers", nil)
	customers, err := drainPages(ctx, pager.Next, normalize.CustomerFromREST, store, "customers")
	if err != nil && shopify.IsKind(err, shopify.KindProtectedData) {
		log.WithFields(log.Fields{"shop": store.ShopDomain, "entity": "customers"}).
			Info("protected data scope missing, falling back to graphql")
		customers, err = s.fetchCustomersGraphQL(ctx, store)
	}
	if err != nil {
		return nil, s.collectionFailed(store, "customers", err)
	}

	s.cache.Set(key, customers, s.cfg.EntityTTL)
	return customers, nil
}

func (s *collectionService) CollectInventoryLevels(ctx context.Context, store model.Store) ([]model.InventoryLevel, error) {
	key := cacheKey("inventory", store)
	if cached, found := s.cache.Get(key); found {
		if levels, ok := cached.([]model.InventoryLevel); ok {
			return levels, nil
		}
	}

	pager := s.restPager(store, "inventory_levels.json", "inventory_levels", nil)
	levels, err := drainPages(ctx, pager.Next, normalize.InventoryLevelFromREST, store, "inventory")
	if err != nil {
		return nil, s.collectionFailed(store, "inventory", err)
	}

	s.cache.Set(key, levels, s.cfg.EntityTTL)
	return levels, nil
}

func (s *collectionService) fetchOrdersREST(ctx context.Context, store model.Store, rng DateRange) ([]model.Order, error) {
	base := url.Values{}
	base.Set("status", "any")
	if !rng.Start.IsZero() {
		base.Set("created_at_min", rng.Start.UTC().Format(time.RFC3339))
	}
	if !rng.End.IsZero() {
		base.Set("created_at_max", rng.End.UTC().Format(time.RFC3339))
	}

	pager := s.restPager(store, "orders.json", "orders", base)
	return drainPages(ctx, pager.Next, normalize.OrderFromREST, store, "orders")
}

const ordersGraphQLQuery = `query($first: Int!, $after: String, $query: String) {
  orders(first: $first, after: $after, query: $query) {
    edges {
      cursor
      node {
        id
        createdAt
        processedAt
        cancelledAt
        displayFinancialStatus
        totalPriceSet { shopMoney { amount } }
        subtotalPriceSet { shopMoney { amount } }
        totalTaxSet { shopMoney { amount } }
        customer { id }
        lineItems(first: 50) {
          edges {
            node {
              title
              quantity
              vendor
              originalUnitPriceSet { shopMoney { amount } }
              product { id productType }
              variant { id }
            }
          }
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

func (s *collectionService) fetchOrdersGraphQL(ctx context.Context, store model.Store, rng DateRange) ([]model.Order, error) {
	search := ""
	if !rng.Start.IsZero() {
		search = fmt.Sprintf("created_at:>=%s", rng.Start.UTC().Format(time.RFC3339))
	}
	if !rng.End.IsZero() {
		if search != "" {
			search += " "
		}
		search += fmt.Sprintf("created_at:<=%s", rng.End.UTC().Format(time.RFC3339))
	}

	pager := s.graphqlPager(store, ordersGraphQLQuery, "orders", search)
	return drainPages(ctx, pager.Next, normalize.OrderFromGraphQL, store, "orders")
}

const customersGraphQLQuery = `query($first: Int!, $after: String, $query: String) {
  customers(first: $first, after: $after, query: $query) {
    edges {
      cursor
      node {
        id
        email
        createdAt
        numberOfOrders
        tags
        amountSpent { amount }
        emailMarketingConsent { marketingState }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

func (s *collectionService) fetchCustomersGraphQL(ctx context.Context, store model.Store) ([]model.Customer, error) {
	pager := s.graphqlPager(store, customersGraphQLQuery, "customers", "")
	return drainPages(ctx, pager.Next, normalize.CustomerFromGraphQL, store, "customers")
}

func (s *collectionService) restPager(store model.Store, path, itemsKey string, base url.Values) *shopify.RestPager {
	fetch := func(ctx context.Context, params url.Values) (*shopify.Response, error) {
		merged := url.Values{}
		for key, values := range base {
			merged[key] = values
		}
		// page_info requests must not repeat the original filters.
		if params.Get("page_info") != "" {
			merged = url.Values{}
		}
		for key, values := range params {
			merged[key] = values
		}
		return s.api.Call(ctx, store, http.MethodGet, path, merged, nil)
	}
	return shopify.NewRestPager(fetch, itemsKey, s.cfg.PageSize, s.cfg.MaxPages, s.cfg.PageDelay)
}

func (s *collectionService) graphqlPager(store model.Store, query, connectionField, search string) *shopify.GraphQLPager {
	fetch := func(ctx context.Context, after string) (shopify.Connection, error) {
		variables := map[string]any{"first": s.cfg.PageSize}
		if after != "" {
			variables["after"] = after
		}
		if search != "" {
			variables["query"] = search
		}
		data, err := s.api.GraphQL(ctx, store, query, variables)
		if err != nil {
			return shopify.Connection{}, err
		}
		var payload map[string]shopify.Connection
		if err := json.Unmarshal(data, &payload); err != nil {
			return shopify.Connection{}, &shopify.APIError{Kind: shopify.KindTransient, Message: "malformed connection payload: " + err.Error()}
		}
		return payload[connectionField], nil
	}
	return shopify.NewGraphQLPager(fetch, s.cfg.PageSize, s.cfg.MaxPages, s.cfg.PageDelay)
}

func (s *collectionService) collectionFailed(store model.Store, entity string, err error) error {
	log.WithError(err).WithFields(log.Fields{"shop": store.ShopDomain, "entity": entity}).
		Error("collection failed")
	if shopify.IsKind(err, shopify.KindUnauthorized) && s.deactivator != nil {
		// Token invalid or revoked: the connection is broken until the
		// merchant reinstalls, so stop hitting the API for this store.
		if deactivateErr := s.deactivator.Deactivate(store.ID); deactivateErr != nil {
			log.WithError(deactivateErr).WithField("shop", store.ShopDomain).Warn("store deactivation failed")
		}
	}
	return err
}

// drainPages consumes a pager, normalizing every item. Malformed records are
// skipped with a warning rather than failing the aggregate; a page error
// after at least one collected item yields the partial result.
func drainPages[T any](ctx context.Context, next func(context.Context) ([]json.RawMessage, bool, error), normalizeFn func(json.RawMessage) (T, error), store model.Store, entity string) ([]T, error) {
	collected := []T{}
	for {
		items, ok, err := next(ctx)
		if err != nil {
			if len(collected) > 0 {
				log.WithError(err).WithFields(log.Fields{
					"shop":      store.ShopDomain,
					"entity":    entity,
					"collected": len(collected),
				}).Warn("pagination halted, returning partial result")
				return collected, nil
			}
			return nil, err
		}
		if !ok {
			return collected, nil
		}
		for _, item := range items {
			record, err := normalizeFn(item)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{"shop": store.ShopDomain, "entity": entity}).
					Warn("skipping malformed record")
				continue
			}
			collected = append(collected, record)
		}
	}
}

func cacheKey(entity string, store model.Store) string {
	return fmt.Sprintf("%s_%s", entity, store.ID)
}

func rangedCacheKey(entity string, store model.Store, rng DateRange, filters analytics.PerformanceFilters) string {
	key := fmt.Sprintf("%s_%s_%d_%d", entity, store.ID, rng.Start.Unix(), rng.End.Unix())
	if filters != (analytics.PerformanceFilters{}) {
		payload, _ := json.Marshal(filters)
		digest := md5.Sum(payload)
		key += "_" + hex.EncodeToString(digest[:])
	}
	return key
}
