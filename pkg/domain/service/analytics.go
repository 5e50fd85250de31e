package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"shopdash/pkg/analytics"
	"shopdash/pkg/cache"
	"shopdash/pkg/domain/model"
)

// Report wrappers carry the data-source tag alongside the fixed analytics
// vocabulary. The shape is identical whether the payload came from the live
// pipeline or the fallback generator; only the tag differs.

type SalesReport struct {
	DataSource string `json:"data_source"`
	model.SalesSummary
}

type ProductReport struct {
	DataSource  string                   `json:"data_source"`
	Performance model.ProductPerformance `json:"performance"`
	Summary     model.ProductSummary     `json:"summary"`
}

type CustomerReport struct {
	DataSource string `json:"data_source"`
	model.CustomerSegments
}

type InventoryReport struct {
	DataSource string `json:"data_source"`
	model.InventoryStatus
}

type DashboardReport struct {
	DataSource string          `json:"data_source"`
	Sales      SalesReport     `json:"sales"`
	Products   ProductReport   `json:"products"`
	Customers  CustomerReport  `json:"customers"`
	Inventory  InventoryReport `json:"inventory"`
}

// AnalyticsService is the cached facade over collection and transformation.
// Every method degrades to the deterministic fallback source instead of
// surfacing a pipeline error; the UI never sees a raw failure.
type AnalyticsService interface {
	SalesAnalytics(ctx context.Context, store model.Store, rng DateRange) SalesReport
	ProductAnalytics(ctx context.Context, store model.Store, rng DateRange, filters analytics.PerformanceFilters) ProductReport
	CustomerAnalytics(ctx context.Context, store model.Store) CustomerReport
	InventoryAnalytics(ctx context.Context, store model.Store) InventoryReport
	DashboardAnalytics(ctx context.Context, store model.Store, rng DateRange) DashboardReport
}

// AnalyticsConfig tunes orchestrator cache policy.
type AnalyticsConfig struct {
	SalesTTL     time.Duration
	ProductTTL   time.Duration
	CustomerTTL  time.Duration
	InventoryTTL time.Duration
	DashboardTTL time.Duration
	// LowStockThreshold feeds the inventory classifier.
	LowStockThreshold int
}

func (c AnalyticsConfig) withDefaults() AnalyticsConfig {
	if c.SalesTTL <= 0 {
		c.SalesTTL = 15 * time.Minute
	}
	if c.ProductTTL <= 0 {
		c.ProductTTL = 30 * time.Minute
	}
	if c.CustomerTTL <= 0 {
		c.CustomerTTL = time.Hour
	}
	if c.InventoryTTL <= 0 {
		c.InventoryTTL = 30 * time.Minute
	}
	if c.DashboardTTL <= 0 {
		c.DashboardTTL = 15 * time.Minute
	}
	if c.LowStockThreshold <= 0 {
		c.LowStockThreshold = analytics.DefaultLowStockThreshold
	}
	return c
}

func NewAnalyticsService(collector CollectionService, store cache.Cache, cfg AnalyticsConfig) AnalyticsService {
	return &analyticsService{
		collector: collector,
		cache:     store,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

type analyticsService struct {
	collector CollectionService
	cache     cache.Cache
	cfg       AnalyticsConfig
	now       func() time.Time
}

func (s *analyticsService) SalesAnalytics(ctx context.Context, store model.Store, rng DateRange) SalesReport {
	key := rangedCacheKey("analytics_sales", store, rng, analytics.PerformanceFilters{})
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(SalesReport); ok {
			return report
		}
	}

	orders, err := s.collector.CollectOrders(ctx, store, rng, analytics.PerformanceFilters{})
	if err != nil {
		s.logFallback(store, "sales", err)
		return SalesReport{
			DataSource:   model.SourceFallback,
			SalesSummary: mockSalesSummary(store, rng, s.now()),
		}
	}

	report := SalesReport{
		DataSource:   model.SourceShopify,
		SalesSummary: analytics.SalesTimeline(orders, rng.Start, rng.End, s.now()),
	}
	s.cache.Set(key, report, s.cfg.SalesTTL)
	return report
}

func (s *analyticsService) ProductAnalytics(ctx context.Context, store model.Store, rng DateRange, filters analytics.PerformanceFilters) ProductReport {
	key := rangedCacheKey("analytics_products", store, rng, filters)
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(ProductReport); ok {
			return report
		}
	}

	orders, err := s.collector.CollectOrders(ctx, store, rng, filters)
	if err != nil {
		s.logFallback(store, "products", err)
		return mockProductReport(store, rng)
	}
	products, err := s.collector.CollectProducts(ctx, store)
	if err != nil {
		s.logFallback(store, "products", err)
		return mockProductReport(store, rng)
	}

	report := ProductReport{
		DataSource:  model.SourceShopify,
		Performance: analytics.ProductPerformance(orders, filters),
		Summary:     analytics.ProductSummary(products, orders),
	}
	s.cache.Set(key, report, s.cfg.ProductTTL)
	return report
}

func (s *analyticsService) CustomerAnalytics(ctx context.Context, store model.Store) CustomerReport {
	key := cacheKey("analytics_customers", store)
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(CustomerReport); ok {
			return report
		}
	}

	customers, err := s.collector.CollectCustomers(ctx, store)
	if err != nil {
		s.logFallback(store, "customers", err)
		return CustomerReport{
			DataSource:       model.SourceFallback,
			CustomerSegments: mockCustomerSegments(store, s.now()),
		}
	}
	history, err := s.collector.CollectOrderHistory(ctx, store)
	if err != nil {
		s.logFallback(store, "customers", err)
		return CustomerReport{
			DataSource:       model.SourceFallback,
			CustomerSegments: mockCustomerSegments(store, s.now()),
		}
	}

	report := CustomerReport{
		DataSource:       model.SourceShopify,
		CustomerSegments: analytics.Segments(customers, history, s.now()),
	}
	s.cache.Set(key, report, s.cfg.CustomerTTL)
	return report
}

func (s *analyticsService) InventoryAnalytics(ctx context.Context, store model.Store) InventoryReport {
	key := cacheKey("analytics_inventory", store)
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(InventoryReport); ok {
			return report
		}
	}

	levels, err := s.collector.CollectInventoryLevels(ctx, store)
	if err != nil {
		s.logFallback(store, "inventory", err)
		return InventoryReport{
			DataSource:      model.SourceFallback,
			InventoryStatus: mockInventoryStatus(store),
		}
	}

	report := InventoryReport{
		DataSource:      model.SourceShopify,
		InventoryStatus: analytics.InventoryStatus(levels, s.cfg.LowStockThreshold),
	}
	s.cache.Set(key, report, s.cfg.InventoryTTL)
	return report
}

func (s *analyticsService) DashboardAnalytics(ctx context.Context, store model.Store, rng DateRange) DashboardReport {
	key := rangedCacheKey("analytics_dashboard", store, rng, analytics.PerformanceFilters{})
	if cached, found := s.cache.Get(key); found {
		if report, ok := cached.(DashboardReport); ok {
			return report
		}
	}

	// Sub-views run sequentially; each is cache-aside in its own right, so a
	// dashboard refresh reuses whatever the individual views cached.
	report := DashboardReport{
		Sales:     s.SalesAnalytics(ctx, store, rng),
		Products:  s.ProductAnalytics(ctx, store, rng, analytics.PerformanceFilters{}),
		Customers: s.CustomerAnalytics(ctx, store),
		Inventory: s.InventoryAnalytics(ctx, store),
	}
	report.DataSource = model.SourceShopify
	for _, source := range []string{report.Sales.DataSource, report.Products.DataSource, report.Customers.DataSource, report.Inventory.DataSource} {
		if source == model.SourceFallback {
			report.DataSource = model.SourceFallback
			break
		}
	}

	// A degraded dashboard is never cached, same as the individual views;
	// the next refresh retries the pipeline instead of pinning mock data.
	if report.DataSource == model.SourceFallback {
		return report
	}

	s.cache.Set(key, report, s.cfg.DashboardTTL)
	return report
}

func (s *analyticsService) logFallback(store model.Store, view string, err error) {
	log.WithError(err).WithFields(log.Fields{"shop": store.ShopDomain, "view": view}).
		Warn("pipeline failed, serving fallback analytics")
}
