package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config is the process environment. Every knob has a default suitable for
// local development except the database DSN.
type Config struct {
	ServeRESTAddress string `envconfig:"serve_rest_address" default:":8080"`

	DatabaseDSN           string `envconfig:"database_dsn" required:"true"`
	DatabaseMaxConns      int    `envconfig:"database_max_conns" default:"10"`
	DatabaseMigrationsDir string `envconfig:"database_migrations_dir" default:"migrations"`

	ShopifyAPIVersion string `envconfig:"shopify_api_version" default:"2024-01"`

	CollectPageSize  int           `envconfig:"collect_page_size" default:"250"`
	CollectMaxPages  int           `envconfig:"collect_max_pages" default:"20"`
	CollectPageDelay time.Duration `envconfig:"collect_page_delay" default:"500ms"`

	OrdersCacheTTL time.Duration `envconfig:"orders_cache_ttl" default:"30m"`
	EntityCacheTTL time.Duration `envconfig:"entity_cache_ttl" default:"2h"`

	SalesAnalyticsTTL     time.Duration `envconfig:"sales_analytics_ttl" default:"15m"`
	ProductAnalyticsTTL   time.Duration `envconfig:"product_analytics_ttl" default:"30m"`
	CustomerAnalyticsTTL  time.Duration `envconfig:"customer_analytics_ttl" default:"1h"`
	InventoryAnalyticsTTL time.Duration `envconfig:"inventory_analytics_ttl" default:"30m"`
	DashboardAnalyticsTTL time.Duration `envconfig:"dashboard_analytics_ttl" default:"15m"`

	LowStockThreshold int `envconfig:"low_stock_threshold" default:"5"`

	CacheJanitorInterval time.Duration `envconfig:"cache_janitor_interval" default:"5m"`
}

// Parse reads the configuration from the environment with the given prefix.
func Parse(prefix string) (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process(prefix, cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}
