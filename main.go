package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"shopdash/pkg/cache"
	"shopdash/pkg/config"
	"shopdash/pkg/domain/service"
	"shopdash/pkg/shopify"
	"shopdash/pkg/storage"
	"shopdash/transport"
)

const appID = "shopdash"

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	_ = godotenv.Load()

	app := &cli.App{
		Name:  appID,
		Usage: "Shopify store analytics collection and aggregation service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the analytics HTTP server",
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("service failed")
	}
}

func serve(_ *cli.Context) error {
	cfg, err := config.Parse(appID)
	if err != nil {
		return err
	}

	db, err := storage.Connect(cfg.DatabaseDSN, cfg.DatabaseMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(db, cfg.DatabaseMigrationsDir); err != nil {
		return err
	}

	stores := storage.NewStoreRepository(db)

	memory := cache.NewMemory()
	memory.StartJanitor(cfg.CacheJanitorInterval)
	defer memory.Close()

	client := shopify.NewClient(shopify.WithAPIVersion(cfg.ShopifyAPIVersion))
	collector := service.NewCollectionService(client, memory, stores, service.CollectionConfig{
		PageSize:  cfg.CollectPageSize,
		MaxPages:  cfg.CollectMaxPages,
		PageDelay: cfg.CollectPageDelay,
		OrdersTTL: cfg.OrdersCacheTTL,
		EntityTTL: cfg.EntityCacheTTL,
	})
	analyticsService := service.NewAnalyticsService(collector, memory, service.AnalyticsConfig{
		SalesTTL:          cfg.SalesAnalyticsTTL,
		ProductTTL:        cfg.ProductAnalyticsTTL,
		CustomerTTL:       cfg.CustomerAnalyticsTTL,
		InventoryTTL:      cfg.InventoryAnalyticsTTL,
		DashboardTTL:      cfg.DashboardAnalyticsTTL,
		LowStockThreshold: cfg.LowStockThreshold,
	})

	router := transport.Router(stores, analyticsService, memory)
	srv := &http.Server{Addr: cfg.ServeRESTAddress, Handler: router}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.WithField("url", cfg.ServeRESTAddress).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		waitForKillSignal(ctx)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func waitForKillSignal(ctx context.Context) {
	killSignalChan := make(chan os.Signal, 1)
	signal.Notify(killSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(killSignalChan)

	select {
	case killSignal := <-killSignalChan:
		switch killSignal {
		case os.Interrupt:
			log.Info("Got SIGINT...")
		case syscall.SIGTERM:
			log.Info("Got SIGTERM...")
		}
	case <-ctx.Done():
	}
}
