package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shopdash/pkg/analytics"
	"shopdash/pkg/cache"
	"shopdash/pkg/domain/model"
	"shopdash/pkg/domain/service"
)

const dateLayout = "2006-01-02"

type Handler struct {
	stores    model.StoreRepository
	analytics service.AnalyticsService
	cache     cache.Cache
}

func Router(stores model.StoreRepository, analyticsService service.AnalyticsService, cacheStore cache.Cache) http.Handler {
	handler := &Handler{
		stores:    stores,
		analytics: analyticsService,
		cache:     cacheStore,
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stores/{id}/analytics/sales", handler.salesHandler).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/analytics/products", handler.productsHandler).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/analytics/customers", handler.customersHandler).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/analytics/inventory", handler.inventoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/analytics/dashboard", handler.dashboardHandler).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/cache/clear", handler.clearCacheHandler).Methods(http.MethodPost)

	r.HandleFunc("/webhooks/{topic:.+}", handler.webhookHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return logMiddleware(r)
}

func (h *Handler) salesHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requestedStore(w, r)
	if !ok {
		return
	}
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.analytics.SalesAnalytics(r.Context(), store, rng))
}

func (h *Handler) productsHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requestedStore(w, r)
	if !ok {
		return
	}
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters := analytics.PerformanceFilters{
		ProductType: r.URL.Query().Get("product_type"),
		Vendor:      r.URL.Query().Get("vendor"),
	}
	writeJSON(w, http.StatusOK, h.analytics.ProductAnalytics(r.Context(), store, rng, filters))
}

func (h *Handler) customersHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requestedStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.analytics.CustomerAnalytics(r.Context(), store))
}

func (h *Handler) inventoryHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requestedStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.analytics.InventoryAnalytics(r.Context(), store))
}

func (h *Handler) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requestedStore(w, r)
	if !ok {
		return
	}
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.analytics.DashboardAnalytics(r.Context(), store, rng))
}

func (h *Handler) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requestedStore(w, r)
	if !ok {
		return
	}

	deleted := 0
	for _, entity := range allCacheEntities {
		deleted += h.cache.DeletePrefix(storePrefix(entity, store.ID))
	}
	log.WithFields(log.Fields{"shop": store.ShopDomain, "deleted": deleted}).Info("cache cleared")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// webhookHandler invalidates the cached entity matching the webhook topic so
// the next dashboard refresh refetches fresh data. The store is identified by
// the X-Shopify-Shop-Domain header Shopify sends with every webhook.
func (h *Handler) webhookHandler(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	shopDomain := r.Header.Get("X-Shopify-Shop-Domain")
	if shopDomain == "" {
		writeError(w, http.StatusBadRequest, "missing shop domain header")
		return
	}

	store, err := h.stores.FindByDomain(shopDomain)
	if err != nil {
		// Unknown shops are acknowledged anyway; Shopify retries failed
		// deliveries and an uninstalled store must not pile up retries.
		log.WithError(err).WithField("shop", shopDomain).Warn("webhook for unknown store")
		w.WriteHeader(http.StatusOK)
		return
	}

	deleted := 0
	for _, entity := range webhookEntities(topic) {
		deleted += h.cache.DeletePrefix(storePrefix(entity, store.ID))
	}
	for _, entity := range analyticsCacheEntities {
		deleted += h.cache.DeletePrefix(storePrefix(entity, store.ID))
	}

	log.WithFields(log.Fields{
		"shop":    store.ShopDomain,
		"topic":   topic,
		"deleted": deleted,
	}).Info("webhook invalidated cache")
	w.WriteHeader(http.StatusOK)
}

var analyticsCacheEntities = []string{
	"analytics_sales", "analytics_products", "analytics_customers",
	"analytics_inventory", "analytics_dashboard",
}

var allCacheEntities = append([]string{
	"orders", "order_history", "products", "customers", "inventory",
}, analyticsCacheEntities...)

func storePrefix(entity string, id uuid.UUID) string {
	return fmt.Sprintf("%s_%s", entity, id)
}

func webhookEntities(topic string) []string {
	switch {
	case hasTopicPrefix(topic, "orders"):
		return []string{"orders", "order_history"}
	case hasTopicPrefix(topic, "products"):
		return []string{"products"}
	case hasTopicPrefix(topic, "customers"):
		return []string{"customers"}
	case hasTopicPrefix(topic, "inventory_levels"):
		return []string{"inventory"}
	default:
		return nil
	}
}

func hasTopicPrefix(topic, entity string) bool {
	return topic == entity || (len(topic) > len(entity) && topic[:len(entity)+1] == entity+"/")
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestedStore(w http.ResponseWriter, r *http.Request) (model.Store, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid store id")
		return model.Store{}, false
	}

	store, err := h.stores.Find(id)
	if err != nil {
		if errors.Is(err, model.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store not found")
		} else {
			log.WithError(err).WithField("store_id", id).Error("store lookup failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return model.Store{}, false
	}
	if !store.IsActive {
		writeError(w, http.StatusConflict, "store connection is inactive")
		return model.Store{}, false
	}
	return *store, true
}

// parseDateRange reads optional start/end query params (YYYY-MM-DD). A missing
// range defaults to the trailing 30 days.
func parseDateRange(r *http.Request) (service.DateRange, error) {
	query := r.URL.Query()
	startParam := query.Get("start")
	endParam := query.Get("end")

	now := time.Now().UTC()
	rng := service.DateRange{
		Start: now.AddDate(0, 0, -29).Truncate(24 * time.Hour),
		End:   now,
	}

	if startParam != "" {
		start, err := time.Parse(dateLayout, startParam)
		if err != nil {
			return service.DateRange{}, errors.New("invalid start date, expected YYYY-MM-DD")
		}
		rng.Start = start
	}
	if endParam != "" {
		end, err := time.Parse(dateLayout, endParam)
		if err != nil {
			return service.DateRange{}, errors.New("invalid end date, expected YYYY-MM-DD")
		}
		// End is inclusive; cover the whole day.
		rng.End = end.AddDate(0, 0, 1).Add(-time.Second)
	}
	return rng, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
