package service

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"shopdash/pkg/domain/model"
)

// Deterministic placeholder analytics served when the real pipeline fails.
// Values are seeded from the store identity so repeated failures render a
// stable dashboard, and they are never real store data.

func mockSeed(store model.Store, salt string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(store.ID.String() + "|" + salt))
	return int64(h.Sum64())
}

func mockSalesSummary(store model.Store, rng DateRange, now time.Time) model.SalesSummary {
	start, end := rng.Start, rng.End
	if start.IsZero() || end.IsZero() {
		end = now
		start = now.AddDate(0, 0, -29)
	}
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		start, end = end, start
	}

	rnd := rand.New(rand.NewSource(mockSeed(store, "sales")))
	summary := model.SalesSummary{
		Timeline:    []model.TimelinePoint{},
		HourlyToday: make([]model.HourlyPoint, 24),
	}

	days := int(end.Sub(start).Hours()/24) + 1
	total := 0.0
	for i := 0; i < days; i++ {
		sales := float64(rnd.Intn(180000)) / 100
		orders := rnd.Intn(25)
		total += sales
		summary.TotalOrders += orders
		summary.Timeline = append(summary.Timeline, model.TimelinePoint{
			Date:       start.AddDate(0, 0, i).Format("2006-01-02"),
			TotalSales: sales,
			OrderCount: orders,
		})
	}
	for hour := range summary.HourlyToday {
		summary.HourlyToday[hour] = model.HourlyPoint{
			Hour:       hour,
			TotalSales: float64(rnd.Intn(9000)) / 100,
			OrderCount: rnd.Intn(4),
		}
	}

	summary.TotalSales = total
	if summary.TotalOrders > 0 {
		summary.AvgOrderValue = total / float64(summary.TotalOrders)
	}
	summary.GrowthRate = float64(rnd.Intn(4000)-1000) / 100
	return summary
}

func mockProductReport(store model.Store, rng DateRange) ProductReport {
	rnd := rand.New(rand.NewSource(mockSeed(store, "products")))

	performance := model.ProductPerformance{
		Products: []model.ProductSales{},
		Timeline: []model.TimelinePoint{},
	}
	summary := model.ProductSummary{
		TopProducts: []model.ProductSales{},
		LowProducts: []model.ProductSales{},
	}

	count := 5 + rnd.Intn(5)
	for i := 0; i < count; i++ {
		sales := model.ProductSales{
			ProductID:  int64(1000 + i),
			Title:      fmt.Sprintf("Sample Product %d", i+1),
			TotalSales: float64(rnd.Intn(50000)) / 100,
			Quantity:   rnd.Intn(120),
			OrderCount: rnd.Intn(40),
		}
		performance.Products = append(performance.Products, sales)
		performance.TotalSales += sales.TotalSales
	}
	// Keep the ordering contract of the real transform.
	for i := 0; i < len(performance.Products); i++ {
		for j := i + 1; j < len(performance.Products); j++ {
			if performance.Products[j].TotalSales > performance.Products[i].TotalSales {
				performance.Products[i], performance.Products[j] = performance.Products[j], performance.Products[i]
			}
		}
	}
	performance.TotalOrders = 10 + rnd.Intn(90)
	performance.AvgOrderValue = performance.TotalSales / float64(performance.TotalOrders)

	summary.TotalProducts = count + rnd.Intn(10)
	summary.ActiveProducts = count
	summary.NeverSoldCount = summary.TotalProducts - summary.ActiveProducts
	top := len(performance.Products)
	if top > 5 {
		top = 5
	}
	summary.TopProducts = append(summary.TopProducts, performance.Products[:top]...)
	for i := len(performance.Products) - 1; i >= 0 && len(summary.LowProducts) < 5; i-- {
		if performance.Products[i].TotalSales > 0 {
			summary.LowProducts = append(summary.LowProducts, performance.Products[i])
		}
	}

	return ProductReport{
		DataSource:  model.SourceFallback,
		Performance: performance,
		Summary:     summary,
	}
}

func mockCustomerSegments(store model.Store, now time.Time) model.CustomerSegments {
	rnd := rand.New(rand.NewSource(mockSeed(store, "customers")))

	segments := model.CustomerSegments{
		Segments: map[string]int{
			model.SegmentNew:      rnd.Intn(12),
			model.SegmentLoyal:    rnd.Intn(20),
			model.SegmentAtRisk:   rnd.Intn(8),
			model.SegmentInactive: rnd.Intn(30),
			model.SegmentVIP:      rnd.Intn(5),
		},
		Customers: []model.SegmentedCustomer{},
	}
	for _, count := range segments.Segments {
		segments.TotalCustomers += count
	}
	return segments
}

func mockInventoryStatus(store model.Store) model.InventoryStatus {
	rnd := rand.New(rand.NewSource(mockSeed(store, "inventory")))

	status := model.InventoryStatus{
		LowStockItems:   []model.InventoryItemStatus{},
		OutOfStockItems: []model.InventoryItemStatus{},
	}
	status.InStock = 20 + rnd.Intn(60)
	status.LowStock = rnd.Intn(10)
	status.OutOfStock = rnd.Intn(6)
	status.TotalItems = status.InStock + status.LowStock + status.OutOfStock

	total := float64(status.TotalItems)
	status.InStockPercent = float64(int(float64(status.InStock)/total*10000+0.5)) / 100
	status.LowStockPercent = float64(int(float64(status.LowStock)/total*10000+0.5)) / 100
	status.OutOfStockPercent = float64(int(float64(status.OutOfStock)/total*10000+0.5)) / 100

	for i := 0; i < status.LowStock; i++ {
		status.LowStockItems = append(status.LowStockItems, model.InventoryItemStatus{
			InventoryItemID: int64(9000 + i),
			Available:       1 + rnd.Intn(4),
			Status:          model.StockLow,
		})
	}
	for i := 0; i < status.OutOfStock; i++ {
		status.OutOfStockItems = append(status.OutOfStockItems, model.InventoryItemStatus{
			InventoryItemID: int64(9500 + i),
			Available:       0,
			Status:          model.StockOut,
		})
	}
	return status
}
