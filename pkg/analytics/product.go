// Package analytics holds the transformation engine: pure, stateless
// functions turning normalized entity collections into derived analytics.
// Every function returns a well-formed zero-value shape on empty input, so
// consumers never need null-checks beyond recognizing the empty case.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"shopdash/pkg/domain/model"
)

// PerformanceFilters optionally narrow product performance to one product
// type and/or vendor, matched against line items.
type PerformanceFilters struct {
	ProductType string `json:"product_type,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
}

func (f PerformanceFilters) empty() bool {
	return f.ProductType == "" && f.Vendor == ""
}

func (f PerformanceFilters) matches(li model.LineItem) bool {
	if f.ProductType != "" && li.ProductType != f.ProductType {
		return false
	}
	if f.Vendor != "" && li.Vendor != f.Vendor {
		return false
	}
	return true
}

type productBucket struct {
	title      string
	revenue    decimal.Decimal
	quantity   int
	orderCount int
}

// ProductPerformance buckets surviving orders' line items by product.
// Cancelled and refunded orders are excluded from every figure. Without
// filters, totals and the timeline are built from order totals; with filters
// they come from the matching line items only, since an order total would
// include unrelated products. Products are sorted descending by revenue, the
// timeline ascending by date.
func ProductPerformance(orders []model.Order, filters PerformanceFilters) model.ProductPerformance {
	result := model.ProductPerformance{
		Products: []model.ProductSales{},
		Timeline: []model.TimelinePoint{},
	}

	buckets := make(map[int64]*productBucket)
	days := make(map[string]*dayBucket)
	totalSales := decimal.Zero
	totalOrders := 0

	for _, order := range orders {
		if !order.CountsTowardRevenue() {
			continue
		}

		orderContribution := decimal.Zero
		matched := false
		for _, li := range order.LineItems {
			if !filters.matches(li) {
				continue
			}
			matched = true
			lineTotal := li.Total()
			orderContribution = orderContribution.Add(lineTotal)

			bucket, found := buckets[li.ProductID]
			if !found {
				bucket = &productBucket{title: li.Title}
				buckets[li.ProductID] = bucket
			}
			bucket.revenue = bucket.revenue.Add(lineTotal)
			bucket.quantity += li.Quantity
			bucket.orderCount++
		}
		if !matched && !filters.empty() {
			continue
		}

		if filters.empty() {
			orderContribution = order.TotalPrice
		}
		totalSales = totalSales.Add(orderContribution)
		totalOrders++

		day := order.CreatedAt.UTC().Format("2006-01-02")
		bucket, found := days[day]
		if !found {
			bucket = &dayBucket{}
			days[day] = bucket
		}
		bucket.sales = bucket.sales.Add(orderContribution)
		bucket.orders++
	}

	for productID, bucket := range buckets {
		result.Products = append(result.Products, model.ProductSales{
			ProductID:  productID,
			Title:      bucket.title,
			TotalSales: toMoney(bucket.revenue),
			Quantity:   bucket.quantity,
			OrderCount: bucket.orderCount,
		})
	}
	sort.Slice(result.Products, func(i, j int) bool {
		if result.Products[i].TotalSales != result.Products[j].TotalSales {
			return result.Products[i].TotalSales > result.Products[j].TotalSales
		}
		return result.Products[i].ProductID < result.Products[j].ProductID
	})

	result.Timeline = sortedTimeline(days)
	result.TotalSales = toMoney(totalSales)
	result.TotalOrders = totalOrders
	if totalOrders > 0 {
		result.AvgOrderValue = toMoney(totalSales.Div(decimal.NewFromInt(int64(totalOrders))))
	}
	return result
}

const rankSize = 5

// ProductSummary crosses the catalog with orders in range: a product is
// active when at least one surviving order references it. Low sellers are the
// bottom five among active products with nonzero revenue; products that never
// sold are a different problem and only surface as a count.
func ProductSummary(products []model.Product, orders []model.Order) model.ProductSummary {
	summary := model.ProductSummary{
		TopProducts: []model.ProductSales{},
		LowProducts: []model.ProductSales{},
	}
	summary.TotalProducts = len(products)

	revenue := make(map[int64]*productBucket)
	for _, order := range orders {
		if !order.CountsTowardRevenue() {
			continue
		}
		for _, li := range order.LineItems {
			bucket, found := revenue[li.ProductID]
			if !found {
				bucket = &productBucket{}
				revenue[li.ProductID] = bucket
			}
			bucket.revenue = bucket.revenue.Add(li.Total())
			bucket.quantity += li.Quantity
			bucket.orderCount++
		}
	}

	sold := make([]model.ProductSales, 0, len(products))
	for _, product := range products {
		bucket, found := revenue[product.ID]
		if !found {
			summary.NeverSoldCount++
			continue
		}
		summary.ActiveProducts++
		sold = append(sold, model.ProductSales{
			ProductID:  product.ID,
			Title:      product.Title,
			TotalSales: toMoney(bucket.revenue),
			Quantity:   bucket.quantity,
			OrderCount: bucket.orderCount,
		})
	}

	sort.Slice(sold, func(i, j int) bool {
		if sold[i].TotalSales != sold[j].TotalSales {
			return sold[i].TotalSales > sold[j].TotalSales
		}
		return sold[i].ProductID < sold[j].ProductID
	})

	for i := 0; i < len(sold) && i < rankSize; i++ {
		summary.TopProducts = append(summary.TopProducts, sold[i])
	}

	// Ascending by revenue, zero-revenue actives excluded.
	low := make([]model.ProductSales, 0, len(sold))
	for _, p := range sold {
		if p.TotalSales > 0 {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if low[i].TotalSales != low[j].TotalSales {
			return low[i].TotalSales < low[j].TotalSales
		}
		return low[i].ProductID < low[j].ProductID
	})
	for i := 0; i < len(low) && i < rankSize; i++ {
		summary.LowProducts = append(summary.LowProducts, low[i])
	}

	return summary
}

type dayBucket struct {
	sales  decimal.Decimal
	orders int
}

func sortedTimeline(days map[string]*dayBucket) []model.TimelinePoint {
	timeline := make([]model.TimelinePoint, 0, len(days))
	for day, bucket := range days {
		timeline = append(timeline, model.TimelinePoint{
			Date:       day,
			TotalSales: toMoney(bucket.sales),
			OrderCount: bucket.orders,
		})
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Date < timeline[j].Date })
	return timeline
}

// toMoney converts an internal decimal to the rounded float64 the wire
// contract expects.
func toMoney(value decimal.Decimal) float64 {
	return value.Round(2).InexactFloat64()
}
