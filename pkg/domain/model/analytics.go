package model

// Derived analytics shapes. The json vocabulary below is a de facto wire
// contract for the UI layer; field names and types must stay stable. Money is
// emitted as rounded float64 because consumers expect JSON numbers.

// Data-source tags distinguishing the live pipeline from the degraded
// fallback generator.
const (
	SourceShopify  = "shopify"
	SourceFallback = "fallback"
)

// Customer segments, mutually exclusive.
const (
	SegmentNew      = "new"
	SegmentLoyal    = "loyal"
	SegmentAtRisk   = "at_risk"
	SegmentInactive = "inactive"
	SegmentVIP      = "vip"
)

// Stock statuses.
const (
	StockOut = "out_of_stock"
	StockLow = "low_stock"
	StockIn  = "in_stock"
)

// ProductSales is one product's revenue bucket within a date range.
type ProductSales struct {
	ProductID  int64   `json:"product_id"`
	Title      string  `json:"title"`
	TotalSales float64 `json:"total_sales"`
	Quantity   int     `json:"quantity"`
	OrderCount int     `json:"order_count"`
}

// TimelinePoint is one daily bucket (date formatted YYYY-MM-DD).
type TimelinePoint struct {
	Date       string  `json:"date"`
	TotalSales float64 `json:"total_sales"`
	OrderCount int     `json:"order_count"`
}

// HourlyPoint is one of the 24 fixed hourly-today buckets.
type HourlyPoint struct {
	Hour       int     `json:"hour"`
	TotalSales float64 `json:"total_sales"`
	OrderCount int     `json:"order_count"`
}

// ProductPerformance is the product-level view over a date range. Products
// are sorted descending by revenue, the timeline ascending by date.
type ProductPerformance struct {
	Products      []ProductSales  `json:"products"`
	Timeline      []TimelinePoint `json:"timeline"`
	TotalSales    float64         `json:"total_sales"`
	TotalOrders   int             `json:"total_orders"`
	AvgOrderValue float64         `json:"avg_order_value"`
}

// ProductSummary classifies the catalog against recent orders. Low sellers
// only include active products with nonzero revenue; never-sold products are
// a different problem and are reported as a count.
type ProductSummary struct {
	TotalProducts  int            `json:"total_products"`
	ActiveProducts int            `json:"active_products"`
	NeverSoldCount int            `json:"never_sold_count"`
	TopProducts    []ProductSales `json:"top_products"`
	LowProducts    []ProductSales `json:"low_products"`
}

// InventoryItemStatus is one inventory item with availability summed across
// locations.
type InventoryItemStatus struct {
	InventoryItemID int64  `json:"inventory_item_id"`
	Available       int    `json:"available"`
	Status          string `json:"status"`
}

// InventoryStatus is the stock overview. Percentages are 0 when the store has
// no tracked items.
type InventoryStatus struct {
	TotalItems        int                   `json:"total_items"`
	InStock           int                   `json:"in_stock"`
	LowStock          int                   `json:"low_stock"`
	OutOfStock        int                   `json:"out_of_stock"`
	InStockPercent    float64               `json:"in_stock_percent"`
	LowStockPercent   float64               `json:"low_stock_percent"`
	OutOfStockPercent float64               `json:"out_of_stock_percent"`
	LowStockItems     []InventoryItemStatus `json:"low_stock_items"`
	OutOfStockItems   []InventoryItemStatus `json:"out_of_stock_items"`
}

// SegmentedCustomer is one classified customer. DaysSinceLastOrder is nil
// when the customer has no order in the supplied history.
type SegmentedCustomer struct {
	CustomerID         int64   `json:"customer_id"`
	Email              string  `json:"email,omitempty"`
	Segment            string  `json:"segment"`
	OrdersCount        int     `json:"orders_count"`
	TotalSpent         float64 `json:"total_spent"`
	DaysSinceLastOrder *int    `json:"days_since_last_order"`
}

// CustomerSegments is the segmentation view.
type CustomerSegments struct {
	TotalCustomers int                 `json:"total_customers"`
	Segments       map[string]int      `json:"segments"`
	Customers      []SegmentedCustomer `json:"customers"`
}

// SalesSummary is the sales timeline view: a dense daily series covering the
// whole range, a fixed 24-bucket hourly breakdown for today, and a growth
// rate comparing the second half of the period against the first.
type SalesSummary struct {
	TotalSales    float64         `json:"total_sales"`
	TotalOrders   int             `json:"total_orders"`
	AvgOrderValue float64         `json:"avg_order_value"`
	Timeline      []TimelinePoint `json:"timeline"`
	HourlyToday   []HourlyPoint   `json:"hourly_today"`
	GrowthRate    float64         `json:"growth_rate"`
}
