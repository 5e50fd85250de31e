package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Financial statuses after normalization. Both API schemes are lowered to
// this vocabulary by pkg/normalize.
const (
	FinancialPending           = "pending"
	FinancialAuthorized        = "authorized"
	FinancialPaid              = "paid"
	FinancialPartiallyPaid     = "partially_paid"
	FinancialPartiallyRefunded = "partially_refunded"
	FinancialRefunded          = "refunded"
	FinancialVoided            = "voided"
)

// Product statuses.
const (
	ProductActive   = "active"
	ProductDraft    = "draft"
	ProductArchived = "archived"
)

// Order is the canonical, provider-agnostic order record. An order with a
// non-nil CancelledAt or a refunded financial status is excluded from revenue
// aggregates but still counted in raw fetch totals.
type Order struct {
	ID              int64           `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	SubtotalPrice   decimal.Decimal `json:"subtotal_price"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	FinancialStatus string          `json:"financial_status"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CustomerID      int64           `json:"customer_id"`
	LineItems       []LineItem      `json:"line_items"`
}

// CountsTowardRevenue reports whether the order participates in revenue
// aggregates.
func (o Order) CountsTowardRevenue() bool {
	return o.CancelledAt == nil && o.FinancialStatus != FinancialRefunded
}

// LineItem references its product and variant by id only; the product may no
// longer exist upstream.
type LineItem struct {
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id"`
	Title       string          `json:"title"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Vendor      string          `json:"vendor"`
	ProductType string          `json:"product_type"`
}

// Total returns price × quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Status      string    `json:"status"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
}

type Variant struct {
	ID                int64            `json:"id"`
	SKU               string           `json:"sku"`
	Price             decimal.Decimal  `json:"price"`
	InventoryQuantity int              `json:"inventory_quantity"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price,omitempty"`
}

type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

type Customer struct {
	ID               int64           `json:"id"`
	Email            string          `json:"email,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	OrdersCount      int             `json:"orders_count"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	Tags             []string        `json:"tags"`
	AcceptsMarketing bool            `json:"accepts_marketing"`
}

// InventoryLevel is one item×location availability snapshot. Available may be
// negative per Shopify semantics; it is clamped to zero only for stock-status
// classification.
type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}
