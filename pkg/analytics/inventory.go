package analytics

import (
	"sort"

	"shopdash/pkg/domain/model"
)

// DefaultLowStockThreshold is the available-units boundary below which an
// item counts as low stock.
const DefaultLowStockThreshold = 5

// InventoryStatus sums availability across locations per inventory item and
// classifies each: out_of_stock at or below zero, low_stock at or below the
// threshold, in_stock otherwise. Negative sums are treated as zero for
// classification only. Percentages are computed against the total item count
// and are 0 when there are no items.
func InventoryStatus(levels []model.InventoryLevel, lowStockThreshold int) model.InventoryStatus {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}

	result := model.InventoryStatus{
		LowStockItems:   []model.InventoryItemStatus{},
		OutOfStockItems: []model.InventoryItemStatus{},
	}

	totals := make(map[int64]int)
	for _, level := range levels {
		totals[level.InventoryItemID] += level.Available
	}

	items := make([]model.InventoryItemStatus, 0, len(totals))
	for itemID, available := range totals {
		effective := available
		if effective < 0 {
			effective = 0
		}
		status := model.StockIn
		switch {
		case effective == 0:
			status = model.StockOut
		case effective <= lowStockThreshold:
			status = model.StockLow
		}
		items = append(items, model.InventoryItemStatus{
			InventoryItemID: itemID,
			Available:       available,
			Status:          status,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Available != items[j].Available {
			return items[i].Available < items[j].Available
		}
		return items[i].InventoryItemID < items[j].InventoryItemID
	})

	result.TotalItems = len(items)
	for _, item := range items {
		switch item.Status {
		case model.StockOut:
			result.OutOfStock++
			result.OutOfStockItems = append(result.OutOfStockItems, item)
		case model.StockLow:
			result.LowStock++
			result.LowStockItems = append(result.LowStockItems, item)
		default:
			result.InStock++
		}
	}

	if result.TotalItems > 0 {
		total := float64(result.TotalItems)
		result.InStockPercent = percent(float64(result.InStock), total)
		result.LowStockPercent = percent(float64(result.LowStock), total)
		result.OutOfStockPercent = percent(float64(result.OutOfStock), total)
	}
	return result
}

func percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	// Two decimal places keeps the wire values stable across runs.
	return float64(int(part/total*10000+0.5)) / 100
}
