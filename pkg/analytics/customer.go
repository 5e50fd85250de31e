package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopdash/pkg/domain/model"
)

const (
	newCustomerWindow = 30 * 24 * time.Hour
	loyalOrderCount   = 3
	loyalRecencyDays  = 60
	atRiskMaxDays     = 120
)

// vipSpendFloor reclassifies any customer at or above this lifetime spend,
// regardless of the precedence chain.
var vipSpendFloor = decimal.NewFromInt(500)

// Segments classifies each customer into exactly one segment. history is the
// customer order set recency is computed from; it must be the full unbounded
// order history, not the dashboard's bounded range, or loyal customers would
// surface as inactive on narrow ranges. Precedence, first match wins:
// new → loyal → at_risk → inactive, then the VIP spend override on top.
func Segments(customers []model.Customer, history []model.Order, now time.Time) model.CustomerSegments {
	result := model.CustomerSegments{
		TotalCustomers: len(customers),
		Segments: map[string]int{
			model.SegmentNew:      0,
			model.SegmentLoyal:    0,
			model.SegmentAtRisk:   0,
			model.SegmentInactive: 0,
			model.SegmentVIP:      0,
		},
		Customers: []model.SegmentedCustomer{},
	}

	lastOrderAt := make(map[int64]time.Time)
	for _, order := range history {
		if order.CustomerID == 0 {
			continue
		}
		if current, found := lastOrderAt[order.CustomerID]; !found || order.CreatedAt.After(current) {
			lastOrderAt[order.CustomerID] = order.CreatedAt
		}
	}

	for _, customer := range customers {
		var daysSince *int
		if last, found := lastOrderAt[customer.ID]; found {
			days := int(now.Sub(last).Hours() / 24)
			daysSince = &days
		}

		segment := classify(customer, daysSince, now)
		result.Segments[segment]++
		result.Customers = append(result.Customers, model.SegmentedCustomer{
			CustomerID:         customer.ID,
			Email:              customer.Email,
			Segment:            segment,
			OrdersCount:        customer.OrdersCount,
			TotalSpent:         toMoney(customer.TotalSpent),
			DaysSinceLastOrder: daysSince,
		})
	}

	sort.Slice(result.Customers, func(i, j int) bool {
		return result.Customers[i].CustomerID < result.Customers[j].CustomerID
	})
	return result
}

func classify(customer model.Customer, daysSince *int, now time.Time) string {
	if customer.TotalSpent.GreaterThanOrEqual(vipSpendFloor) {
		return model.SegmentVIP
	}

	switch {
	case now.Sub(customer.CreatedAt) <= newCustomerWindow:
		return model.SegmentNew
	case customer.OrdersCount >= loyalOrderCount && daysSince != nil && *daysSince <= loyalRecencyDays:
		return model.SegmentLoyal
	case customer.OrdersCount >= 1 && daysSince != nil && *daysSince >= loyalRecencyDays && *daysSince <= atRiskMaxDays:
		return model.SegmentAtRisk
	default:
		// Last order beyond the at-risk window, or never ordered. A customer
		// with no order in the supplied history lands here as well.
		return model.SegmentInactive
	}
}
