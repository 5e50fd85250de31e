package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"shopdash/pkg/domain/model"
)

// SalesTimeline aggregates surviving orders into a dense daily series over
// [start, end]: every date in the range gets a bucket even when no orders
// occurred. Also produces the fixed 24-bucket hourly breakdown for the day of
// now, and a growth rate comparing second-half against first-half revenue
// ((second-first)/first × 100, 0 when the first half is 0).
func SalesTimeline(orders []model.Order, start, end, now time.Time) model.SalesSummary {
	summary := model.SalesSummary{
		Timeline:    []model.TimelinePoint{},
		HourlyToday: make([]model.HourlyPoint, 24),
	}
	for hour := range summary.HourlyToday {
		summary.HourlyToday[hour].Hour = hour
	}

	start = truncateDay(start.UTC())
	end = truncateDay(end.UTC())
	if end.Before(start) {
		start, end = end, start
	}

	daySales := make(map[string]*dayBucket)
	hourSales := make([]decimal.Decimal, 24)
	today := truncateDay(now.UTC())
	totalSales := decimal.Zero

	for _, order := range orders {
		if !order.CountsTowardRevenue() {
			continue
		}

		createdAt := order.CreatedAt.UTC()
		day := createdAt.Format("2006-01-02")
		bucket, found := daySales[day]
		if !found {
			bucket = &dayBucket{}
			daySales[day] = bucket
		}
		bucket.sales = bucket.sales.Add(order.TotalPrice)
		bucket.orders++

		totalSales = totalSales.Add(order.TotalPrice)
		summary.TotalOrders++

		if truncateDay(createdAt).Equal(today) {
			hour := createdAt.Hour()
			hourSales[hour] = hourSales[hour].Add(order.TotalPrice)
			summary.HourlyToday[hour].OrderCount++
		}
	}

	firstHalf := decimal.Zero
	secondHalf := decimal.Zero
	totalDays := int(end.Sub(start).Hours()/24) + 1
	for i := 0; i < totalDays; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		point := model.TimelinePoint{Date: day}
		if bucket, found := daySales[day]; found {
			point.TotalSales = toMoney(bucket.sales)
			point.OrderCount = bucket.orders
			if i < totalDays/2 {
				firstHalf = firstHalf.Add(bucket.sales)
			} else {
				secondHalf = secondHalf.Add(bucket.sales)
			}
		}
		summary.Timeline = append(summary.Timeline, point)
	}

	for hour := range summary.HourlyToday {
		summary.HourlyToday[hour].TotalSales = toMoney(hourSales[hour])
	}

	summary.TotalSales = toMoney(totalSales)
	if summary.TotalOrders > 0 {
		summary.AvgOrderValue = toMoney(totalSales.Div(decimal.NewFromInt(int64(summary.TotalOrders))))
	}
	if firstHalf.GreaterThan(decimal.Zero) {
		growth := secondHalf.Sub(firstHalf).Div(firstHalf).Mul(decimal.NewFromInt(100))
		summary.GrowthRate = toMoney(growth)
	}
	return summary
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
