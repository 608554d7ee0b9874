package orders

import (
	"time"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// DailyRevenue is one weekday bucket of the weekly revenue chart.
type DailyRevenue struct {
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Revenue     int64  `json:"revenue"`
	PlatformFee int64  `json:"platform_fee"`
	Orders      int    `json:"orders"`
}

// RevenueSummary totals money flows across all non-cancelled orders.
type RevenueSummary struct {
	Orders              int   `json:"orders"`
	Revenue             int64 `json:"revenue"`
	PlatformFee         int64 `json:"platform_fee"`
	PhotographerEarning int64 `json:"photographer_earning"`
}

// Stats is the dashboard payload.
type Stats struct {
	Week    []DailyRevenue `json:"week"`
	Summary RevenueSummary `json:"summary"`
}

// WeekStart returns Monday 00:00 of the week containing now, in now's location.
func WeekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
}

// WeeklyRevenue buckets non-cancelled orders created this week by weekday,
// Monday first. Orders outside the week are ignored.
func WeeklyRevenue(rows []models.Order, now time.Time) []DailyRevenue {
	start := WeekStart(now)
	end := start.AddDate(0, 0, 7)

	week := make([]DailyRevenue, 7)
	for i := range week {
		day := start.AddDate(0, 0, i)
		week[i] = DailyRevenue{Date: day.Format(dateLayout), Weekday: day.Weekday().String()}
	}
	for i := range rows {
		order := &rows[i]
		if order.Status == enums.OrderStatusCancelled {
			continue
		}
		created := order.CreatedAt.In(now.Location())
		if created.Before(start) || !created.Before(end) {
			continue
		}
		idx := (int(created.Weekday()) + 6) % 7
		breakdown := FeeForOrder(order)
		week[idx].Revenue += breakdown.AmountPaid
		week[idx].PlatformFee += feeOf(order, breakdown)
		week[idx].Orders++
	}
	return week
}

// Summary totals revenue, platform fee and photographer earning.
func Summary(rows []models.Order) RevenueSummary {
	var out RevenueSummary
	for i := range rows {
		order := &rows[i]
		if order.Status == enums.OrderStatusCancelled {
			continue
		}
		breakdown := FeeForOrder(order)
		out.Orders++
		out.Revenue += breakdown.AmountPaid
		out.PlatformFee += feeOf(order, breakdown)
		if order.Status == enums.OrderStatusCompleted {
			out.PhotographerEarning += EarningOf(order)
		} else {
			out.PhotographerEarning += breakdown.PhotographerEarning
		}
	}
	return out
}

func feeOf(order *models.Order, breakdown FeeBreakdown) int64 {
	if order.Status == enums.OrderStatusCompleted {
		return order.PlatformFeeAmount
	}
	return breakdown.PlatformFeeAmount
}
