package services

import (
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/domain"
)

// DailySeriesInput describes the order stream to aggregate.
type DailySeriesInput struct {
	Orders   []domain.SimulatedOrder
	SKUs     []string
	Start    time.Time
	End      time.Time
	Holidays calendar.HolidaySet
}

// BuildDailySeries aggregates orders into one point per SKU per day between Start and End
// inclusive. Days without sales are zero-filled. Points are ordered by SKU (in input order) then date.
func BuildDailySeries(in DailySeriesInput) []domain.DailyPoint {
	start := calendar.Day(in.Start)
	end := calendar.Day(in.End)
	if end.Before(start) || len(in.SKUs) == 0 {
		return nil
	}

	type cell struct {
		units       int
		orders      int
		discountSum float64
	}
	type key struct {
		sku string
		day time.Time
	}
	cells := make(map[key]*cell)
	for _, order := range in.Orders {
		day := calendar.Day(order.CreatedAt)
		seen := make(map[string]bool, len(order.Lines))
		for _, line := range order.Lines {
			k := key{sku: line.SKU, day: day}
			c, ok := cells[k]
			if !ok {
				c = &cell{}
				cells[k] = c
			}
			c.units += line.Quantity
			if !seen[line.SKU] {
				seen[line.SKU] = true
				c.orders++
				c.discountSum += order.DiscountRatio
			}
		}
	}

	days := int(end.Sub(start).Hours()/24) + 1
	points := make([]domain.DailyPoint, 0, days*len(in.SKUs))
	for _, sku := range in.SKUs {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			point := domain.DailyPoint{
				Date:      day,
				SKU:       sku,
				IsWeekend: calendar.IsWeekend(day),
				DayOfWeek: calendar.DayOfWeek(day),
				IsHoliday: in.Holidays.Contains(day),
			}
			if c, ok := cells[key{sku: sku, day: day}]; ok {
				point.Units = c.units
				point.Orders = c.orders
				if c.orders > 0 {
					point.MeanDiscountRatio = c.discountSum / float64(c.orders)
				}
			}
			points = append(points, point)
		}
	}
	return points
}
