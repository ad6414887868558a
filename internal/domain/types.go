package domain

import (
	"time"
)

// TrendClass describes how a product's demand evolves over the simulated horizon.
type TrendClass string

const (
	// TrendStable keeps demand near its base level.
	TrendStable TrendClass = "stable"
	// TrendGrowing follows a logistic ramp centred on the middle of the horizon.
	TrendGrowing TrendClass = "growing"
	// TrendDeclining decays exponentially from an early peak.
	TrendDeclining TrendClass = "declining"
	// TrendVolatile oscillates with superposed cycles and jitter.
	TrendVolatile TrendClass = "volatile"
)

// TrendClasses lists every supported trend classification in a stable order.
var TrendClasses = []TrendClass{TrendStable, TrendGrowing, TrendDeclining, TrendVolatile}

// Valid reports whether the trend is one of the known classifications.
func (t TrendClass) Valid() bool {
	switch t {
	case TrendStable, TrendGrowing, TrendDeclining, TrendVolatile:
		return true
	default:
		return false
	}
}

// Product is an immutable catalog entry. Prices are stored in minor units (cents).
type Product struct {
	SKU         string
	Name        string
	UnitPrice   int64
	Vendor      string
	ProductType string
	Popularity  float64
	Trend       TrendClass
}

// FinancialStatus mirrors the storefront payment state of an order.
type FinancialStatus string

const (
	FinancialStatusPaid     FinancialStatus = "paid"
	FinancialStatusRefunded FinancialStatus = "refunded"
)

// OrderOrigin records which phase of the run created an order.
type OrderOrigin string

const (
	// OriginSimulated marks orders produced by the day-by-day simulation.
	OriginSimulated OrderOrigin = "simulated"
	// OriginCorrective marks orders injected to satisfy per-SKU floors.
	OriginCorrective OrderOrigin = "corrective"
)

// Address is a postal address attached to an order.
type Address struct {
	Street   string
	City     string
	Province string
	Zip      string
	Country  string
}

// Customer carries optional contact details. Anonymous orders leave the contact fields empty.
type Customer struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address Address
}

// Anonymous reports whether the order was placed without contact details.
func (c Customer) Anonymous() bool {
	return c.Name == "" && c.Email == ""
}

// LineItem is one product line inside an order. UnitPrice is copied from the catalog at sale time.
type LineItem struct {
	SKU         string
	Name        string
	Vendor      string
	ProductType string
	UnitPrice   int64
	Quantity    int
	Grams       int
	// Discount is this line's share of the order-level discount, in minor units.
	Discount int64
	// Stockout is true when the quantity draw would have been zero before the floor at one unit.
	Stockout bool
}

// Subtotal returns price × quantity in minor units.
func (l LineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// SimulatedOrder groups line items sharing one identifier, timestamp, customer and discount.
// Monetary fields are minor units.
type SimulatedOrder struct {
	ID               int64
	Name             string
	CreatedAt        time.Time
	FulfilledAt      time.Time
	Customer         Customer
	Lines            []LineItem
	Currency         string
	Subtotal         int64
	DiscountRatio    float64
	DiscountCode     string
	DiscountAmount   int64
	Shipping         int64
	Taxes            int64
	Total            int64
	FinancialStatus  FinancialStatus
	ShippingMethod   string
	PaymentReference string
	AcceptsMarketing bool
	IsWeekend        bool
	IsHoliday        bool
	Origin           OrderOrigin
}

// Stockout reports whether any line would have been a stock-out.
func (o SimulatedOrder) Stockout() bool {
	for _, line := range o.Lines {
		if line.Stockout {
			return true
		}
	}
	return false
}

// Units returns the total quantity across all lines.
func (o SimulatedOrder) Units() int {
	total := 0
	for _, line := range o.Lines {
		total += line.Quantity
	}
	return total
}

// Refunded reports whether the order was marked as refunded after generation.
func (o SimulatedOrder) Refunded() bool {
	return o.FinancialStatus == FinancialStatusRefunded
}

// DailyPoint is one per-SKU, per-day observation of the training series.
type DailyPoint struct {
	Date              time.Time
	SKU               string
	Units             int
	Orders            int
	IsWeekend         bool
	DayOfWeek         int
	IsHoliday         bool
	MeanDiscountRatio float64
}
