package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/catalog"
	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	defaultLineGrams = 500
	firstOrderHour   = 8
	lastOrderHour    = 22
)

var (
	lineCountValues  = []int{1, 2, 3, 4}
	lineCountWeights = []float64{60, 25, 10, 5}
	shippingMethods  = []string{"Standard", "Express"}
)

// StoreLocation is the fixed storefront offset used for order timestamps.
var StoreLocation = time.FixedZone("-0400", -4*60*60)

// SynthesisStats counts notable events while synthesising orders.
type SynthesisStats struct {
	Orders            int
	LineItems         int
	Units             int
	Stockouts         int
	SamplingFallbacks int
	CappedLineCounts  int
}

// OrderSynthesizerDeps bundles collaborators for NewOrderSynthesizer.
type OrderSynthesizerDeps struct {
	Catalog           *catalog.Catalog
	Horizon           catalog.Horizon
	Holidays          calendar.HolidaySet
	Discounts         *DiscountModel
	Quantities        QuantityModel
	Pricer            *OrderPricer
	Customers         *CustomerPool
	PopularityWeights bool
	Location          *time.Location
	Logger            func(context.Context, string, map[string]any)
}

// OrderSynthesizer draws complete orders for a simulated day.
type OrderSynthesizer struct {
	catalog           *catalog.Catalog
	horizon           catalog.Horizon
	holidays          calendar.HolidaySet
	discounts         *DiscountModel
	quantities        QuantityModel
	pricer            *OrderPricer
	customers         *CustomerPool
	popularityWeights bool
	location          *time.Location
	logger            func(context.Context, string, map[string]any)
	stats             SynthesisStats
}

// NewOrderSynthesizer validates deps and returns a synthesizer.
func NewOrderSynthesizer(deps OrderSynthesizerDeps) (*OrderSynthesizer, error) {
	if deps.Catalog == nil || deps.Catalog.Len() == 0 {
		return nil, errors.New("order synthesizer: catalog is required")
	}
	if deps.Discounts == nil {
		return nil, errors.New("order synthesizer: discount model is required")
	}
	pricer := deps.Pricer
	if pricer == nil {
		var err error
		pricer, err = NewOrderPricer(OrderPricerDeps{Logger: deps.Logger})
		if err != nil {
			return nil, err
		}
	}
	customers := deps.Customers
	if customers == nil {
		customers = NewDefaultCustomerPool()
	}
	location := deps.Location
	if location == nil {
		location = StoreLocation
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &OrderSynthesizer{
		catalog:           deps.Catalog,
		horizon:           deps.Horizon,
		holidays:          deps.Holidays,
		discounts:         deps.Discounts,
		quantities:        deps.Quantities,
		pricer:            pricer,
		customers:         customers,
		popularityWeights: deps.PopularityWeights,
		location:          location,
		logger:            logger,
	}, nil
}

// Stats returns the counters accumulated so far.
func (s *OrderSynthesizer) Stats() SynthesisStats {
	return s.stats
}

// Quantities exposes the quantity model.
func (s *OrderSynthesizer) Quantities() QuantityModel {
	return s.quantities
}

// Synthesize draws one order for date: a 1–4 line count, popularity-weighted products without
// replacement, per-line quantities, then order-level discount, pricing, customer and timestamp.
func (s *OrderSynthesizer) Synthesize(ctx context.Context, rng *rand.Rand, state *SimulationState, date time.Time) (domain.SimulatedOrder, error) {
	idx, err := weightedIndex(rng, lineCountWeights)
	if err != nil {
		idx = 0
	}
	count := lineCountValues[idx]
	if count > s.catalog.Len() {
		s.stats.CappedLineCounts++
		s.logger(ctx, "sampling_line_count_capped", map[string]any{
			"requested": count,
			"catalog":   s.catalog.Len(),
			"error":     ErrSamplingExhausted.Error(),
		})
		count = s.catalog.Len()
	}

	products := s.selectProducts(ctx, rng, date, count)
	lines := make([]domain.LineItem, 0, len(products))
	for _, product := range products {
		draw := s.quantities.Draw(rng, product, date)
		if draw.Stockout {
			s.stats.Stockouts++
		}
		lines = append(lines, newLineItem(product, draw.Quantity, draw.Stockout))
	}

	method := shippingMethods[rng.Intn(len(shippingMethods))]
	return s.assemble(ctx, rng, state, date, lines, method, domain.OriginSimulated)
}

// SynthesizeFocused builds a single-line order for product with a fixed quantity, priced exactly
// like a simulated order.
func (s *OrderSynthesizer) SynthesizeFocused(ctx context.Context, rng *rand.Rand, state *SimulationState, product domain.Product, date time.Time, quantity int) (domain.SimulatedOrder, error) {
	if quantity < 1 {
		return domain.SimulatedOrder{}, fmt.Errorf("%w: focused order quantity %d", ErrOrderPricingInvalidInput, quantity)
	}
	lines := []domain.LineItem{newLineItem(product, quantity, false)}
	return s.assemble(ctx, rng, state, date, lines, "Standard", domain.OriginCorrective)
}

func (s *OrderSynthesizer) selectProducts(ctx context.Context, rng *rand.Rand, date time.Time, count int) []domain.Product {
	n := s.catalog.Len()
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		if s.popularityWeights {
			weights[i] = catalog.EffectivePopularity(rng, s.catalog.At(i), date, s.horizon)
		} else {
			weights[i] = 1
		}
	}
	picked, fallbacks := sampleWithoutReplacement(rng, weights, count)
	if fallbacks > 0 {
		s.stats.SamplingFallbacks += fallbacks
		s.logger(ctx, "sampling_uniform_fallback", map[string]any{
			"date":      date.Format("2006-01-02"),
			"fallbacks": fallbacks,
			"error":     ErrSamplingExhausted.Error(),
		})
	}
	products := make([]domain.Product, len(picked))
	for i, idx := range picked {
		products[i] = s.catalog.At(idx)
	}
	return products
}

func (s *OrderSynthesizer) assemble(ctx context.Context, rng *rand.Rand, state *SimulationState, date time.Time, lines []domain.LineItem, method string, origin domain.OrderOrigin) (domain.SimulatedOrder, error) {
	var subtotal int64
	units := 0
	for _, line := range lines {
		subtotal += line.Subtotal()
		units += line.Quantity
	}

	day := calendar.Day(date)
	isHoliday := s.holidays.Contains(day)
	ratio := s.discounts.SampleRatio(rng, DiscountContext{
		Date:      day,
		Subtotal:  subtotal,
		Quantity:  units,
		IsHoliday: isHoliday,
	})
	code := s.discounts.Code(rng, day, ratio, isHoliday)

	customer := s.customers.Draw(rng)
	pricing, err := s.pricer.Price(ctx, PriceOrderCommand{
		Currency:      domain.DefaultCurrency,
		Lines:         lines,
		DiscountRatio: ratio,
		ServiceLevel:  method,
		Country:       customer.Address.Country,
	})
	if err != nil {
		return domain.SimulatedOrder{}, err
	}

	for i := range lines {
		lines[i].Discount = pricing.LineDiscounts[i]
	}

	hour := randIntInclusive(rng, firstOrderHour, lastOrderHour)
	minute := rng.Intn(60)
	y, m, d := day.Date()
	createdAt := time.Date(y, m, d, hour, minute, 0, 0, s.location)
	fulfilledAt := createdAt.Add(time.Duration(randIntInclusive(rng, 1, 24)) * time.Hour)
	acceptsMarketing := rng.Intn(2) == 0
	reference := PaymentReference(rng)

	id, err := state.Orders.Next()
	if err != nil {
		return domain.SimulatedOrder{}, err
	}
	for _, line := range lines {
		state.RecordQuantity(line.SKU, line.Quantity)
	}

	s.stats.Orders++
	s.stats.LineItems += len(lines)
	s.stats.Units += units

	return domain.SimulatedOrder{
		ID:               id,
		Name:             FormatOrderName(id),
		CreatedAt:        createdAt,
		FulfilledAt:      fulfilledAt,
		Customer:         customer,
		Lines:            lines,
		Currency:         domain.DefaultCurrency,
		Subtotal:         pricing.Subtotal,
		DiscountRatio:    ratio,
		DiscountCode:     code,
		DiscountAmount:   pricing.DiscountAmount,
		Shipping:         pricing.Shipping,
		Taxes:            pricing.Taxes,
		Total:            pricing.Total,
		FinancialStatus:  domain.FinancialStatusPaid,
		ShippingMethod:   pricing.ShippingLevel,
		PaymentReference: reference,
		AcceptsMarketing: acceptsMarketing,
		IsWeekend:        calendar.IsWeekend(day),
		IsHoliday:        isHoliday,
		Origin:           origin,
	}, nil
}

func newLineItem(product domain.Product, quantity int, stockout bool) domain.LineItem {
	return domain.LineItem{
		SKU:         product.SKU,
		Name:        product.Name,
		Vendor:      product.Vendor,
		ProductType: product.ProductType,
		UnitPrice:   product.UnitPrice,
		Quantity:    quantity,
		Grams:       defaultLineGrams,
		Stockout:    stockout,
	}
}
