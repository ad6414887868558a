package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	// DefaultTaxRate is the flat sales tax applied to the discounted subtotal.
	DefaultTaxRate = 0.08
	// DefaultFreeShippingAbove is the discounted subtotal (cents) above which shipping is free.
	DefaultFreeShippingAbove int64 = 5000
	// DefaultShippingFee is the flat fallback shipping fee in cents.
	DefaultShippingFee int64 = 599
)

var (
	// ErrOrderPricingInvalidInput signals malformed pricing input such as an empty order or out-of-range ratio.
	ErrOrderPricingInvalidInput = errors.New("order pricing: invalid input")
)

// TaxCalculator quotes tax on a discounted subtotal.
type TaxCalculator interface {
	CalculateTax(ctx context.Context, req TaxCalculationRequest) (TaxQuote, error)
}

// TaxCalculationRequest carries the amounts the tax calculator needs.
type TaxCalculationRequest struct {
	Currency           string
	DiscountedSubtotal int64
	Country            string
}

// TaxQuote is the tax calculator's answer.
type TaxQuote struct {
	Name   string
	Rate   float64
	Amount int64
}

// ShippingEstimator quotes shipping for a discounted subtotal.
type ShippingEstimator interface {
	EstimateShipping(ctx context.Context, req ShippingEstimateRequest) (ShippingQuote, error)
}

// ShippingEstimateRequest carries the amounts the shipping estimator needs.
type ShippingEstimateRequest struct {
	Currency           string
	DiscountedSubtotal int64
	ServiceLevel       string
	Country            string
}

// ShippingQuote is the shipping estimator's answer.
type ShippingQuote struct {
	ServiceLevel string
	Amount       int64
}

// FlatRateTax charges Rate on the discounted subtotal.
type FlatRateTax struct {
	Rate float64
}

// CalculateTax implements TaxCalculator.
func (f FlatRateTax) CalculateTax(_ context.Context, req TaxCalculationRequest) (TaxQuote, error) {
	if req.DiscountedSubtotal < 0 {
		return TaxQuote{}, fmt.Errorf("%w: negative taxable amount", ErrOrderPricingInvalidInput)
	}
	return TaxQuote{
		Name:   "Sales Tax",
		Rate:   f.Rate,
		Amount: domain.RoundMinor(float64(req.DiscountedSubtotal) * f.Rate),
	}, nil
}

// ThresholdShipping is free strictly above FreeAbove and FlatFee otherwise.
type ThresholdShipping struct {
	FreeAbove int64
	FlatFee   int64
}

// EstimateShipping implements ShippingEstimator.
func (s ThresholdShipping) EstimateShipping(_ context.Context, req ShippingEstimateRequest) (ShippingQuote, error) {
	level := req.ServiceLevel
	if level == "" {
		level = "Standard"
	}
	if req.DiscountedSubtotal > s.FreeAbove {
		return ShippingQuote{ServiceLevel: level, Amount: 0}, nil
	}
	return ShippingQuote{ServiceLevel: level, Amount: s.FlatFee}, nil
}

// OrderPricer derives subtotal, discount, shipping, taxes and total for one order.
type OrderPricer struct {
	tax      TaxCalculator
	shipping ShippingEstimator
	logger   func(context.Context, string, map[string]any)
}

// OrderPricerDeps bundles the pricing collaborators. Nil collaborators fall back to the
// flat 8% tax and the $50 free-shipping threshold.
type OrderPricerDeps struct {
	Tax      TaxCalculator
	Shipping ShippingEstimator
	Logger   func(context.Context, string, map[string]any)
}

// NewOrderPricer wires the pricing collaborators.
func NewOrderPricer(deps OrderPricerDeps) (*OrderPricer, error) {
	tax := deps.Tax
	if tax == nil {
		tax = FlatRateTax{Rate: DefaultTaxRate}
	}
	shipping := deps.Shipping
	if shipping == nil {
		shipping = ThresholdShipping{FreeAbove: DefaultFreeShippingAbove, FlatFee: DefaultShippingFee}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &OrderPricer{tax: tax, shipping: shipping, logger: logger}, nil
}

// PriceOrderCommand describes the order being priced.
type PriceOrderCommand struct {
	Currency      string
	Lines         []domain.LineItem
	DiscountRatio float64
	ServiceLevel  string
	Country       string
}

// OrderPricing is the monetary outcome of pricing an order. All amounts are minor units.
type OrderPricing struct {
	Subtotal           int64
	DiscountAmount     int64
	DiscountedSubtotal int64
	Shipping           int64
	ShippingLevel      string
	Taxes              int64
	Total              int64
	LineDiscounts      []int64
}

// Price computes the order aggregates. The discount is order-level and is allocated back to
// lines proportionally to their subtotals for reporting.
func (p *OrderPricer) Price(ctx context.Context, cmd PriceOrderCommand) (OrderPricing, error) {
	if len(cmd.Lines) == 0 {
		return OrderPricing{}, fmt.Errorf("%w: order has no lines", ErrOrderPricingInvalidInput)
	}
	if cmd.DiscountRatio < 0 || cmd.DiscountRatio > 1 {
		return OrderPricing{}, fmt.Errorf("%w: discount ratio %v outside [0,1]", ErrOrderPricingInvalidInput, cmd.DiscountRatio)
	}
	currency := strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	weights := make([]int64, len(cmd.Lines))
	var subtotal int64
	for i, line := range cmd.Lines {
		if line.UnitPrice < 0 || line.Quantity < 0 {
			return OrderPricing{}, fmt.Errorf("%w: line %s has negative price or quantity", ErrOrderPricingInvalidInput, line.SKU)
		}
		weights[i] = line.Subtotal()
		subtotal += weights[i]
	}

	discount := domain.RoundMinor(cmd.DiscountRatio * float64(subtotal))
	if discount > subtotal {
		p.logger(ctx, "order_pricing_discount_clamped", map[string]any{"subtotal": subtotal, "discount": discount})
		discount = subtotal
	}
	discounted := subtotal - discount

	shipping, err := p.shipping.EstimateShipping(ctx, ShippingEstimateRequest{
		Currency:           currency,
		DiscountedSubtotal: discounted,
		ServiceLevel:       cmd.ServiceLevel,
		Country:            cmd.Country,
	})
	if err != nil {
		return OrderPricing{}, fmt.Errorf("estimate shipping: %w", err)
	}
	tax, err := p.tax.CalculateTax(ctx, TaxCalculationRequest{
		Currency:           currency,
		DiscountedSubtotal: discounted,
		Country:            cmd.Country,
	})
	if err != nil {
		return OrderPricing{}, fmt.Errorf("calculate tax: %w", err)
	}

	return OrderPricing{
		Subtotal:           subtotal,
		DiscountAmount:     discount,
		DiscountedSubtotal: discounted,
		Shipping:           shipping.Amount,
		ShippingLevel:      shipping.ServiceLevel,
		Taxes:              tax.Amount,
		Total:              discounted + shipping.Amount + tax.Amount,
		LineDiscounts:      allocateByWeight(discount, weights),
	}, nil
}

// allocateByWeight splits amount across weights using largest-remainder rounding. All-zero
// weights split evenly.
func allocateByWeight(amount int64, weights []int64) []int64 {
	if len(weights) == 0 {
		return nil
	}
	allocations := make([]int64, len(weights))
	if amount == 0 {
		return allocations
	}
	totalWeight := int64(0)
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight == 0 {
		base := amount / int64(len(weights))
		remainder := amount % int64(len(weights))
		for i := range weights {
			allocations[i] = base
			if remainder > 0 {
				allocations[i]++
				remainder--
			}
		}
		return allocations
	}

	type remainderPair struct {
		idx       int
		remainder int64
	}
	pairs := make([]remainderPair, len(weights))

	distributed := int64(0)
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		share := (amount * w) / totalWeight
		allocations[i] = share
		distributed += share
		pairs[i] = remainderPair{idx: i, remainder: (amount * w) % totalWeight}
	}

	remainder := amount - distributed
	if remainder <= 0 {
		return allocations
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].remainder == pairs[j].remainder {
			return pairs[i].idx < pairs[j].idx
		}
		return pairs[i].remainder > pairs[j].remainder
	})
	for _, entry := range pairs {
		if remainder == 0 {
			break
		}
		allocations[entry.idx]++
		remainder--
	}
	return allocations
}
