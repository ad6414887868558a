package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hanko-field/ordersim/internal/domain"
)

func TestOrderPricerAppliesDiscountShippingAndTax(t *testing.T) {
	pricer, err := NewOrderPricer(OrderPricerDeps{})
	if err != nil {
		t.Fatalf("NewOrderPricer error: %v", err)
	}

	lines := []domain.LineItem{
		{SKU: "TOY-001", UnitPrice: 1299, Quantity: 2},
		{SKU: "TOY-002", UnitPrice: 500, Quantity: 1},
	}
	got, err := pricer.Price(context.Background(), PriceOrderCommand{Lines: lines, DiscountRatio: 0.1, ServiceLevel: "Express"})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}

	if got.Subtotal != 3098 {
		t.Fatalf("expected subtotal 3098, got %d", got.Subtotal)
	}
	if got.DiscountAmount != 310 {
		t.Fatalf("expected discount 310, got %d", got.DiscountAmount)
	}
	if got.Shipping != DefaultShippingFee {
		t.Fatalf("expected flat shipping, got %d", got.Shipping)
	}
	if got.ShippingLevel != "Express" {
		t.Fatalf("expected service level to pass through, got %q", got.ShippingLevel)
	}
	if got.Taxes != 223 {
		t.Fatalf("expected taxes 223, got %d", got.Taxes)
	}
	if got.Total != 2788+599+223 {
		t.Fatalf("unexpected total %d", got.Total)
	}
	var allocated int64
	for _, d := range got.LineDiscounts {
		allocated += d
	}
	if allocated != got.DiscountAmount {
		t.Fatalf("line discounts %v do not sum to %d", got.LineDiscounts, got.DiscountAmount)
	}
}

func TestOrderPricerFreeShippingStrictlyAboveThreshold(t *testing.T) {
	pricer, _ := NewOrderPricer(OrderPricerDeps{})

	atThreshold, err := pricer.Price(context.Background(), PriceOrderCommand{
		Lines: []domain.LineItem{{SKU: "A", UnitPrice: 5000, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if atThreshold.Shipping != DefaultShippingFee {
		t.Fatalf("expected fee at exactly $50, got %d", atThreshold.Shipping)
	}

	above, err := pricer.Price(context.Background(), PriceOrderCommand{
		Lines: []domain.LineItem{{SKU: "A", UnitPrice: 5001, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if above.Shipping != 0 {
		t.Fatalf("expected free shipping above $50, got %d", above.Shipping)
	}
}

func TestOrderPricerFullDiscountLeavesShippingAndZeroTax(t *testing.T) {
	pricer, _ := NewOrderPricer(OrderPricerDeps{})
	got, err := pricer.Price(context.Background(), PriceOrderCommand{
		Lines:         []domain.LineItem{{SKU: "A", UnitPrice: 1999, Quantity: 3}},
		DiscountRatio: 1,
	})
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if got.DiscountAmount != got.Subtotal || got.Taxes != 0 {
		t.Fatalf("expected full discount and no tax, got %+v", got)
	}
	if got.Total != DefaultShippingFee {
		t.Fatalf("expected total to equal shipping, got %d", got.Total)
	}
}

func TestOrderPricerRejectsInvalidInput(t *testing.T) {
	pricer, _ := NewOrderPricer(OrderPricerDeps{})
	ctx := context.Background()

	if _, err := pricer.Price(ctx, PriceOrderCommand{}); !errors.Is(err, ErrOrderPricingInvalidInput) {
		t.Fatalf("expected invalid input for empty order, got %v", err)
	}
	_, err := pricer.Price(ctx, PriceOrderCommand{
		Lines:         []domain.LineItem{{SKU: "A", UnitPrice: 100, Quantity: 1}},
		DiscountRatio: 1.5,
	})
	if !errors.Is(err, ErrOrderPricingInvalidInput) {
		t.Fatalf("expected invalid input for ratio > 1, got %v", err)
	}
}

type failingTax struct{}

func (failingTax) CalculateTax(context.Context, TaxCalculationRequest) (TaxQuote, error) {
	return TaxQuote{}, errors.New("tax backend down")
}

func TestOrderPricerWrapsCollaboratorErrors(t *testing.T) {
	pricer, _ := NewOrderPricer(OrderPricerDeps{Tax: failingTax{}})
	_, err := pricer.Price(context.Background(), PriceOrderCommand{
		Lines: []domain.LineItem{{SKU: "A", UnitPrice: 100, Quantity: 1}},
	})
	if err == nil || err.Error() != "calculate tax: tax backend down" {
		t.Fatalf("expected wrapped tax error, got %v", err)
	}
}

func TestAllocateByWeightLargestRemainder(t *testing.T) {
	got := allocateByWeight(100, []int64{1, 1, 1})
	if got[0] != 34 || got[1] != 33 || got[2] != 33 {
		t.Fatalf("unexpected allocation %v", got)
	}
	even := allocateByWeight(7, []int64{0, 0})
	if even[0] != 4 || even[1] != 3 {
		t.Fatalf("unexpected even allocation %v", even)
	}
}
