package domain

import "testing"

func TestTrendClassValid(t *testing.T) {
	for _, trend := range TrendClasses {
		if !trend.Valid() {
			t.Fatalf("expected %q to be valid", trend)
		}
	}
	if TrendClass("seasonal").Valid() {
		t.Fatalf("unexpected valid trend")
	}
}

func TestSimulatedOrderAggregates(t *testing.T) {
	order := SimulatedOrder{
		Lines: []LineItem{
			{SKU: "A", UnitPrice: 2999, Quantity: 2},
			{SKU: "B", UnitPrice: 499, Quantity: 1, Stockout: true},
		},
	}
	if got := order.Units(); got != 3 {
		t.Fatalf("expected 3 units, got %d", got)
	}
	if !order.Stockout() {
		t.Fatalf("expected order stockout flag")
	}
	if got := order.Lines[0].Subtotal(); got != 5998 {
		t.Fatalf("expected line subtotal 5998, got %d", got)
	}
}

func TestMoneyConversions(t *testing.T) {
	if got := MinorFromMajor(29.99); got != 2999 {
		t.Fatalf("expected 2999, got %d", got)
	}
	if got := RoundMinor(-2.5); got != -3 {
		t.Fatalf("expected half away from zero, got %d", got)
	}
	if got := MajorFromMinor(599); got != 5.99 {
		t.Fatalf("expected 5.99, got %v", got)
	}
}
