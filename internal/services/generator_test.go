package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/domain"
)

func fixedSettings(seed int64) SimulationSettings {
	settings := DefaultSimulationSettings()
	settings.Seed = seed
	settings.EndDate = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	return settings
}

func runGenerator(t *testing.T, settings SimulationSettings) Result {
	t.Helper()
	gen, err := NewGenerator(GeneratorDeps{
		Settings: settings,
		Clock:    func() time.Time { return time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewGenerator error: %v", err)
	}
	result, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return result
}

func TestGeneratorOrderInvariants(t *testing.T) {
	settings := fixedSettings(42)
	result := runGenerator(t, settings)

	if len(result.Orders) == 0 {
		t.Fatalf("expected orders")
	}
	if result.Stats.SimulatedOrders+result.Stats.CorrectiveOrders != len(result.Orders) {
		t.Fatalf("stats do not add up: %+v vs %d orders", result.Stats, len(result.Orders))
	}
	if len(result.Dates) != 361 || !result.Dates[0].Equal(result.Start) || !result.Dates[360].Equal(result.End) {
		t.Fatalf("unexpected date range %s..%s (%d days)", result.Start, result.End, len(result.Dates))
	}

	allowedRatios := settings.DiscountProbabilities
	for i, order := range result.Orders {
		if order.ID != FirstOrderID+int64(i) {
			t.Fatalf("order %d has id %d, expected %d", i, order.ID, FirstOrderID+int64(i))
		}
		day := calendar.Day(order.CreatedAt)
		if day.Before(result.Start) || day.After(result.End) {
			t.Fatalf("order %d dated %s outside horizon", order.ID, day)
		}
		if _, ok := allowedRatios[order.DiscountRatio]; !ok {
			t.Fatalf("order %d has unexpected ratio %v", order.ID, order.DiscountRatio)
		}
		if order.DiscountAmount != domain.RoundMinor(order.DiscountRatio*float64(order.Subtotal)) {
			t.Fatalf("order %d discount %d does not match ratio %v of %d", order.ID, order.DiscountAmount, order.DiscountRatio, order.Subtotal)
		}
		if order.Refunded() {
			if order.Total != 0 {
				t.Fatalf("refunded order %d has total %d", order.ID, order.Total)
			}
		} else if order.Total != order.Subtotal-order.DiscountAmount+order.Shipping+order.Taxes {
			t.Fatalf("order %d total %d does not reconcile", order.ID, order.Total)
		}

		var subtotal int64
		seen := make(map[string]bool)
		for _, line := range order.Lines {
			if seen[line.SKU] {
				t.Fatalf("order %d repeats SKU %s", order.ID, line.SKU)
			}
			seen[line.SKU] = true
			if line.Quantity < 1 || line.Quantity > settings.MaxQuantity {
				t.Fatalf("order %d line %s quantity %d outside bounds", order.ID, line.SKU, line.Quantity)
			}
			subtotal += line.Subtotal()
		}
		if subtotal != order.Subtotal {
			t.Fatalf("order %d subtotal %d != line sum %d", order.ID, order.Subtotal, subtotal)
		}
		if len(order.Lines) < 1 || len(order.Lines) > 4 {
			t.Fatalf("order %d has %d lines", order.ID, len(order.Lines))
		}
	}
}

func TestGeneratorIsReproducibleForSeed(t *testing.T) {
	settings := fixedSettings(42)
	settings.NumberOfMonths = 3
	first := runGenerator(t, settings)
	second := runGenerator(t, settings)

	if len(first.Orders) != len(second.Orders) {
		t.Fatalf("order counts differ: %d vs %d", len(first.Orders), len(second.Orders))
	}
	if !reflect.DeepEqual(first.Orders, second.Orders) {
		t.Fatalf("orders differ between runs with the same seed")
	}

	other := fixedSettings(43)
	other.NumberOfMonths = 3
	third := runGenerator(t, other)
	if reflect.DeepEqual(first.Orders, third.Orders) {
		t.Fatalf("different seeds produced identical orders")
	}
}

func TestGeneratorMeetsSKUFloors(t *testing.T) {
	settings := fixedSettings(7)
	settings.NumberOfSKUs = 80
	settings.NumberOfMonths = 2
	settings.BaseDailyOrders = 5
	result := runGenerator(t, settings)

	if result.Correction.OrdersAdded == 0 {
		t.Fatalf("expected the corrector to add orders for a sparse catalog")
	}
	if len(result.Correction.Infeasible) != 0 {
		t.Fatalf("unexpected infeasible SKUs %v", result.Correction.Infeasible)
	}
	coverage := Coverage(result.Orders)
	for _, product := range result.Catalog.Products() {
		c := coverage[product.SKU]
		if c == nil || c.Units < settings.MinTotalUnitsPerSKU || c.Days < settings.MinSalesDaysPerSKU {
			t.Fatalf("SKU %s below floors: %+v", product.SKU, c)
		}
	}
	for _, order := range result.Orders[result.Stats.SimulatedOrders:] {
		if order.Origin != domain.OriginCorrective || len(order.Lines) != 1 {
			t.Fatalf("unexpected corrective order %+v", order)
		}
		if order.Lines[0].Quantity > settings.MaxQuantity {
			t.Fatalf("corrective quantity %d exceeds max", order.Lines[0].Quantity)
		}
	}
}

func TestGeneratorReportsInfeasibleDayFloor(t *testing.T) {
	settings := fixedSettings(3)
	settings.NumberOfSKUs = 5
	settings.NumberOfMonths = 1
	settings.MinSalesDaysPerSKU = 40
	result := runGenerator(t, settings)

	if len(result.Correction.Infeasible) != settings.NumberOfSKUs {
		t.Fatalf("expected every SKU infeasible, got %v", result.Correction.Infeasible)
	}
	coverage := Coverage(result.Orders)
	for _, product := range result.Catalog.Products() {
		if coverage[product.SKU].Days != len(result.Dates) {
			t.Fatalf("SKU %s should sell on every day, got %d of %d", product.SKU, coverage[product.SKU].Days, len(result.Dates))
		}
	}
}

func TestGeneratorWithoutCorrectionAddsNothing(t *testing.T) {
	settings := fixedSettings(9)
	settings.NumberOfMonths = 1
	settings.EnsureSKUDistribution = false
	result := runGenerator(t, settings)
	if result.Stats.CorrectiveOrders != 0 || result.Correction.Enabled {
		t.Fatalf("corrector should be disabled: %+v", result.Correction)
	}
}

func TestNewGeneratorRejectsInvalidSettings(t *testing.T) {
	settings := DefaultSimulationSettings()
	settings.MaxQuantity = -1
	if _, err := NewGenerator(GeneratorDeps{Settings: settings}); err == nil {
		t.Fatalf("expected validation error")
	}
	settings = DefaultSimulationSettings()
	settings.NumberOfSKUs = 0
	if _, err := NewGenerator(GeneratorDeps{Settings: settings}); err == nil {
		t.Fatalf("expected validation error for empty catalog")
	}
}

func TestGeneratorDefaultsEndDateToYesterday(t *testing.T) {
	settings := DefaultSimulationSettings()
	settings.Seed = 1
	gen, err := NewGenerator(GeneratorDeps{
		Settings: settings,
		Clock:    func() time.Time { return time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewGenerator error: %v", err)
	}
	start, end := gen.Range()
	if !end.Equal(time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", end)
	}
	if end.Sub(start) != 360*24*time.Hour {
		t.Fatalf("unexpected span %s", end.Sub(start))
	}
}
