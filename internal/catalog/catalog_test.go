package catalog

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/hanko-field/ordersim/internal/domain"
)

func TestBuildUsesCuratedProductsFirst(t *testing.T) {
	cat, err := Build(rand.New(rand.NewSource(1)), 5)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cat.Len() != 5 {
		t.Fatalf("expected 5 products, got %d", cat.Len())
	}
	first := cat.At(0)
	if first.SKU != "TOY-LEGO-001" || first.UnitPrice != 2999 || first.Trend != domain.TrendStable {
		t.Fatalf("unexpected first product %#v", first)
	}
}

func TestBuildGeneratesSequentialSKUs(t *testing.T) {
	n := CuratedSize() + 25
	cat, err := Build(rand.New(rand.NewSource(2)), n)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cat.Len() != n {
		t.Fatalf("expected %d products, got %d", n, cat.Len())
	}
	seen := map[string]bool{}
	for _, p := range cat.Products() {
		if seen[p.SKU] {
			t.Fatalf("duplicate sku %s", p.SKU)
		}
		seen[p.SKU] = true
		if p.Popularity < 0 || p.Popularity > 1 {
			t.Fatalf("popularity out of range for %s: %v", p.SKU, p.Popularity)
		}
	}
	gen := cat.At(CuratedSize())
	if gen.SKU != "TOY-GEN-051" {
		t.Fatalf("expected first generated sku TOY-GEN-051, got %s", gen.SKU)
	}
	if !strings.HasSuffix(gen.Name, "#51") {
		t.Fatalf("unexpected generated name %q", gen.Name)
	}
	if gen.UnitPrice < 399 || gen.UnitPrice > 19999 {
		t.Fatalf("generated price out of range: %d", gen.UnitPrice)
	}
	if _, ok := cat.Lookup("TOY-GEN-075"); !ok {
		t.Fatalf("expected lookup of last generated sku")
	}
}

func TestBuildIsReproducibleForSeed(t *testing.T) {
	a, _ := Build(rand.New(rand.NewSource(9)), 60)
	b, _ := Build(rand.New(rand.NewSource(9)), 60)
	for i := 0; i < a.Len(); i++ {
		if a.At(i) != b.At(i) {
			t.Fatalf("product %d differs between runs", i)
		}
	}
}

func TestBuildRejectsEmpty(t *testing.T) {
	if _, err := Build(rand.New(rand.NewSource(1)), 0); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	p := domain.Product{SKU: "A", UnitPrice: 100, Trend: domain.TrendStable}
	if _, err := New([]domain.Product{p, p}); err == nil {
		t.Fatalf("expected duplicate sku error")
	}
}

func TestTrendMultiplierRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i <= 100; i++ {
		progress := float64(i) / 100
		if v := TrendMultiplierAt(rng, domain.TrendGrowing, progress); v < 0.6 || v > 1.4 {
			t.Fatalf("growing out of range at %v: %v", progress, v)
		}
		if v := TrendMultiplierAt(rng, domain.TrendDeclining, progress); v < 0.5 || v > 1.3 {
			t.Fatalf("declining out of range at %v: %v", progress, v)
		}
		if v := TrendMultiplierAt(rng, domain.TrendVolatile, progress); v < 0.4 || v > 1.6 {
			t.Fatalf("volatile out of range at %v: %v", progress, v)
		}
		if v := TrendMultiplierAt(rng, domain.TrendStable, progress); v < 0.98 || v > 1.02 {
			t.Fatalf("stable out of range at %v: %v", progress, v)
		}
	}
	if TrendMultiplierAt(rng, domain.TrendGrowing, 0.9) <= TrendMultiplierAt(rng, domain.TrendGrowing, 0.1) {
		t.Fatalf("growing trend should increase")
	}
	if TrendMultiplierAt(rng, domain.TrendDeclining, 0.9) >= TrendMultiplierAt(rng, domain.TrendDeclining, 0.1) {
		t.Fatalf("declining trend should decrease")
	}
}

func TestStablePopularProductAtMidHorizon(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	horizon := Horizon{Start: start, Days: 360}
	product := domain.Product{SKU: "S", Popularity: 0.95, Trend: domain.TrendStable, UnitPrice: 100}
	mid := start.AddDate(0, 0, 180)
	if p := horizon.Progress(mid); p != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", p)
	}
	for i := 0; i < 50; i++ {
		if v := TrendMultiplier(rng, product, mid, horizon); v < 0.98 || v > 1.02 {
			t.Fatalf("stable multiplier out of range: %v", v)
		}
	}
}

func TestEffectivePopularityClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	horizon := Horizon{Start: start, Days: 360}
	low := domain.Product{SKU: "L", Popularity: 0.01, Trend: domain.TrendDeclining, UnitPrice: 100}
	high := domain.Product{SKU: "H", Popularity: 1.0, Trend: domain.TrendGrowing, UnitPrice: 100}
	date := start.AddDate(0, 0, 340)
	if v := EffectivePopularity(rng, low, date, horizon); v != 0.1 {
		t.Fatalf("expected floor 0.1, got %v", v)
	}
	if v := EffectivePopularity(rng, high, date, horizon); v != 1.0 {
		t.Fatalf("expected ceiling 1.0, got %v", v)
	}
}
