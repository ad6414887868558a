package catalog

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	generatedMinPrice      = 3.99
	generatedMaxPrice      = 199.99
	generatedMinPopularity = 0.45
	generatedMaxPopularity = 0.95

	minEffectivePopularity = 0.1
	maxEffectivePopularity = 1.0
)

// ErrEmptyCatalog indicates a catalog size of zero or less was requested.
var ErrEmptyCatalog = errors.New("catalog: size must be positive")

// Catalog is the read-only SKU universe of a run.
type Catalog struct {
	products []domain.Product
	bySKU    map[string]int
}

// Build returns the first n curated products, then synthesises generic products with sequential SKUs
// until the catalog holds n entries.
func Build(rng *rand.Rand, n int) (*Catalog, error) {
	if n <= 0 {
		return nil, ErrEmptyCatalog
	}
	if rng == nil {
		return nil, errors.New("catalog: rng is required")
	}

	products := make([]domain.Product, 0, n)
	for i := 0; i < n && i < len(curatedProducts); i++ {
		c := curatedProducts[i]
		products = append(products, domain.Product{
			SKU:         c.sku,
			Name:        c.name,
			UnitPrice:   domain.MinorFromMajor(c.price),
			Vendor:      c.vendor,
			ProductType: c.productType,
			Popularity:  c.popularity,
			Trend:       c.trend,
		})
	}
	for i := len(curatedProducts); i < n; i++ {
		seq := i + 1
		productType := generatedProductTypes[rng.Intn(len(generatedProductTypes))]
		vendor := generatedVendors[rng.Intn(len(generatedVendors))]
		price := generatedMinPrice + rng.Float64()*(generatedMaxPrice-generatedMinPrice)
		popularity := generatedMinPopularity + rng.Float64()*(generatedMaxPopularity-generatedMinPopularity)
		products = append(products, domain.Product{
			SKU:         fmt.Sprintf("TOY-GEN-%03d", seq),
			Name:        fmt.Sprintf("%s #%d", productType, seq),
			UnitPrice:   domain.MinorFromMajor(price),
			Vendor:      vendor,
			ProductType: productType,
			Popularity:  math.Round(popularity*100) / 100,
			Trend:       domain.TrendClasses[rng.Intn(len(domain.TrendClasses))],
		})
	}
	return New(products)
}

// New wraps an explicit product list, rejecting duplicate or empty SKUs.
func New(products []domain.Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}
	bySKU := make(map[string]int, len(products))
	for i, p := range products {
		if p.SKU == "" {
			return nil, fmt.Errorf("catalog: product %d has no sku", i)
		}
		if _, dup := bySKU[p.SKU]; dup {
			return nil, fmt.Errorf("catalog: duplicate sku %q", p.SKU)
		}
		if p.UnitPrice <= 0 {
			return nil, fmt.Errorf("catalog: sku %q has non-positive price", p.SKU)
		}
		if !p.Trend.Valid() {
			return nil, fmt.Errorf("catalog: sku %q has unknown trend %q", p.SKU, p.Trend)
		}
		bySKU[p.SKU] = i
	}
	owned := make([]domain.Product, len(products))
	copy(owned, products)
	return &Catalog{products: owned, bySKU: bySKU}, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// At returns the product at index i.
func (c *Catalog) At(i int) domain.Product {
	return c.products[i]
}

// Products returns a copy of the product list in catalog order.
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup finds a product by SKU.
func (c *Catalog) Lookup(sku string) (domain.Product, bool) {
	idx, ok := c.bySKU[sku]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[idx], true
}

// Horizon is the simulated period used to measure trend progress.
type Horizon struct {
	Start time.Time
	Days  int
}

// Progress returns the elapsed fraction of the horizon at date. It is not clamped.
func (h Horizon) Progress(date time.Time) float64 {
	if h.Days <= 0 {
		return 0
	}
	elapsed := calendar.Day(date).Sub(calendar.Day(h.Start)).Hours() / 24
	return elapsed / float64(h.Days)
}

// TrendMultiplier maps horizon progress through the product's trend curve.
func TrendMultiplier(rng *rand.Rand, product domain.Product, date time.Time, horizon Horizon) float64 {
	return TrendMultiplierAt(rng, product.Trend, horizon.Progress(date))
}

// TrendMultiplierAt evaluates a trend curve at an explicit progress value.
func TrendMultiplierAt(rng *rand.Rand, trend domain.TrendClass, progress float64) float64 {
	switch trend {
	case domain.TrendGrowing:
		// logistic S-curve, roughly 0.6 to 1.4
		return 0.6 + 0.8/(1+math.Exp(-10*(progress-0.5)))
	case domain.TrendDeclining:
		return 0.5 + 0.8*math.Exp(-2*progress)
	case domain.TrendVolatile:
		base := 0.9 + 0.2*rng.Float64()
		cycle := math.Sin(progress*6*math.Pi) * 0.3
		harmonic := math.Sin(progress*12*math.Pi) * 0.1
		return clamp(base+cycle+harmonic, 0.4, 1.6)
	default:
		return 0.98 + 0.04*rng.Float64()
	}
}

// EffectivePopularity is base popularity × trend × seasonality, clamped to [0.1, 1.0].
func EffectivePopularity(rng *rand.Rand, product domain.Product, date time.Time, horizon Horizon) float64 {
	v := product.Popularity * TrendMultiplier(rng, product, date, horizon) * calendar.SeasonalFactor(date)
	return clamp(v, minEffectivePopularity, maxEffectivePopularity)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
