package services

import (
	"math"
	"math/rand"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	weekendZeroProbability = 0.15
	weekdayZeroProbability = 0.03
)

// DemandTier is a categorical quantity distribution selected by product popularity.
type DemandTier struct {
	Name          string
	MinPopularity float64
	Weights       []float64
}

// Mean returns the average of the tier's quantity values 0..len(Weights)-1.
func (d DemandTier) Mean() float64 {
	n := len(d.Weights)
	if n == 0 {
		return 0
	}
	return float64(n-1) / 2
}

// demandTiers are ordered by descending popularity threshold; the last tier catches the rest.
var demandTiers = []DemandTier{
	{Name: "high_demand", MinPopularity: 0.85, Weights: []float64{0.03, 0.12, 0.25, 0.30, 0.20, 0.08, 0.02}},
	{Name: "medium_demand", MinPopularity: 0.70, Weights: []float64{0.05, 0.20, 0.35, 0.25, 0.12, 0.03}},
	{Name: "low_demand", MinPopularity: 0.55, Weights: []float64{0.15, 0.40, 0.25, 0.15, 0.05}},
	{Name: "variable", MinPopularity: math.Inf(-1), Weights: []float64{0.10, 0.18, 0.22, 0.20, 0.15, 0.10, 0.05}},
}

// TierFor returns the demand tier for a base popularity score.
func TierFor(popularity float64) DemandTier {
	for _, tier := range demandTiers {
		if popularity >= tier.MinPopularity {
			return tier
		}
	}
	return demandTiers[len(demandTiers)-1]
}

// QuantityDraw is the outcome of one line quantity draw.
type QuantityDraw struct {
	Quantity int
	// Stockout records that the draw would have produced zero before the floor at one unit.
	Stockout bool
}

// QuantityModel draws line quantities.
type QuantityModel struct {
	Variety     bool
	Min         int
	Max         int
	NoiseFactor float64
}

// Draw samples a quantity for product on date. With variety disabled it returns 1–3 uniformly.
// Otherwise a weekday/weekend zero short-circuit runs first, then a tier draw with Gaussian noise
// scaled by the tier mean, clamped to [Min, Max]. The emitted quantity is never below one.
func (m QuantityModel) Draw(rng *rand.Rand, product domain.Product, date time.Time) QuantityDraw {
	if !m.Variety {
		return QuantityDraw{Quantity: randIntInclusive(rng, 1, 3)}
	}
	tier := TierFor(product.Popularity)

	zeroProbability := weekdayZeroProbability
	if calendar.IsWeekend(date) {
		zeroProbability = weekendZeroProbability
	}
	if rng.Float64() < zeroProbability {
		return QuantityDraw{Quantity: 1, Stockout: true}
	}

	base, err := weightedIndex(rng, tier.Weights)
	if err != nil {
		base = 1
	}
	noisy := int(math.Round(float64(base) + rng.NormFloat64()*m.NoiseFactor*math.Max(tier.Mean(), 1)))
	clamped := noisy
	if clamped < m.Min {
		clamped = m.Min
	}
	if clamped > m.Max {
		clamped = m.Max
	}
	if clamped < 1 {
		return QuantityDraw{Quantity: 1, Stockout: true}
	}
	return QuantityDraw{Quantity: clamped}
}

// UpperBound returns the largest quantity the model can emit.
func (m QuantityModel) UpperBound() int {
	if !m.Variety {
		return 3
	}
	if m.Max < 1 {
		return 1
	}
	return m.Max
}
