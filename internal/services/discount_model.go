package services

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
)

const (
	discountSumTolerance = 0.01
	bulkOrderQuantity    = 4
	ratioEpsilon         = 1e-9
)

var (
	// ErrDiscountTableInvalid indicates a discount table with no entries or out-of-range values.
	ErrDiscountTableInvalid = errors.New("discount table: invalid")
	// ErrDiscountDistribution indicates discount probabilities that do not sum to 1 within tolerance.
	// It is a warning; the table remains usable.
	ErrDiscountDistribution = errors.New("discount table: probabilities do not sum to 1")
)

// DefaultDiscountProbabilities is the documented default discount ratio distribution.
func DefaultDiscountProbabilities() map[float64]float64 {
	return map[float64]float64{
		0.00: 0.75,
		0.10: 0.08,
		0.15: 0.06,
		0.20: 0.05,
		0.25: 0.03,
		0.30: 0.02,
		0.40: 0.005,
		0.50: 0.005,
	}
}

// DiscountTable is a categorical distribution over discount ratios, ordered by ratio.
type DiscountTable struct {
	ratios  []float64
	weights []float64
}

// NewDiscountTable validates and orders a ratio → probability map.
func NewDiscountTable(probabilities map[float64]float64) (DiscountTable, error) {
	if len(probabilities) == 0 {
		return DiscountTable{}, fmt.Errorf("%w: no entries", ErrDiscountTableInvalid)
	}
	ratios := make([]float64, 0, len(probabilities))
	for ratio, weight := range probabilities {
		if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
			return DiscountTable{}, fmt.Errorf("%w: ratio %v outside [0,1]", ErrDiscountTableInvalid, ratio)
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return DiscountTable{}, fmt.Errorf("%w: probability %v for ratio %v", ErrDiscountTableInvalid, weight, ratio)
		}
		ratios = append(ratios, ratio)
	}
	sort.Float64s(ratios)
	weights := make([]float64, len(ratios))
	for i, r := range ratios {
		weights[i] = probabilities[r]
	}
	return DiscountTable{ratios: ratios, weights: weights}, nil
}

// Len returns the number of ratios.
func (t DiscountTable) Len() int {
	return len(t.ratios)
}

// Sum returns the total probability mass.
func (t DiscountTable) Sum() float64 {
	total := 0.0
	for _, w := range t.weights {
		total += w
	}
	return total
}

// MaxRatio returns the largest configured ratio.
func (t DiscountTable) MaxRatio() float64 {
	if len(t.ratios) == 0 {
		return 0
	}
	return t.ratios[len(t.ratios)-1]
}

// Validate reports ErrDiscountDistribution when the probabilities sum outside 1 ± 0.01.
func (t DiscountTable) Validate() error {
	sum := t.Sum()
	if math.Abs(sum-1) > discountSumTolerance {
		return fmt.Errorf("%w: sum is %.4f", ErrDiscountDistribution, sum)
	}
	return nil
}

// Normalized returns a copy whose probabilities sum to exactly 1.
func (t DiscountTable) Normalized() DiscountTable {
	sum := t.Sum()
	out := DiscountTable{ratios: append([]float64(nil), t.ratios...), weights: make([]float64, len(t.weights))}
	for i, w := range t.weights {
		if sum > 0 {
			out.weights[i] = w / sum
		}
	}
	return out
}

// Map returns the table as a ratio → probability map.
func (t DiscountTable) Map() map[float64]float64 {
	out := make(map[float64]float64, len(t.ratios))
	for i, r := range t.ratios {
		out[r] = t.weights[i]
	}
	return out
}

// DiscountContext is the order context used to reweight the discount distribution.
type DiscountContext struct {
	Date      time.Time
	Subtotal  int64
	Quantity  int
	IsHoliday bool
}

// DiscountModel samples order-level discount ratios and codes.
type DiscountModel struct {
	table   DiscountTable
	enabled bool
}

// NewDiscountModel builds a discount model over table. A disabled model always returns 0.
func NewDiscountModel(table DiscountTable, enabled bool) *DiscountModel {
	return &DiscountModel{table: table, enabled: enabled}
}

// Enabled reports whether discounts are sampled at all.
func (m *DiscountModel) Enabled() bool {
	return m != nil && m.enabled && m.table.Len() > 0
}

// Table exposes the configured distribution.
func (m *DiscountModel) Table() DiscountTable {
	return m.table
}

// AdjustedWeights returns the context-reweighted, normalised distribution in ratio order.
// Weekend, holiday and bulk adjustments compose multiplicatively.
func (m *DiscountModel) AdjustedWeights(c DiscountContext) []float64 {
	weights := append([]float64(nil), m.table.weights...)
	weekend := calendar.IsWeekend(c.Date)
	bulk := c.Quantity >= bulkOrderQuantity
	for i, ratio := range m.table.ratios {
		none := ratio <= ratioEpsilon
		if weekend {
			if none {
				weights[i] *= 0.8
			} else {
				weights[i] *= 1.3
			}
		}
		if c.IsHoliday {
			if none {
				weights[i] *= 0.6
			} else if ratio >= 0.20-ratioEpsilon {
				weights[i] *= 2.0
			}
		}
		if bulk {
			if none {
				weights[i] *= 0.7
			} else if ratio >= 0.15-ratioEpsilon {
				weights[i] *= 1.5
			}
		}
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	}
	return weights
}

// SampleRatio draws a discount ratio for the order context. It returns 0 without drawing when
// discounts are disabled or the subtotal is zero.
func (m *DiscountModel) SampleRatio(rng *rand.Rand, c DiscountContext) float64 {
	if !m.Enabled() || c.Subtotal == 0 {
		return 0
	}
	idx, err := weightedIndex(rng, m.AdjustedWeights(c))
	if err != nil {
		return 0
	}
	return math.Round(m.table.ratios[idx]*10000) / 10000
}

var (
	seasonalCodeBank = map[string][]string{
		"winter": {"WINTER", "HOLIDAY", "COZY", "WARMUP", "SNOW"},
		"spring": {"SPRING", "BLOOM", "FRESH", "EASTER", "RENEW"},
		"summer": {"SUMMER", "SUN", "BEACH", "VACATION", "HOT"},
		"fall":   {"FALL", "AUTUMN", "HARVEST", "SCHOOL", "LEAF"},
	}
	holidayCodeBank = map[time.Month][]string{
		time.January:   {"NEWYEAR", "FRESH", "RESOLUTION"},
		time.February:  {"VALENTINE", "LOVE", "HEARTS"},
		time.March:     {"SPRING", "EASTER", "BLOOM"},
		time.April:     {"EASTER", "SPRING", "BUNNY"},
		time.May:       {"MOTHER", "MOM", "SPRING"},
		time.June:      {"FATHER", "DAD", "SUMMER"},
		time.July:      {"SUMMER", "JULY4", "FREEDOM"},
		time.August:    {"SUMMER", "VACATION", "HOT"},
		time.September: {"BACK2SCHOOL", "AUTUMN", "LEARN"},
		time.October:   {"HALLOWEEN", "SPOOKY", "FALL"},
		time.November:  {"THANKSGIVING", "TURKEY", "GRATEFUL"},
		time.December:  {"HOLIDAY", "XMAS", "WINTER"},
	}
	weekendCodeBank = []string{"WEEKEND", "RELAX", "FUNDAY", "CHILL"}
)

func amountPrefixes(ratio float64) []string {
	switch {
	case ratio >= 0.40-ratioEpsilon:
		return []string{"MEGA", "SUPER", "HUGE", "BIG", "FLASH"}
	case ratio >= 0.25-ratioEpsilon:
		return []string{"GREAT", "AWESOME", "SPECIAL", "PRIME"}
	case ratio >= 0.15-ratioEpsilon:
		return []string{"SAVE", "DEAL", "GOOD", "NICE"}
	default:
		return []string{"WELCOME", "TRY", "FIRST", "SMALL"}
	}
}

func stylisedSuffixes(ratio float64) []string {
	switch {
	case ratio >= 0.40-ratioEpsilon:
		return []string{"50", "40", "MAX"}
	case ratio >= 0.25-ratioEpsilon:
		return []string{"25", "30", "PLUS"}
	default:
		return []string{"15", "20", "NOW"}
	}
}

// Code builds a promotional code for a non-zero ratio: a holiday, weekend or seasonal word,
// an optional amount-tier prefix (30%), and either the percentage (70%) or a stylised suffix.
func (m *DiscountModel) Code(rng *rand.Rand, date time.Time, ratio float64, isHoliday bool) string {
	if ratio <= 0 {
		return ""
	}

	var base string
	switch {
	case isHoliday:
		bank := holidayCodeBank[date.Month()]
		base = bank[rng.Intn(len(bank))]
	case calendar.IsWeekend(date) && rng.Float64() < 0.3:
		base = weekendCodeBank[rng.Intn(len(weekendCodeBank))]
	default:
		bank := seasonalCodeBank[calendar.Season(date)]
		base = bank[rng.Intn(len(bank))]
	}

	code := base
	if rng.Float64() < 0.3 {
		prefixes := amountPrefixes(ratio)
		code = prefixes[rng.Intn(len(prefixes))] + base
	}

	if rng.Float64() < 0.7 {
		code += strconv.Itoa(int(math.Round(ratio * 100)))
	} else {
		suffixes := stylisedSuffixes(ratio)
		code += suffixes[rng.Intn(len(suffixes))]
	}
	return code
}
