package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSettings indicates simulation settings outside their documented domain.
var ErrInvalidSettings = errors.New("simulation: invalid settings")

// SimulationSettings are the distributional parameters of one generation run.
type SimulationSettings struct {
	Seed                  int64
	NumberOfSKUs          int
	NumberOfMonths        int
	AverageMonthlyGrowth  float64
	WeekendBoostFactor    float64
	BaseDailyOrders       int
	SeasonalFactor        float64
	RandomNoiseFactor     float64
	MinSalesDaysPerSKU    int
	MinTotalUnitsPerSKU   int
	EnsureSKUDistribution bool
	SKUPopularityWeights  bool
	EnableDiscounts       bool
	DiscountProbabilities map[float64]float64
	RenormalizeDiscounts  bool
	EnableQuantityVariety bool
	MinQuantity           int
	MaxQuantity           int
	// EndDate is the last simulated day; zero means yesterday.
	EndDate   time.Time
	Countries []string
}

// DefaultSimulationSettings returns the documented defaults.
func DefaultSimulationSettings() SimulationSettings {
	return SimulationSettings{
		NumberOfSKUs:          50,
		NumberOfMonths:        12,
		AverageMonthlyGrowth:  0.08,
		WeekendBoostFactor:    1.8,
		BaseDailyOrders:       15,
		SeasonalFactor:        0.3,
		RandomNoiseFactor:     0.1,
		MinSalesDaysPerSKU:    30,
		MinTotalUnitsPerSKU:   50,
		EnsureSKUDistribution: true,
		SKUPopularityWeights:  true,
		EnableDiscounts:       true,
		DiscountProbabilities: DefaultDiscountProbabilities(),
		EnableQuantityVariety: true,
		MinQuantity:           0,
		MaxQuantity:           8,
	}
}

// Validate checks the structural constraints of the settings.
func (s SimulationSettings) Validate() error {
	var problems []string
	if s.NumberOfSKUs <= 0 {
		problems = append(problems, "number_of_skus must be positive")
	}
	if s.NumberOfMonths <= 0 {
		problems = append(problems, "number_of_months must be positive")
	}
	if s.BaseDailyOrders <= 0 {
		problems = append(problems, "base_daily_orders must be positive")
	}
	if s.RandomNoiseFactor < 0 {
		problems = append(problems, "random_noise_factor must be non-negative")
	}
	if s.MinSalesDaysPerSKU < 0 || s.MinTotalUnitsPerSKU < 0 {
		problems = append(problems, "sku floors must be non-negative")
	}
	if s.MinQuantity < 0 {
		problems = append(problems, "min_quantity must be non-negative")
	}
	if s.MaxQuantity < s.MinQuantity {
		problems = append(problems, "max_quantity must be at least min_quantity")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, problems)
	}
	return nil
}
