package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hanko-field/ordersim/internal/services"
)

// fileConfig mirrors the sectioned settings file. Pointer fields distinguish "absent" from zero.
type fileConfig struct {
	DataGeneration      fileDataGeneration      `yaml:"data_generation" toml:"data_generation" json:"data_generation"`
	ProphetOptimization fileProphetOptimization `yaml:"prophet_optimization" toml:"prophet_optimization" json:"prophet_optimization"`
	Discounts           fileDiscounts           `yaml:"discounts" toml:"discounts" json:"discounts"`
	QuantitySettings    fileQuantitySettings    `yaml:"quantity_settings" toml:"quantity_settings" json:"quantity_settings"`
}

type fileDataGeneration struct {
	Seed                 *int64   `yaml:"seed" toml:"seed" json:"seed"`
	NumberOfSKUs         *int     `yaml:"number_of_skus" toml:"number_of_skus" json:"number_of_skus"`
	NumberOfMonths       *int     `yaml:"number_of_months" toml:"number_of_months" json:"number_of_months"`
	AverageMonthlyGrowth *float64 `yaml:"average_monthly_growth" toml:"average_monthly_growth" json:"average_monthly_growth"`
	WeekendBoostFactor   *float64 `yaml:"weekend_boost_factor" toml:"weekend_boost_factor" json:"weekend_boost_factor"`
	BaseDailyOrders      *int     `yaml:"base_daily_orders" toml:"base_daily_orders" json:"base_daily_orders"`
	SeasonalFactor       *float64 `yaml:"seasonal_factor" toml:"seasonal_factor" json:"seasonal_factor"`
	RandomNoiseFactor    *float64 `yaml:"random_noise_factor" toml:"random_noise_factor" json:"random_noise_factor"`
	EndDate              *string  `yaml:"end_date" toml:"end_date" json:"end_date"`
}

type fileProphetOptimization struct {
	MinSalesDaysPerSKU    *int  `yaml:"min_sales_days_per_sku" toml:"min_sales_days_per_sku" json:"min_sales_days_per_sku"`
	MinTotalUnitsPerSKU   *int  `yaml:"min_total_units_per_sku" toml:"min_total_units_per_sku" json:"min_total_units_per_sku"`
	EnsureSKUDistribution *bool `yaml:"ensure_sku_distribution" toml:"ensure_sku_distribution" json:"ensure_sku_distribution"`
	SKUPopularityWeights  *bool `yaml:"sku_popularity_weights" toml:"sku_popularity_weights" json:"sku_popularity_weights"`
}

type fileDiscounts struct {
	EnableDiscounts            *bool              `yaml:"enable_discounts" toml:"enable_discounts" json:"enable_discounts"`
	DiscountRatioProbabilities map[string]float64 `yaml:"discount_ratio_probabilities" toml:"discount_ratio_probabilities" json:"discount_ratio_probabilities"`
	Renormalize                *bool              `yaml:"renormalize" toml:"renormalize" json:"renormalize"`
}

type fileQuantitySettings struct {
	EnableQuantityVariety *bool `yaml:"enable_quantity_variety" toml:"enable_quantity_variety" json:"enable_quantity_variety"`
	MinQuantity           *int  `yaml:"min_quantity" toml:"min_quantity" json:"min_quantity"`
	MaxQuantity           *int  `yaml:"max_quantity" toml:"max_quantity" json:"max_quantity"`
}

// applyFile overlays a settings file onto s. Problems never fail the load: a missing or malformed
// file leaves s untouched and an out-of-range field keeps its default.
func applyFile(path string, s *services.SimulationSettings) []Diagnostic {
	diag := func(field, format string, args ...any) Diagnostic {
		return Diagnostic{Source: path, Field: field, Message: fmt.Sprintf(format, args...)}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Diagnostic{diag("", "config file not found; using defaults")}
	}
	if err != nil {
		return []Diagnostic{diag("", "unable to read config file: %v; using defaults", err)}
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".json":
		err = json.Unmarshal(data, &fc)
	default:
		return []Diagnostic{diag("", "unsupported config file extension %q; using defaults", ext)}
	}
	if err != nil {
		return []Diagnostic{diag("", "malformed config file: %v; using defaults", err)}
	}

	var diags []Diagnostic
	positive := func(field string, value *int, target *int) {
		if value == nil {
			return
		}
		if *value <= 0 {
			diags = append(diags, diag(field, "must be positive, got %d; keeping %d", *value, *target))
			return
		}
		*target = *value
	}
	nonNegative := func(field string, value *int, target *int) {
		if value == nil {
			return
		}
		if *value < 0 {
			diags = append(diags, diag(field, "must be non-negative, got %d; keeping %d", *value, *target))
			return
		}
		*target = *value
	}
	nonNegativeFloat := func(field string, value *float64, target *float64) {
		if value == nil {
			return
		}
		if *value < 0 {
			diags = append(diags, diag(field, "must be non-negative, got %v; keeping %v", *value, *target))
			return
		}
		*target = *value
	}
	flag := func(value *bool, target *bool) {
		if value != nil {
			*target = *value
		}
	}

	dg := fc.DataGeneration
	if dg.Seed != nil {
		s.Seed = *dg.Seed
	}
	positive("data_generation.number_of_skus", dg.NumberOfSKUs, &s.NumberOfSKUs)
	positive("data_generation.number_of_months", dg.NumberOfMonths, &s.NumberOfMonths)
	positive("data_generation.base_daily_orders", dg.BaseDailyOrders, &s.BaseDailyOrders)
	if dg.AverageMonthlyGrowth != nil {
		if *dg.AverageMonthlyGrowth <= -1 {
			diags = append(diags, diag("data_generation.average_monthly_growth", "must be above -1, got %v; keeping %v", *dg.AverageMonthlyGrowth, s.AverageMonthlyGrowth))
		} else {
			s.AverageMonthlyGrowth = *dg.AverageMonthlyGrowth
		}
	}
	nonNegativeFloat("data_generation.weekend_boost_factor", dg.WeekendBoostFactor, &s.WeekendBoostFactor)
	nonNegativeFloat("data_generation.seasonal_factor", dg.SeasonalFactor, &s.SeasonalFactor)
	nonNegativeFloat("data_generation.random_noise_factor", dg.RandomNoiseFactor, &s.RandomNoiseFactor)
	if dg.EndDate != nil && strings.TrimSpace(*dg.EndDate) != "" {
		end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(*dg.EndDate), time.UTC)
		if err != nil {
			diags = append(diags, diag("data_generation.end_date", "expected YYYY-MM-DD, got %q; using yesterday", *dg.EndDate))
		} else {
			s.EndDate = end
		}
	}

	po := fc.ProphetOptimization
	nonNegative("prophet_optimization.min_sales_days_per_sku", po.MinSalesDaysPerSKU, &s.MinSalesDaysPerSKU)
	nonNegative("prophet_optimization.min_total_units_per_sku", po.MinTotalUnitsPerSKU, &s.MinTotalUnitsPerSKU)
	flag(po.EnsureSKUDistribution, &s.EnsureSKUDistribution)
	flag(po.SKUPopularityWeights, &s.SKUPopularityWeights)

	ds := fc.Discounts
	flag(ds.EnableDiscounts, &s.EnableDiscounts)
	flag(ds.Renormalize, &s.RenormalizeDiscounts)
	if len(ds.DiscountRatioProbabilities) > 0 {
		table, tableDiags := parseDiscountTable(ds.DiscountRatioProbabilities)
		for _, d := range tableDiags {
			diags = append(diags, diag("discounts.discount_ratio_probabilities", "%s", d))
		}
		if len(table) > 0 {
			s.DiscountProbabilities = table
		}
	}

	qs := fc.QuantitySettings
	flag(qs.EnableQuantityVariety, &s.EnableQuantityVariety)
	minQty, maxQty := s.MinQuantity, s.MaxQuantity
	nonNegative("quantity_settings.min_quantity", qs.MinQuantity, &minQty)
	nonNegative("quantity_settings.max_quantity", qs.MaxQuantity, &maxQty)
	if maxQty < minQty {
		diags = append(diags, diag("quantity_settings", "max_quantity %d below min_quantity %d; keeping %d..%d", maxQty, minQty, s.MinQuantity, s.MaxQuantity))
	} else {
		s.MinQuantity, s.MaxQuantity = minQty, maxQty
	}

	return diags
}

// parseDiscountTable converts string ratio keys. Entries that do not parse or fall outside the
// valid domain are dropped with a message.
func parseDiscountTable(raw map[string]float64) (map[float64]float64, []string) {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	table := make(map[float64]float64, len(raw))
	var problems []string
	for _, key := range keys {
		ratio, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ratio %q is not a number; entry ignored", key))
			continue
		}
		prob := raw[key]
		if ratio < 0 || ratio > 1 || prob < 0 {
			problems = append(problems, fmt.Sprintf("entry %q=%v outside the valid range; entry ignored", key, prob))
			continue
		}
		table[ratio] = prob
	}
	if len(table) == 0 {
		problems = append(problems, "no valid entries; keeping defaults")
		return nil, problems
	}
	return table, problems
}
