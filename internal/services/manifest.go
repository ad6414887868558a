package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hanko-field/ordersim/internal/domain"
)

const manifestDateLayout = "2006-01-02"

// Artifact is one file produced by a run.
type Artifact struct {
	Name        string `json:"name" firestore:"name"`
	Format      string `json:"format" firestore:"format"`
	ContentType string `json:"contentType" firestore:"contentType"`
	Path        string `json:"path,omitempty" firestore:"path,omitempty"`
	URI         string `json:"uri,omitempty" firestore:"uri,omitempty"`
	Size        int64  `json:"size" firestore:"size"`
	SHA256      string `json:"sha256" firestore:"sha256"`
}

// DiscountWeight is one entry of the discount distribution snapshot.
type DiscountWeight struct {
	Ratio       float64 `json:"ratio" firestore:"ratio"`
	Probability float64 `json:"probability" firestore:"probability"`
}

// SettingsSnapshot records the parameters a run used.
type SettingsSnapshot struct {
	NumberOfSKUs          int              `json:"numberOfSkus" firestore:"numberOfSkus"`
	NumberOfMonths        int              `json:"numberOfMonths" firestore:"numberOfMonths"`
	AverageMonthlyGrowth  float64          `json:"averageMonthlyGrowth" firestore:"averageMonthlyGrowth"`
	WeekendBoostFactor    float64          `json:"weekendBoostFactor" firestore:"weekendBoostFactor"`
	BaseDailyOrders       int              `json:"baseDailyOrders" firestore:"baseDailyOrders"`
	SeasonalFactor        float64          `json:"seasonalFactor" firestore:"seasonalFactor"`
	RandomNoiseFactor     float64          `json:"randomNoiseFactor" firestore:"randomNoiseFactor"`
	MinSalesDaysPerSKU    int              `json:"minSalesDaysPerSku" firestore:"minSalesDaysPerSku"`
	MinTotalUnitsPerSKU   int              `json:"minTotalUnitsPerSku" firestore:"minTotalUnitsPerSku"`
	EnsureSKUDistribution bool             `json:"ensureSkuDistribution" firestore:"ensureSkuDistribution"`
	SKUPopularityWeights  bool             `json:"skuPopularityWeights" firestore:"skuPopularityWeights"`
	EnableDiscounts       bool             `json:"enableDiscounts" firestore:"enableDiscounts"`
	Discounts             []DiscountWeight `json:"discounts" firestore:"discounts"`
	EnableQuantityVariety bool             `json:"enableQuantityVariety" firestore:"enableQuantityVariety"`
	MinQuantity           int              `json:"minQuantity" firestore:"minQuantity"`
	MaxQuantity           int              `json:"maxQuantity" firestore:"maxQuantity"`
}

// ManifestCounts are the headline totals of a run.
type ManifestCounts struct {
	Days             int `json:"days" firestore:"days"`
	SkippedDays      int `json:"skippedDays" firestore:"skippedDays"`
	Orders           int `json:"orders" firestore:"orders"`
	SimulatedOrders  int `json:"simulatedOrders" firestore:"simulatedOrders"`
	CorrectiveOrders int `json:"correctiveOrders" firestore:"correctiveOrders"`
	RefundedOrders   int `json:"refundedOrders" firestore:"refundedOrders"`
	LineItems        int `json:"lineItems" firestore:"lineItems"`
	Units            int `json:"units" firestore:"units"`
	StockoutLines    int `json:"stockoutLines" firestore:"stockoutLines"`
	DailyPoints      int `json:"dailyPoints" firestore:"dailyPoints"`
}

// SKUTotal is the per-SKU coverage after correction.
type SKUTotal struct {
	SKU   string `json:"sku" firestore:"sku"`
	Units int    `json:"units" firestore:"units"`
	Days  int    `json:"days" firestore:"days"`
}

// ManifestCorrection summarises the corrector pass.
type ManifestCorrection struct {
	Enabled       bool     `json:"enabled" firestore:"enabled"`
	SKUsChecked   int      `json:"skusChecked" firestore:"skusChecked"`
	SKUsCorrected int      `json:"skusCorrected" firestore:"skusCorrected"`
	OrdersAdded   int      `json:"ordersAdded" firestore:"ordersAdded"`
	UnitsAdded    int      `json:"unitsAdded" firestore:"unitsAdded"`
	Infeasible    []string `json:"infeasible,omitempty" firestore:"infeasible,omitempty"`
}

// ManifestSmoothing summarises the optional smoothing pass.
type ManifestSmoothing struct {
	ZeroedPercent float64 `json:"zeroedPercent" firestore:"zeroedPercent"`
	CappedDays    int     `json:"cappedDays" firestore:"cappedDays"`
	Excessive     bool    `json:"excessive" firestore:"excessive"`
}

// RunManifest describes a generated dataset. It is written next to the artifacts, stored as the
// run record and summarised in the completion event.
type RunManifest struct {
	RunID           string             `json:"runId" firestore:"runId"`
	Seed            int64              `json:"seed" firestore:"seed"`
	CreatedAt       time.Time          `json:"createdAt" firestore:"createdAt"`
	StartDate       string             `json:"startDate" firestore:"startDate"`
	EndDate         string             `json:"endDate" firestore:"endDate"`
	Settings        SettingsSnapshot   `json:"settings" firestore:"settings"`
	Counts          ManifestCounts     `json:"counts" firestore:"counts"`
	SKUs            []SKUTotal         `json:"skus" firestore:"skus"`
	Correction      ManifestCorrection `json:"correction" firestore:"correction"`
	Smoothing       *ManifestSmoothing `json:"smoothing,omitempty" firestore:"smoothing,omitempty"`
	DiscountWarning string             `json:"discountWarning,omitempty" firestore:"discountWarning,omitempty"`
	Artifacts       []Artifact         `json:"artifacts" firestore:"artifacts"`
	Signature       string             `json:"signature,omitempty" firestore:"signature,omitempty"`
}

// CanonicalJSON returns the manifest encoding that signatures cover: the manifest with its
// signature cleared.
func (m RunManifest) CanonicalJSON() ([]byte, error) {
	m.Signature = ""
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return data, nil
}

// BuildManifest derives the manifest of a run. Artifacts and signature are filled in later.
func BuildManifest(runID string, createdAt time.Time, settings SimulationSettings, result Result, daily []domain.DailyPoint, smoothing *SmoothingReport) RunManifest {
	manifest := RunManifest{
		RunID:           runID,
		Seed:            result.Seed,
		CreatedAt:       createdAt.UTC(),
		StartDate:       result.Start.Format(manifestDateLayout),
		EndDate:         result.End.Format(manifestDateLayout),
		Settings:        snapshotSettings(settings),
		DiscountWarning: result.DiscountWarning,
		Correction: ManifestCorrection{
			Enabled:       result.Correction.Enabled,
			SKUsChecked:   result.Correction.SKUsChecked,
			SKUsCorrected: result.Correction.SKUsCorrected,
			OrdersAdded:   result.Correction.OrdersAdded,
			UnitsAdded:    result.Correction.UnitsAdded,
			Infeasible:    append([]string(nil), result.Correction.Infeasible...),
		},
		Artifacts: []Artifact{},
	}

	counts := ManifestCounts{
		Days:             result.Stats.Days,
		SkippedDays:      result.Stats.SkippedDays,
		Orders:           len(result.Orders),
		SimulatedOrders:  result.Stats.SimulatedOrders,
		CorrectiveOrders: result.Stats.CorrectiveOrders,
		RefundedOrders:   result.Stats.RefundedOrders,
		DailyPoints:      len(daily),
	}
	for _, order := range result.Orders {
		counts.LineItems += len(order.Lines)
		counts.Units += order.Units()
		for _, line := range order.Lines {
			if line.Stockout {
				counts.StockoutLines++
			}
		}
	}
	manifest.Counts = counts

	coverage := Coverage(result.Orders)
	if result.Catalog != nil {
		for _, product := range result.Catalog.Products() {
			total := SKUTotal{SKU: product.SKU}
			if c, ok := coverage[product.SKU]; ok {
				total.Units, total.Days = c.Units, c.Days
			}
			manifest.SKUs = append(manifest.SKUs, total)
		}
	} else {
		for _, c := range coverage {
			manifest.SKUs = append(manifest.SKUs, SKUTotal{SKU: c.SKU, Units: c.Units, Days: c.Days})
		}
		sort.Slice(manifest.SKUs, func(i, j int) bool { return manifest.SKUs[i].SKU < manifest.SKUs[j].SKU })
	}

	if smoothing != nil {
		manifest.Smoothing = &ManifestSmoothing{
			ZeroedPercent: smoothing.ZeroedPercent,
			CappedDays:    smoothing.CappedDays,
			Excessive:     smoothing.Excessive(),
		}
	}
	return manifest
}

func snapshotSettings(s SimulationSettings) SettingsSnapshot {
	snapshot := SettingsSnapshot{
		NumberOfSKUs:          s.NumberOfSKUs,
		NumberOfMonths:        s.NumberOfMonths,
		AverageMonthlyGrowth:  s.AverageMonthlyGrowth,
		WeekendBoostFactor:    s.WeekendBoostFactor,
		BaseDailyOrders:       s.BaseDailyOrders,
		SeasonalFactor:        s.SeasonalFactor,
		RandomNoiseFactor:     s.RandomNoiseFactor,
		MinSalesDaysPerSKU:    s.MinSalesDaysPerSKU,
		MinTotalUnitsPerSKU:   s.MinTotalUnitsPerSKU,
		EnsureSKUDistribution: s.EnsureSKUDistribution,
		SKUPopularityWeights:  s.SKUPopularityWeights,
		EnableDiscounts:       s.EnableDiscounts,
		EnableQuantityVariety: s.EnableQuantityVariety,
		MinQuantity:           s.MinQuantity,
		MaxQuantity:           s.MaxQuantity,
	}
	ratios := make([]float64, 0, len(s.DiscountProbabilities))
	for ratio := range s.DiscountProbabilities {
		ratios = append(ratios, ratio)
	}
	sort.Float64s(ratios)
	for _, ratio := range ratios {
		snapshot.Discounts = append(snapshot.Discounts, DiscountWeight{Ratio: ratio, Probability: s.DiscountProbabilities[ratio]})
	}
	return snapshot
}
