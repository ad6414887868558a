package services

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/catalog"
	"github.com/hanko-field/ordersim/internal/domain"
)

// ErrCorrectorInfeasible marks SKUs whose day floor exceeds the distinct days the horizon offers.
var ErrCorrectorInfeasible = errors.New("distribution corrector: day floor exceeds horizon")

// SKUCoverage aggregates how often a SKU sold.
type SKUCoverage struct {
	SKU   string
	Units int
	Days  int
}

// SKUCorrection describes the orders injected for one deficient SKU.
type SKUCorrection struct {
	SKU           string
	UnitsBefore   int
	DaysBefore    int
	UnitDeficit   int
	DayDeficit    int
	OrdersAdded   int
	UnitsAdded    int
	DaysAdded     int
	Infeasible    bool
	AvailableDays int
}

// CorrectionReport summarises a corrector pass.
type CorrectionReport struct {
	Enabled       bool
	MinUnits      int
	MinDays       int
	SKUsChecked   int
	SKUsCorrected int
	OrdersAdded   int
	UnitsAdded    int
	Corrections   []SKUCorrection
	Infeasible    []string
}

// DistributionCorrectorDeps bundles collaborators for NewDistributionCorrector.
type DistributionCorrectorDeps struct {
	Catalog     *catalog.Catalog
	Synthesizer *OrderSynthesizer
	MinUnits    int
	MinDays     int
	Enabled     bool
	Logger      func(context.Context, string, map[string]any)
}

// DistributionCorrector appends focused orders until every SKU meets the unit and day floors.
type DistributionCorrector struct {
	catalog     *catalog.Catalog
	synthesizer *OrderSynthesizer
	minUnits    int
	minDays     int
	enabled     bool
	logger      func(context.Context, string, map[string]any)
}

// NewDistributionCorrector validates deps and returns a corrector.
func NewDistributionCorrector(deps DistributionCorrectorDeps) (*DistributionCorrector, error) {
	if deps.Catalog == nil {
		return nil, errors.New("distribution corrector: catalog is required")
	}
	if deps.Synthesizer == nil {
		return nil, errors.New("distribution corrector: synthesizer is required")
	}
	if deps.MinUnits < 0 || deps.MinDays < 0 {
		return nil, errors.New("distribution corrector: floors must be non-negative")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &DistributionCorrector{
		catalog:     deps.Catalog,
		synthesizer: deps.Synthesizer,
		minUnits:    deps.MinUnits,
		minDays:     deps.MinDays,
		enabled:     deps.Enabled,
		logger:      logger,
	}, nil
}

// Coverage aggregates units and distinct sale days per SKU.
func Coverage(orders []domain.SimulatedOrder) map[string]*SKUCoverage {
	coverage := make(map[string]*SKUCoverage)
	days := make(map[string]map[time.Time]struct{})
	for _, order := range orders {
		day := calendar.Day(order.CreatedAt)
		for _, line := range order.Lines {
			c, ok := coverage[line.SKU]
			if !ok {
				c = &SKUCoverage{SKU: line.SKU}
				coverage[line.SKU] = c
				days[line.SKU] = make(map[time.Time]struct{})
			}
			c.Units += line.Quantity
			days[line.SKU][day] = struct{}{}
		}
	}
	for sku, set := range days {
		coverage[sku].Days = len(set)
	}
	return coverage
}

// Correct returns orders with corrective orders appended. Existing orders are never modified.
// dates is the full list of simulated calendar days.
func (c *DistributionCorrector) Correct(ctx context.Context, rng *rand.Rand, state *SimulationState, orders []domain.SimulatedOrder, dates []time.Time) ([]domain.SimulatedOrder, CorrectionReport, error) {
	report := CorrectionReport{Enabled: c.enabled, MinUnits: c.minUnits, MinDays: c.minDays}
	if !c.enabled || len(dates) == 0 {
		return orders, report, nil
	}

	var maxID int64
	soldOn := make(map[string]map[time.Time]struct{})
	for _, order := range orders {
		if order.ID > maxID {
			maxID = order.ID
		}
		day := calendar.Day(order.CreatedAt)
		for _, line := range order.Lines {
			set, ok := soldOn[line.SKU]
			if !ok {
				set = make(map[time.Time]struct{})
				soldOn[line.SKU] = set
			}
			set[day] = struct{}{}
		}
	}
	state.Orders.ResumeAfter(maxID)

	coverage := Coverage(orders)
	perOrderCap := c.synthesizer.Quantities().UpperBound()
	out := orders

	for i := 0; i < c.catalog.Len(); i++ {
		product := c.catalog.At(i)
		report.SKUsChecked++

		var units, days int
		if cov, ok := coverage[product.SKU]; ok {
			units, days = cov.Units, cov.Days
		}
		unitDeficit := maxInt(0, c.minUnits-units)
		dayDeficit := maxInt(0, c.minDays-days)
		if unitDeficit == 0 && dayDeficit == 0 {
			continue
		}

		fresh := unsoldDates(dates, soldOn[product.SKU])
		correction := SKUCorrection{
			SKU:           product.SKU,
			UnitsBefore:   units,
			DaysBefore:    days,
			UnitDeficit:   unitDeficit,
			DayDeficit:    dayDeficit,
			AvailableDays: len(fresh),
		}

		take := dayDeficit
		if take > len(fresh) {
			take = len(fresh)
			correction.Infeasible = true
			report.Infeasible = append(report.Infeasible, product.SKU)
			c.logger(ctx, "corrector_day_floor_infeasible", map[string]any{
				"sku":       product.SKU,
				"needed":    dayDeficit,
				"available": len(fresh),
				"error":     ErrCorrectorInfeasible.Error(),
			})
		}
		selected := sampleDates(rng, fresh, take)
		correction.DaysAdded = len(selected)

		// Every order stays within the quantity cap, so large unit deficits need extra orders.
		minOrders := (unitDeficit + perOrderCap - 1) / perOrderCap
		for len(selected) < minOrders {
			selected = append(selected, dates[rng.Intn(len(dates))])
		}
		sort.Slice(selected, func(a, b int) bool { return selected[a].Before(selected[b]) })

		quantities := spreadUnits(unitDeficit, len(selected))
		for k, date := range selected {
			order, err := c.synthesizer.SynthesizeFocused(ctx, rng, state, product, date, quantities[k])
			if err != nil {
				return out, report, err
			}
			out = append(out, order)
			correction.OrdersAdded++
			correction.UnitsAdded += quantities[k]
		}

		report.SKUsCorrected++
		report.OrdersAdded += correction.OrdersAdded
		report.UnitsAdded += correction.UnitsAdded
		report.Corrections = append(report.Corrections, correction)
	}

	c.logger(ctx, "corrector_completed", map[string]any{
		"skusChecked":   report.SKUsChecked,
		"skusCorrected": report.SKUsCorrected,
		"ordersAdded":   report.OrdersAdded,
		"unitsAdded":    report.UnitsAdded,
		"infeasible":    len(report.Infeasible),
	})
	return out, report, nil
}

func unsoldDates(dates []time.Time, sold map[time.Time]struct{}) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if _, ok := sold[calendar.Day(d)]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}

// sampleDates picks k distinct dates uniformly without replacement.
func sampleDates(rng *rand.Rand, dates []time.Time, k int) []time.Time {
	if k <= 0 {
		return nil
	}
	perm := rng.Perm(len(dates))
	out := make([]time.Time, 0, k)
	for _, idx := range perm[:k] {
		out = append(out, dates[idx])
	}
	return out
}

// spreadUnits splits units evenly across n orders, each receiving at least one.
func spreadUnits(units, n int) []int {
	if n <= 0 {
		return nil
	}
	weights := make([]int64, n)
	shares := allocateByWeight(int64(units), weights)
	out := make([]int, n)
	for i, share := range shares {
		out[i] = maxInt(1, int(share))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
