package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/catalog"
	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	daysPerSimulatedMonth = 30
	skipDayProbability    = 0.02
	zeroDayProbability    = 0.02
	refundProbability     = 0.01
	minSKUTrend           = -0.02
	maxSKUTrend           = 0.04
)

// RunObserver receives phase and volume signals from a run. Implementations typically wrap tracing
// and metrics.
type RunObserver interface {
	StartPhase(ctx context.Context, phase string) (context.Context, func(error))
	RecordOrders(ctx context.Context, origin domain.OrderOrigin, orders, lineItems int)
}

type noopObserver struct{}

func (noopObserver) StartPhase(ctx context.Context, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (noopObserver) RecordOrders(context.Context, domain.OrderOrigin, int, int) {}

// GeneratorDeps bundles collaborators for NewGenerator.
type GeneratorDeps struct {
	Settings SimulationSettings
	// Catalog overrides the catalog built from Settings.NumberOfSKUs.
	Catalog  *catalog.Catalog
	Holidays calendar.HolidayProvider
	Clock    func() time.Time
	Observer RunObserver
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// Generator drives a complete simulation: day-by-day orders followed by the distribution correction.
type Generator struct {
	settings SimulationSettings
	catalog  *catalog.Catalog
	holidays calendar.HolidayProvider
	clock    func() time.Time
	observer RunObserver
	logger   func(context.Context, string, map[string]any)
	seed     int64
}

// RunStats counts what happened during a run.
type RunStats struct {
	Days              int
	SkippedDays       int
	ForcedZeroDays    int
	SimulatedOrders   int
	CorrectiveOrders  int
	RefundedOrders    int
	LineItems         int
	Units             int
	Stockouts         int
	SamplingFallbacks int
}

// DailyVolume records the order count realised for one simulated day.
type DailyVolume struct {
	Date       time.Time
	Orders     int
	Skipped    bool
	ForcedZero bool
	MonthIndex int
	RepSKU     string
}

// Result is the immutable output of a run.
type Result struct {
	Seed                int64
	Start               time.Time
	End                 time.Time
	Horizon             catalog.Horizon
	Dates               []time.Time
	Catalog             *catalog.Catalog
	Holidays            calendar.HolidaySet
	Orders              []domain.SimulatedOrder
	Volumes             []DailyVolume
	Correction          CorrectionReport
	Stats               RunStats
	SKUTrends           map[string]float64
	RecentQuantityMeans map[string]float64
	DiscountWarning     string
}

// NewGenerator validates settings and wires defaults. A zero seed is replaced by a clock-derived one,
// which Result.Seed reports so the run can be reproduced.
func NewGenerator(deps GeneratorDeps) (*Generator, error) {
	if err := deps.Settings.Validate(); err != nil {
		return nil, err
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	holidays := deps.Holidays
	if holidays == nil {
		holidays = calendar.FederalCalendar{}
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	seed := deps.Settings.Seed
	if seed == 0 {
		seed = clock().UnixNano()
	}
	return &Generator{
		settings: deps.Settings,
		catalog:  deps.Catalog,
		holidays: holidays,
		clock: func() time.Time {
			return clock().UTC()
		},
		observer: observer,
		logger:   logger,
		seed:     seed,
	}, nil
}

// Seed returns the seed every Run uses.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Range returns the inclusive first and last simulated days.
func (g *Generator) Range() (time.Time, time.Time) {
	end := g.settings.EndDate
	if end.IsZero() {
		end = g.clock().AddDate(0, 0, -1)
	}
	end = calendar.Day(end)
	start := end.AddDate(0, 0, -daysPerSimulatedMonth*g.settings.NumberOfMonths)
	return start, end
}

// Run executes the simulation. Each call starts from a fresh generator seeded with Seed, so
// repeated calls return identical results. Collaborator failures degrade gracefully; only internal
// invariant violations return an error.
func (g *Generator) Run(ctx context.Context) (result Result, err error) {
	ctx, finish := g.observer.StartPhase(ctx, "generate")
	defer func() { finish(err) }()

	rng := rand.New(rand.NewSource(g.seed))
	start, end := g.Range()
	horizon := catalog.Horizon{Start: start, Days: daysPerSimulatedMonth * g.settings.NumberOfMonths}

	cat := g.catalog
	if cat == nil {
		cat, err = catalog.Build(rng, g.settings.NumberOfSKUs)
		if err != nil {
			return Result{}, err
		}
	}

	holidays, herr := g.holidays.Holidays(ctx, start, end)
	if herr != nil {
		g.logger(ctx, "holiday_calendar_unavailable", map[string]any{"error": herr.Error()})
		holidays = calendar.NewHolidaySet()
	}

	discounts, warning := g.discountModel(ctx)
	customers, cerr := NewCustomerPool(g.settings.Countries)
	if cerr != nil {
		g.logger(ctx, "customer_pool_defaulted", map[string]any{"error": cerr.Error()})
		customers = NewDefaultCustomerPool()
	}

	synth, err := NewOrderSynthesizer(OrderSynthesizerDeps{
		Catalog:   cat,
		Horizon:   horizon,
		Holidays:  holidays,
		Discounts: discounts,
		Quantities: QuantityModel{
			Variety:     g.settings.EnableQuantityVariety,
			Min:         g.settings.MinQuantity,
			Max:         g.settings.MaxQuantity,
			NoiseFactor: g.settings.RandomNoiseFactor,
		},
		Customers:         customers,
		PopularityWeights: g.settings.SKUPopularityWeights,
		Logger:            g.logger,
	})
	if err != nil {
		return Result{}, err
	}
	corrector, err := NewDistributionCorrector(DistributionCorrectorDeps{
		Catalog:     cat,
		Synthesizer: synth,
		MinUnits:    g.settings.MinTotalUnitsPerSKU,
		MinDays:     g.settings.MinSalesDaysPerSKU,
		Enabled:     g.settings.EnsureSKUDistribution,
		Logger:      g.logger,
	})
	if err != nil {
		return Result{}, err
	}

	result = Result{
		Seed:            g.seed,
		Start:           start,
		End:             end,
		Horizon:         horizon,
		Catalog:         cat,
		Holidays:        holidays,
		SKUTrends:       make(map[string]float64, cat.Len()),
		DiscountWarning: warning,
	}
	for i := 0; i < cat.Len(); i++ {
		result.SKUTrends[cat.At(i).SKU] = uniform(rng, minSKUTrend, maxSKUTrend)
	}

	state := NewSimulationState(FirstOrderID, DefaultHistoryWindow)
	state.Begin(start)

	if err := g.simulate(ctx, rng, state, synth, &result); err != nil {
		return Result{}, err
	}

	phaseCtx, endCorrect := g.observer.StartPhase(ctx, "correct")
	before := len(result.Orders)
	orders, report, cerr := corrector.Correct(phaseCtx, rng, state, result.Orders, result.Dates)
	endCorrect(cerr)
	if cerr != nil {
		return Result{}, cerr
	}
	added := orders[before:]
	result.Orders = orders
	result.Correction = report
	result.Stats.CorrectiveOrders = len(added)
	g.observer.RecordOrders(ctx, domain.OriginCorrective, len(added), countLines(added))

	stats := synth.Stats()
	result.Stats.LineItems = stats.LineItems
	result.Stats.Units = stats.Units
	result.Stats.Stockouts = stats.Stockouts
	result.Stats.SamplingFallbacks = stats.SamplingFallbacks
	result.RecentQuantityMeans = state.RecentQuantityMeans()

	g.logger(ctx, "generation_completed", map[string]any{
		"seed":             g.seed,
		"start":            start.Format("2006-01-02"),
		"end":              end.Format("2006-01-02"),
		"days":             result.Stats.Days,
		"skippedDays":      result.Stats.SkippedDays,
		"simulatedOrders":  result.Stats.SimulatedOrders,
		"correctiveOrders": result.Stats.CorrectiveOrders,
		"refundedOrders":   result.Stats.RefundedOrders,
		"lineItems":        result.Stats.LineItems,
	})
	return result, nil
}

func (g *Generator) simulate(ctx context.Context, rng *rand.Rand, state *SimulationState, synth *OrderSynthesizer, result *Result) (err error) {
	ctx, finish := g.observer.StartPhase(ctx, "simulate")
	defer func() { finish(err) }()

	volume := VolumeSimulator{
		BaseDailyOrders: g.settings.BaseDailyOrders,
		MonthlyGrowth:   g.settings.AverageMonthlyGrowth,
		NoiseFactor:     g.settings.RandomNoiseFactor,
	}

	for day := result.Start; !day.After(result.End); day = day.AddDate(0, 0, 1) {
		result.Dates = append(result.Dates, day)
		result.Stats.Days++

		if rng.Float64() < skipDayProbability {
			state.ResetAutocorrelation()
			result.Stats.SkippedDays++
			result.Volumes = append(result.Volumes, DailyVolume{Date: day, Skipped: true, MonthIndex: state.MonthIndex()})
			continue
		}

		monthIndex := state.AdvanceTo(day)
		rep := result.Catalog.At(rng.Intn(result.Catalog.Len()))
		prev, hasPrev := state.PrevDailyCount()
		count := volume.DailyOrderCount(rng, VolumeInput{
			Date:       day,
			MonthIndex: monthIndex,
			Holidays:   result.Holidays,
			PrevCount:  prev,
			HasPrev:    hasPrev,
			SKUTrend:   result.SKUTrends[rep.SKU],
		})
		forcedZero := false
		if rng.Float64() < zeroDayProbability {
			count = 0
			forcedZero = true
			result.Stats.ForcedZeroDays++
		}
		state.RecordDailyCount(count)
		result.Volumes = append(result.Volumes, DailyVolume{
			Date:       day,
			Orders:     count,
			ForcedZero: forcedZero,
			MonthIndex: monthIndex,
			RepSKU:     rep.SKU,
		})

		lines := 0
		for i := 0; i < count; i++ {
			order, err := synth.Synthesize(ctx, rng, state, day)
			if err != nil {
				return err
			}
			if rng.Float64() < refundProbability {
				order.FinancialStatus = domain.FinancialStatusRefunded
				order.Total = 0
				result.Stats.RefundedOrders++
			}
			lines += len(order.Lines)
			result.Orders = append(result.Orders, order)
		}
		result.Stats.SimulatedOrders += count
		g.observer.RecordOrders(ctx, domain.OriginSimulated, count, lines)
	}
	return nil
}

func (g *Generator) discountModel(ctx context.Context) (*DiscountModel, string) {
	table, err := NewDiscountTable(g.settings.DiscountProbabilities)
	if err != nil {
		g.logger(ctx, "discount_table_defaulted", map[string]any{"error": err.Error()})
		table, _ = NewDiscountTable(DefaultDiscountProbabilities())
	}
	warning := ""
	if verr := table.Validate(); verr != nil {
		warning = verr.Error()
		g.logger(ctx, "discount_table_sum_warning", map[string]any{
			"sum":         table.Sum(),
			"renormalize": g.settings.RenormalizeDiscounts,
			"error":       verr.Error(),
		})
		if g.settings.RenormalizeDiscounts && errors.Is(verr, ErrDiscountDistribution) {
			table = table.Normalized()
		}
	}
	return NewDiscountModel(table, g.settings.EnableDiscounts), warning
}

func countLines(orders []domain.SimulatedOrder) int {
	total := 0
	for _, o := range orders {
		total += len(o.Lines)
	}
	return total
}
