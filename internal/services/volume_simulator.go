package services

import (
	"math"
	"math/rand"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
)

const (
	// MinDailyOrders and MaxDailyOrders bound the simulated daily order count.
	MinDailyOrders = 5
	MaxDailyOrders = 40

	autocorrelationWeight = 0.5
)

// VolumeSimulator computes how many orders a simulated day receives.
type VolumeSimulator struct {
	BaseDailyOrders int
	MonthlyGrowth   float64
	NoiseFactor     float64
}

// VolumeInput is the per-day context for DailyOrderCount.
type VolumeInput struct {
	Date       time.Time
	MonthIndex int
	Holidays   calendar.HolidaySet
	// PrevCount is the previous day's realised count; HasPrev is false after a skipped day.
	PrevCount int
	HasPrev   bool
	// SKUTrend is the daily drift rate of the day's representative SKU.
	SKUTrend float64
}

// DailyOrderCount combines compounding monthly growth, calendar factors, holiday spikes and
// linear drift, blends with the previous day, adds heteroskedastic Gaussian noise, then clamps
// to [MinDailyOrders, MaxDailyOrders] and truncates.
func (v VolumeSimulator) DailyOrderCount(rng *rand.Rand, in VolumeInput) int {
	date := in.Date
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	daysSinceJan1 := math.Floor(calendar.Day(date).Sub(jan1).Hours() / 24)
	drift := in.SKUTrend * daysSinceJan1

	monthly := math.Pow(1+v.MonthlyGrowth*uniform(rng, 0.92, 1.08), float64(in.MonthIndex))

	base := float64(v.BaseDailyOrders) *
		monthly *
		calendar.WeekendFactor(date) *
		calendar.SeasonalFactor(date) *
		calendar.WeekdayFactor(date) *
		calendar.MonthProgressFactor(date.Day()) *
		calendar.HolidayEventFactor(rng, date, in.Holidays)
	base += drift

	if in.HasPrev {
		base = autocorrelationWeight*base + (1-autocorrelationWeight)*float64(in.PrevCount)
	}

	noise := rng.NormFloat64() * v.NoiseFactor * math.Max(base, 1)
	value := base + noise
	value = math.Max(MinDailyOrders, math.Min(MaxDailyOrders, value))
	return int(value)
}
