package services

import (
	"math"
	"sort"

	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	// DefaultSmoothingWindow is the centered moving-average window in days.
	DefaultSmoothingWindow = 7
	// DefaultMaxDailyChange bounds the day-over-day change of a smoothed series.
	DefaultMaxDailyChange = 2.0
	// DefaultOutlierK is the IQR multiplier of the upper outlier fence.
	DefaultOutlierK = 1.5
	// ZeroedWarningPercent is the share of non-zero days zeroed above which smoothing is suspicious.
	ZeroedWarningPercent = 5.0
)

// SmoothingOptions configures SmoothDailySeries. Zero values select the defaults.
type SmoothingOptions struct {
	Window         int
	MaxDailyChange float64
	OutlierK       float64
}

func (o SmoothingOptions) withDefaults() SmoothingOptions {
	if o.Window <= 0 {
		o.Window = DefaultSmoothingWindow
	}
	if o.MaxDailyChange <= 0 {
		o.MaxDailyChange = DefaultMaxDailyChange
	}
	if o.OutlierK <= 0 {
		o.OutlierK = DefaultOutlierK
	}
	return o
}

// SmoothingReport summarises how much a smoothing pass flattened the series.
type SmoothingReport struct {
	NonZeroDays   int
	ZeroedDays    int
	ZeroedPercent float64
	CappedDays    int
}

// Excessive reports whether smoothing zeroed more non-zero days than ZeroedWarningPercent allows.
func (r SmoothingReport) Excessive() bool {
	return r.ZeroedPercent > ZeroedWarningPercent
}

// SmoothDailySeries returns a copy of points with each SKU's units smoothed: upper outliers are
// capped at Q3 + k·IQR, a centered moving average is applied, day-over-day changes are bounded,
// and values are rounded half to even. Points must be grouped by SKU and ordered by date, as
// BuildDailySeries returns them. Orders and discount means are left untouched.
func SmoothDailySeries(points []domain.DailyPoint, opts SmoothingOptions) ([]domain.DailyPoint, SmoothingReport) {
	opts = opts.withDefaults()
	out := append([]domain.DailyPoint(nil), points...)
	var report SmoothingReport

	for start := 0; start < len(out); {
		end := start
		for end < len(out) && out[end].SKU == out[start].SKU {
			end++
		}
		values := make([]float64, end-start)
		for i := range values {
			values[i] = float64(out[start+i].Units)
		}
		smoothed, capped := smoothSeries(values, opts)
		report.CappedDays += capped
		for i, v := range smoothed {
			before := out[start+i].Units
			if before > 0 {
				report.NonZeroDays++
				if v == 0 {
					report.ZeroedDays++
				}
			}
			out[start+i].Units = v
		}
		start = end
	}
	if report.NonZeroDays > 0 {
		report.ZeroedPercent = 100 * float64(report.ZeroedDays) / float64(report.NonZeroDays)
	}
	return out, report
}

func smoothSeries(values []float64, opts SmoothingOptions) ([]int, int) {
	if len(values) == 0 {
		return nil, 0
	}
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	fence := q3 + opts.OutlierK*(q3-q1)
	capped := make([]float64, len(values))
	cappedDays := 0
	for i, v := range values {
		if v > fence {
			v = fence
			cappedDays++
		}
		capped[i] = v
	}

	averaged := centeredMean(capped, opts.Window)

	out := make([]int, len(averaged))
	prev := averaged[0]
	for i, v := range averaged {
		if i > 0 {
			v = math.Max(math.Min(v, prev+opts.MaxDailyChange), prev-opts.MaxDailyChange)
		}
		prev = v
		rounded := int(math.RoundToEven(v))
		if rounded < 0 {
			rounded = 0
		}
		out[i] = rounded
	}
	return out, cappedDays
}

// centeredMean is a moving average over a centered window that shrinks at the edges.
func centeredMean(values []float64, window int) []float64 {
	before := (window - 1) / 2
	after := window - 1 - before
	if window%2 == 0 {
		before, after = window/2, window/2-1
	}
	out := make([]float64, len(values))
	for i := range values {
		lo := i - before
		if lo < 0 {
			lo = 0
		}
		hi := i + after
		if hi > len(values)-1 {
			hi = len(values) - 1
		}
		sum := 0.0
		for _, v := range values[lo : hi+1] {
			sum += v
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// quantile uses linear interpolation between the closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
