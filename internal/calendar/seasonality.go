package calendar

import (
	"math"
	"math/rand"
	"time"
)

// WeekendMultiplier is the flat boost applied to Saturday and Sunday volume.
const WeekendMultiplier = 1.18

var monthMultipliers = [13]float64{
	0,
	1.10, // January
	0.92, // February
	0.97,
	1.05,
	1.03,
	0.98,
	1.04,
	1.00,
	1.02,
	1.08,
	1.13,
	1.18, // December
}

var weekdayMultipliers = map[time.Weekday]float64{
	time.Monday:    1.0,
	time.Tuesday:   1.02,
	time.Wednesday: 0.98,
	time.Thursday:  1.0,
	time.Friday:    1.05,
	time.Saturday:  1.18,
	time.Sunday:    1.12,
}

// eventBoost is a multiplier range applied around a specific calendar day.
type eventBoost struct {
	month time.Month
	days  []int
	min   float64
	max   float64
}

var eventBoosts = []eventBoost{
	{month: time.December, days: []int{24, 25}, min: 1.2, max: 1.5},
	{month: time.November, days: []int{24, 25, 26}, min: 1.15, max: 1.3},
	{month: time.October, days: []int{31}, min: 1.1, max: 1.2},
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DayOfWeek returns the weekday numbered Monday=0 through Sunday=6.
func DayOfWeek(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// SeasonalFactor blends the fixed month table with a smooth yearly sine so month boundaries do not jump.
func SeasonalFactor(date time.Time) float64 {
	base := monthMultipliers[date.Month()]
	yearly := 1 + 0.12*math.Sin(2*math.Pi*float64(date.YearDay())/365.25+math.Pi/2)
	return (base + yearly) / 2
}

// WeekdayFactor returns the fine-grained per-weekday multiplier.
func WeekdayFactor(date time.Time) float64 {
	if v, ok := weekdayMultipliers[date.Weekday()]; ok {
		return v
	}
	return 1.0
}

// WeekendFactor returns WeekendMultiplier on weekends and 1 otherwise.
func WeekendFactor(date time.Time) float64 {
	if IsWeekend(date) {
		return WeekendMultiplier
	}
	return 1.0
}

// MonthProgressFactor is lower in the first ten days of a month and higher after the twentieth.
func MonthProgressFactor(dayOfMonth int) float64 {
	switch {
	case dayOfMonth <= 10:
		return 0.98
	case dayOfMonth <= 20:
		return 1.0
	default:
		return 1.02
	}
}

// HolidayEventFactor returns a boost ≥1 when a boosted holiday in the set lies within one day of date.
// The magnitude is drawn from rng each call; overlapping windows keep the largest draw.
func HolidayEventFactor(rng *rand.Rand, date time.Time, holidays HolidaySet) float64 {
	factor := 1.0
	if holidays.Len() == 0 {
		return factor
	}
	for offset := -1; offset <= 1; offset++ {
		event := Day(date).AddDate(0, 0, offset)
		if !holidays.Contains(event) {
			continue
		}
		for _, boost := range eventBoosts {
			if event.Month() != boost.month || !containsDay(boost.days, event.Day()) {
				continue
			}
			v := boost.min + rng.Float64()*(boost.max-boost.min)
			if v > factor {
				factor = v
			}
			break
		}
	}
	return factor
}

// Season names the meteorological season of the date.
func Season(date time.Time) string {
	switch date.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "fall"
	}
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
