package calendar

import (
	"math/rand"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSeasonalFactorStaysInBand(t *testing.T) {
	start := date(2024, 1, 1)
	for i := 0; i < 366; i++ {
		d := start.AddDate(0, 0, i)
		got := SeasonalFactor(d)
		if got < 0.8 || got > 1.3 {
			t.Fatalf("seasonal factor for %s out of band: %v", d.Format("2006-01-02"), got)
		}
	}
	if SeasonalFactor(date(2024, 12, 20)) <= SeasonalFactor(date(2024, 2, 15)) {
		t.Fatalf("expected December to outweigh February")
	}
}

func TestSeasonalFactorIsDeterministic(t *testing.T) {
	d := date(2025, 7, 4)
	if SeasonalFactor(d) != SeasonalFactor(d) {
		t.Fatalf("expected pure function")
	}
}

func TestWeekdayFactorWeekendHighest(t *testing.T) {
	// 2024-06-03 is a Monday.
	monday := date(2024, 6, 3)
	var weekdayMax float64
	for i := 0; i < 5; i++ {
		if v := WeekdayFactor(monday.AddDate(0, 0, i)); v > weekdayMax {
			weekdayMax = v
		}
	}
	sat := WeekdayFactor(monday.AddDate(0, 0, 5))
	sun := WeekdayFactor(monday.AddDate(0, 0, 6))
	if sat <= weekdayMax || sun <= weekdayMax {
		t.Fatalf("expected weekend factors above weekdays: sat=%v sun=%v weekday max=%v", sat, sun, weekdayMax)
	}
	if WeekdayFactor(monday.AddDate(0, 0, 2)) != 0.98 {
		t.Fatalf("unexpected wednesday factor")
	}
}

func TestWeekendHelpers(t *testing.T) {
	sat := date(2024, 6, 8)
	if !IsWeekend(sat) || WeekendFactor(sat) != WeekendMultiplier {
		t.Fatalf("expected saturday to be weekend")
	}
	if DayOfWeek(sat) != 5 {
		t.Fatalf("expected saturday=5, got %d", DayOfWeek(sat))
	}
	if DayOfWeek(date(2024, 6, 3)) != 0 {
		t.Fatalf("expected monday=0")
	}
	if IsWeekend(date(2024, 6, 7)) {
		t.Fatalf("friday is not a weekend")
	}
}

func TestMonthProgressFactor(t *testing.T) {
	cases := map[int]float64{1: 0.98, 10: 0.98, 11: 1.0, 20: 1.0, 21: 1.02, 31: 1.02}
	for day, want := range cases {
		if got := MonthProgressFactor(day); got != want {
			t.Fatalf("day %d: expected %v, got %v", day, want, got)
		}
	}
}

func TestHolidayEventFactorWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	set := NewHolidaySet(USFederalHolidays(2024)...)

	for _, d := range []time.Time{date(2024, 12, 24), date(2024, 12, 25), date(2024, 12, 26)} {
		got := HolidayEventFactor(rng, d, set)
		if got < 1.2 || got > 1.5 {
			t.Fatalf("expected christmas boost on %s, got %v", d.Format("2006-01-02"), got)
		}
	}
	if got := HolidayEventFactor(rng, date(2024, 3, 13), set); got != 1.0 {
		t.Fatalf("expected neutral factor, got %v", got)
	}
	if got := HolidayEventFactor(rng, date(2024, 12, 25), HolidaySet{}); got != 1.0 {
		t.Fatalf("expected neutral factor for empty set, got %v", got)
	}
}

func TestHolidayEventFactorThanksgivingWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := NewHolidaySet(USFederalHolidays(2022)...)
	// Thanksgiving 2022 fell on November 24.
	got := HolidayEventFactor(rng, date(2022, 11, 25), set)
	if got < 1.15 || got > 1.3 {
		t.Fatalf("expected thanksgiving boost, got %v", got)
	}
}

func TestHolidayEventFactorHalloweenNeedsListing(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	if got := HolidayEventFactor(rng, date(2024, 10, 31), NewHolidaySet(USFederalHolidays(2024)...)); got != 1.0 {
		t.Fatalf("halloween is not a federal holiday, got %v", got)
	}
	extra := NewHolidaySet(Holiday{Date: date(2024, 10, 31), Name: "Halloween"})
	got := HolidayEventFactor(rng, date(2024, 11, 1), extra)
	if got < 1.1 || got > 1.2 {
		t.Fatalf("expected halloween boost, got %v", got)
	}
}

func TestSeason(t *testing.T) {
	cases := map[time.Month]string{
		time.January: "winter", time.April: "spring", time.July: "summer", time.October: "fall", time.December: "winter",
	}
	for month, want := range cases {
		if got := Season(date(2024, month, 1)); got != want {
			t.Fatalf("%s: expected %s, got %s", month, want, got)
		}
	}
}
