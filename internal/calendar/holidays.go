package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const dateKeyLayout = "2006-01-02"

// Holiday is a named calendar date.
type Holiday struct {
	Date time.Time
	Name string
}

// HolidaySet is an immutable lookup of holiday dates.
type HolidaySet struct {
	names map[string]string
}

// NewHolidaySet indexes the provided holidays by calendar date. Later duplicates keep the first name.
func NewHolidaySet(holidays ...Holiday) HolidaySet {
	names := make(map[string]string, len(holidays))
	for _, h := range holidays {
		key := Day(h.Date).Format(dateKeyLayout)
		if _, exists := names[key]; exists {
			continue
		}
		names[key] = h.Name
	}
	return HolidaySet{names: names}
}

// Contains reports whether date is a holiday.
func (s HolidaySet) Contains(date time.Time) bool {
	_, ok := s.names[Day(date).Format(dateKeyLayout)]
	return ok
}

// Name returns the holiday name for date.
func (s HolidaySet) Name(date time.Time) (string, bool) {
	name, ok := s.names[Day(date).Format(dateKeyLayout)]
	return name, ok
}

// Len returns the number of holiday dates.
func (s HolidaySet) Len() int {
	return len(s.names)
}

// List returns the holidays in chronological order.
func (s HolidaySet) List() []Holiday {
	out := make([]Holiday, 0, len(s.names))
	for key, name := range s.names {
		date, err := time.Parse(dateKeyLayout, key)
		if err != nil {
			continue
		}
		out = append(out, Holiday{Date: date, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// HolidayProvider resolves the holiday calendar for a date range.
type HolidayProvider interface {
	Holidays(ctx context.Context, from, to time.Time) (HolidaySet, error)
}

// FederalCalendar computes United States federal holidays, including observed weekday substitutes,
// plus any extra dates configured by the operator.
type FederalCalendar struct {
	Extra []Holiday
}

// NewHolidayProvider returns the provider for a country code. Only "US" is supported.
func NewHolidayProvider(country string, extra []Holiday) (HolidayProvider, error) {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "", "US":
		return FederalCalendar{Extra: extra}, nil
	default:
		return nil, fmt.Errorf("calendar: unsupported holiday country %q", country)
	}
}

// Holidays returns every holiday in the years spanned by [from, to].
func (c FederalCalendar) Holidays(ctx context.Context, from, to time.Time) (HolidaySet, error) {
	if err := ctx.Err(); err != nil {
		return HolidaySet{}, err
	}
	if to.Before(from) {
		return HolidaySet{}, fmt.Errorf("calendar: range end %s before start %s", to.Format(dateKeyLayout), from.Format(dateKeyLayout))
	}
	var all []Holiday
	for year := from.Year(); year <= to.Year(); year++ {
		all = append(all, USFederalHolidays(year)...)
	}
	for _, h := range c.Extra {
		if h.Date.Year() >= from.Year() && h.Date.Year() <= to.Year() {
			all = append(all, h)
		}
	}
	return NewHolidaySet(all...), nil
}

// USFederalHolidays lists the federal holidays of a year with their observed substitutes.
func USFederalHolidays(year int) []Holiday {
	fixed := func(m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, time.UTC) }

	holidays := []Holiday{
		{Date: fixed(time.January, 1), Name: "New Year's Day"},
		{Date: nthWeekday(year, time.January, time.Monday, 3), Name: "Martin Luther King Jr. Day"},
		{Date: nthWeekday(year, time.February, time.Monday, 3), Name: "Washington's Birthday"},
		{Date: lastWeekday(year, time.May, time.Monday), Name: "Memorial Day"},
		{Date: fixed(time.July, 4), Name: "Independence Day"},
		{Date: nthWeekday(year, time.September, time.Monday, 1), Name: "Labor Day"},
		{Date: nthWeekday(year, time.October, time.Monday, 2), Name: "Columbus Day"},
		{Date: fixed(time.November, 11), Name: "Veterans Day"},
		{Date: nthWeekday(year, time.November, time.Thursday, 4), Name: "Thanksgiving"},
		{Date: fixed(time.December, 25), Name: "Christmas Day"},
	}
	if year >= 2021 {
		holidays = append(holidays, Holiday{Date: fixed(time.June, 19), Name: "Juneteenth National Independence Day"})
	}

	observed := make([]Holiday, 0, 4)
	for _, h := range holidays {
		switch h.Date.Weekday() {
		case time.Saturday:
			obs := h.Date.AddDate(0, 0, -1)
			// New Year's Day falling on Saturday is observed in the previous year.
			if obs.Year() == year {
				observed = append(observed, Holiday{Date: obs, Name: h.Name + " (observed)"})
			}
		case time.Sunday:
			observed = append(observed, Holiday{Date: h.Date.AddDate(0, 0, 1), Name: h.Name + " (observed)"})
		}
	}
	if next := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC); next.Weekday() == time.Saturday {
		observed = append(observed, Holiday{Date: next.AddDate(0, 0, -1), Name: "New Year's Day (observed)"})
	}

	holidays = append(holidays, observed...)
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDate(0, 0, -offset)
}
