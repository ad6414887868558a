package services

import (
	"errors"
	"fmt"
	"time"
)

const (
	// FirstOrderID is the identifier assigned to the first order of a run.
	FirstOrderID int64 = 2001
	// DefaultHistoryWindow bounds the per-SKU quantity history.
	DefaultHistoryWindow = 30
)

// ErrOrderCounterExhausted indicates the order identifier space overflowed.
var ErrOrderCounterExhausted = errors.New("order counter: exhausted")

// OrderCounter issues strictly increasing order identifiers.
type OrderCounter struct {
	next int64
	last int64
}

// NewOrderCounter starts the sequence at first.
func NewOrderCounter(first int64) *OrderCounter {
	if first <= 0 {
		first = FirstOrderID
	}
	return &OrderCounter{next: first}
}

// Next returns the next identifier.
func (c *OrderCounter) Next() (int64, error) {
	if c.next <= c.last {
		return 0, ErrOrderCounterExhausted
	}
	id := c.next
	c.last = id
	c.next++
	return id, nil
}

// Peek returns the identifier the next call to Next will produce.
func (c *OrderCounter) Peek() int64 {
	return c.next
}

// ResumeAfter moves the sequence past max so new identifiers continue after it.
func (c *OrderCounter) ResumeAfter(max int64) {
	if max >= c.next {
		c.next = max + 1
	}
}

// FormatOrderName renders the storefront order name for an identifier.
func FormatOrderName(id int64) string {
	return fmt.Sprintf("#%d", id)
}

// QuantityHistory is a fixed-size ring of the most recent quantities sold for a SKU.
type QuantityHistory struct {
	values []int
	start  int
	size   int
}

func newQuantityHistory(capacity int) *QuantityHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryWindow
	}
	return &QuantityHistory{values: make([]int, capacity)}
}

// Push records a quantity, evicting the oldest one when full.
func (h *QuantityHistory) Push(q int) {
	capacity := len(h.values)
	if h.size < capacity {
		h.values[(h.start+h.size)%capacity] = q
		h.size++
		return
	}
	h.values[h.start] = q
	h.start = (h.start + 1) % capacity
}

// Len returns the number of recorded quantities.
func (h *QuantityHistory) Len() int {
	return h.size
}

// Values returns the recorded quantities from oldest to newest.
func (h *QuantityHistory) Values() []int {
	out := make([]int, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.values[(h.start+i)%len(h.values)]
	}
	return out
}

// Mean returns the average of the recorded quantities, or zero when empty.
func (h *QuantityHistory) Mean() float64 {
	if h.size == 0 {
		return 0
	}
	total := 0
	for _, v := range h.Values() {
		total += v
	}
	return float64(total) / float64(h.size)
}

// SimulationState holds every sequential accumulator of a run. It is owned by the driver and
// passed by pointer into each step; it is not safe for concurrent use.
type SimulationState struct {
	Orders *OrderCounter

	history       map[string]*QuantityHistory
	historyWindow int

	prevCount    int
	hasPrevCount bool

	monthIndex int
	lastMonth  time.Month
	started    bool
}

// NewSimulationState returns a state whose first order identifier is firstOrderID.
func NewSimulationState(firstOrderID int64, historyWindow int) *SimulationState {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &SimulationState{
		Orders:        NewOrderCounter(firstOrderID),
		history:       make(map[string]*QuantityHistory),
		historyWindow: historyWindow,
	}
}

// PrevDailyCount returns the previous simulated day's order count, if any.
func (s *SimulationState) PrevDailyCount() (int, bool) {
	return s.prevCount, s.hasPrevCount
}

// RecordDailyCount stores the realised order count of the current day.
func (s *SimulationState) RecordDailyCount(count int) {
	s.prevCount = count
	s.hasPrevCount = true
}

// ResetAutocorrelation forgets the previous day's count, as after a skipped day.
func (s *SimulationState) ResetAutocorrelation() {
	s.prevCount = 0
	s.hasPrevCount = false
}

// Begin anchors the month index at the first simulated date.
func (s *SimulationState) Begin(start time.Time) {
	s.started = true
	s.monthIndex = 0
	s.lastMonth = start.Month()
}

// AdvanceTo updates the month index for date and returns it. The index starts at 0 and
// increments each time the calendar month changes.
func (s *SimulationState) AdvanceTo(date time.Time) int {
	if !s.started {
		s.Begin(date)
		return s.monthIndex
	}
	if date.Month() != s.lastMonth {
		s.monthIndex++
		s.lastMonth = date.Month()
	}
	return s.monthIndex
}

// MonthIndex returns the current month index.
func (s *SimulationState) MonthIndex() int {
	return s.monthIndex
}

// RecordQuantity appends a sold quantity to the SKU's bounded history.
func (s *SimulationState) RecordQuantity(sku string, quantity int) {
	h, ok := s.history[sku]
	if !ok {
		h = newQuantityHistory(s.historyWindow)
		s.history[sku] = h
	}
	h.Push(quantity)
}

// History returns the quantity history of a SKU, or nil when it never sold.
func (s *SimulationState) History(sku string) *QuantityHistory {
	return s.history[sku]
}

// RecentQuantityMeans returns the mean of each SKU's recent history.
func (s *SimulationState) RecentQuantityMeans() map[string]float64 {
	out := make(map[string]float64, len(s.history))
	for sku, h := range s.history {
		out[sku] = h.Mean()
	}
	return out
}
