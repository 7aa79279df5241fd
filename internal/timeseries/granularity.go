package timeseries

import (
	"fmt"
	"time"
)

// Granularity selects the calendar period readings are grouped by.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

// Granularities lists every supported granularity in display order.
var Granularities = []Granularity{Daily, Monthly}

// ParseGranularity accepts exactly "daily" or "monthly".
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily:
		return Daily, nil
	case Monthly:
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown granularity %q: want daily or monthly", s)
}

// Valid reports whether g is a supported granularity.
func (g Granularity) Valid() bool {
	return g == Daily || g == Monthly
}

// String implements fmt.Stringer
func (g Granularity) String() string {
	return string(g)
}

// groupKey identifies one output point. Day is fixed to 1 for monthly groups.
type groupKey struct {
	year  int
	month int
	day   int
}

func (g Granularity) key(year, month, day int) groupKey {
	if g == Monthly {
		day = 1
	}
	return groupKey{year: year, month: month, day: day}
}

// date builds the UTC midnight timestamp for a group, rejecting dates that
// time.Date would silently normalise (month 13, Feb 30, ...).
func (k groupKey) date() (time.Time, bool) {
	if k.month < 1 || k.month > 12 || k.day < 1 {
		return time.Time{}, false
	}
	t := time.Date(k.year, time.Month(k.month), k.day, 0, 0, 0, 0, time.UTC)
	if t.Year() != k.year || int(t.Month()) != k.month || t.Day() != k.day {
		return time.Time{}, false
	}
	return t, true
}
