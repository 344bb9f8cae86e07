// Package analytics provides common types shared by the statistics and anomaly
// detection packages.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Observation is a single (date, value) pair of a metric series.
type Observation struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Series is an ordered sequence of observations belonging to one (dataset, metric) pair.
type Series []Observation

// Values extracts just the values from the series
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, o := range s {
		values[i] = o.Value
	}
	return values
}

// Dates extracts just the dates from the series
func (s Series) Dates() []string {
	dates := make([]string, len(s))
	for i, o := range s {
		dates[i] = o.Date
	}
	return dates
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s)
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// ParseDate interprets a date string as a calendar instant.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", s)
}

// LessDate orders two date strings chronologically. Parseable dates come before
// unparseable ones; two unparseable dates compare lexically.
func LessDate(a, b string) bool {
	ta, errA := ParseDate(a)
	tb, errB := ParseDate(b)
	switch {
	case errA == nil && errB == nil:
		return ta.Before(tb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// SortByDate returns a copy of the series sorted by calendar date.
// The sort is stable, so observations sharing a date keep their input order.
func SortByDate(s Series) Series {
	sorted := make(Series, len(s))
	copy(sorted, s)

	keys := make([]dateKey, len(sorted))
	for i, o := range sorted {
		keys[i] = newDateKey(o.Date)
	}
	sort.Stable(byDateKey{series: sorted, keys: keys})
	return sorted
}

// dateKey caches the parsed form of a date so sorting parses each one once.
type dateKey struct {
	raw    string
	t      time.Time
	parsed bool
}

func newDateKey(raw string) dateKey {
	t, err := ParseDate(raw)
	return dateKey{raw: raw, t: t, parsed: err == nil}
}

func (k dateKey) less(o dateKey) bool {
	switch {
	case k.parsed && o.parsed:
		return k.t.Before(o.t)
	case k.parsed:
		return true
	case o.parsed:
		return false
	default:
		return k.raw < o.raw
	}
}

type byDateKey struct {
	series Series
	keys   []dateKey
}

func (b byDateKey) Len() int           { return len(b.series) }
func (b byDateKey) Less(i, j int) bool { return b.keys[i].less(b.keys[j]) }
func (b byDateKey) Swap(i, j int) {
	b.series[i], b.series[j] = b.series[j], b.series[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
