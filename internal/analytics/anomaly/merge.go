package anomaly

import (
	"sort"

	"github.com/statlens/statlens/internal/analytics"
)

// Detect runs both passes over the full series with default configuration
// and merges their results.
func Detect(series analytics.Series) []Anomaly {
	return DetectWithConfig(series, DefaultConfig())
}

// DetectWithConfig runs both passes over the full series and merges their results.
func DetectWithConfig(series analytics.Series, config Config) []Anomaly {
	zscore := (&ZScoreDetector{}).Detect(series, config)
	iqr := (&IQRDetector{}).Detect(series, config)
	return Merge(zscore, iqr)
}

// Merge keeps at most one anomaly per date. Passes are consumed in argument order;
// a later anomaly replaces an earlier one for the same date only when its severity
// is strictly higher, so on ties the first one seen wins. The result is sorted by
// calendar date.
func Merge(passes ...[]Anomaly) []Anomaly {
	byDate := make(map[string]int)
	var merged []Anomaly

	for _, pass := range passes {
		for _, a := range pass {
			idx, exists := byDate[a.Date]
			if !exists {
				byDate[a.Date] = len(merged)
				merged = append(merged, a)
				continue
			}
			if a.Severity > merged[idx].Severity {
				merged[idx] = a
			}
		}
	}

	SortByDate(merged)
	return merged
}

// SortByDate orders anomalies chronologically in place
func SortByDate(anomalies []Anomaly) {
	keys := make([]string, len(anomalies))
	for i, a := range anomalies {
		keys[i] = a.Date
	}
	sort.Stable(anomalyOrder{anomalies: anomalies, dates: keys})
}

type anomalyOrder struct {
	anomalies []Anomaly
	dates     []string
}

func (o anomalyOrder) Len() int { return len(o.anomalies) }
func (o anomalyOrder) Less(i, j int) bool {
	return analytics.LessDate(o.dates[i], o.dates[j])
}
func (o anomalyOrder) Swap(i, j int) {
	o.anomalies[i], o.anomalies[j] = o.anomalies[j], o.anomalies[i]
	o.dates[i], o.dates[j] = o.dates[j], o.dates[i]
}

// CountBySeverity tallies anomalies per severity
func CountBySeverity(anomalies []Anomaly) map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return counts
}
