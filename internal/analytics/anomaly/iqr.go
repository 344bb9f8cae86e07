package anomaly

import (
	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/stats"
)

// IQRDetector flags points outside [Q1 - k*IQR, Q3 + k*IQR].
// Quartiles use the nearest-rank estimate shared with the summary statistics.
type IQRDetector struct{}

func init() {
	RegisterDetector("iqr", &IQRDetector{})
}

// Name returns the algorithm name
func (iqr *IQRDetector) Name() string {
	return "iqr"
}

// Fences are the bounds derived from the quartiles of a series
type Fences struct {
	Q1           float64
	Q3           float64
	IQR          float64
	Lower        float64
	Upper        float64
	ExtremeLower float64
	ExtremeUpper float64
}

// CalculateFences derives the fences of values for the given multipliers
func CalculateFences(values []float64, multiplier, extremeMultiplier float64) Fences {
	sorted := stats.SortedCopy(values)
	q1 := stats.NearestRank(sorted, 0.25)
	q3 := stats.NearestRank(sorted, 0.75)
	iqr := q3 - q1

	return Fences{
		Q1:           q1,
		Q3:           q3,
		IQR:          iqr,
		Lower:        q1 - multiplier*iqr,
		Upper:        q3 + multiplier*iqr,
		ExtremeLower: q1 - extremeMultiplier*iqr,
		ExtremeUpper: q3 + extremeMultiplier*iqr,
	}
}

// Detect finds anomalies using the IQR method. It never yields low severity.
func (iqr *IQRDetector) Detect(series analytics.Series, config Config) []Anomaly {
	minPoints := config.IQRMinPoints
	if minPoints < 1 {
		minPoints = DefaultConfig().IQRMinPoints
	}
	if len(series) < minPoints {
		return nil
	}

	multiplier := config.IQRMultiplier
	if multiplier <= 0 {
		multiplier = DefaultConfig().IQRMultiplier
	}
	extreme := config.IQRExtremeMultiplier
	if extreme <= 0 {
		extreme = DefaultConfig().IQRExtremeMultiplier
	}

	f := CalculateFences(series.Values(), multiplier, extreme)

	var anomalies []Anomaly
	for _, o := range series {
		if o.Value >= f.Lower && o.Value <= f.Upper {
			continue
		}

		severity := SeverityMedium
		if o.Value < f.ExtremeLower || o.Value > f.ExtremeUpper {
			severity = SeverityHigh
		}

		anomalies = append(anomalies, Anomaly{
			Date:     o.Date,
			Value:    o.Value,
			Type:     TypeIQR,
			Severity: severity,
		})
	}

	return anomalies
}

// DetectIQR runs the IQR pass with default fences
func DetectIQR(series analytics.Series) []Anomaly {
	return (&IQRDetector{}).Detect(series, DefaultConfig())
}
