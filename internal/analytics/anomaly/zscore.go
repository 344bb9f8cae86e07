package anomaly

import (
	"math"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/stats"
)

// ZScoreDetector flags points lying more than Threshold population standard
// deviations away from the series mean.
type ZScoreDetector struct{}

func init() {
	RegisterDetector("zscore", &ZScoreDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return "zscore"
}

// Detect finds anomalies using the z-score method
func (z *ZScoreDetector) Detect(series analytics.Series, config Config) []Anomaly {
	minPoints := config.ZScoreMinPoints
	if minPoints < 1 {
		minPoints = DefaultConfig().ZScoreMinPoints
	}
	if len(series) < minPoints {
		return nil
	}

	mean, stdDev := stats.MeanStdDev(series.Values())

	// All values identical: nothing can stand out
	if stdDev == 0 {
		return nil
	}

	var anomalies []Anomaly
	for _, o := range series {
		score := math.Abs(o.Value-mean) / stdDev
		if score <= config.ZScoreThreshold {
			continue
		}

		zscore := score
		anomalies = append(anomalies, Anomaly{
			Date:     o.Date,
			Value:    o.Value,
			Type:     TypeZScore,
			Severity: ZScoreSeverity(score),
			ZScore:   &zscore,
		})
	}

	return anomalies
}

// ZScoreSeverity maps an absolute z-score of a flagged point to its severity
func ZScoreSeverity(score float64) Severity {
	switch {
	case score > 4:
		return SeverityHigh
	case score > 3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DetectZScore runs the z-score pass with the given threshold
func DetectZScore(series analytics.Series, threshold float64) []Anomaly {
	config := DefaultConfig()
	config.ZScoreThreshold = threshold
	return (&ZScoreDetector{}).Detect(series, config)
}
