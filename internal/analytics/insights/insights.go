// Package insights turns an analytics result into short human-readable findings.
package insights

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/models"
)

const (
	// maxHighDetails caps the anomalies attached to the critical insight
	maxHighDetails = 3

	trendThresholdPct = 10.0
	strongTrendPct    = 50.0
)

// Generate derives the insights of a result. The summary insight always comes first.
func Generate(result *models.AnalyticsResult) []models.Insight {
	if result == nil {
		return nil
	}

	metric := result.Metric
	insights := []models.Insight{{
		Type:  models.InsightSummary,
		Title: "Statistical Overview",
		Description: fmt.Sprintf("The %s has an average value of %s with a standard deviation of %s.",
			metric, humanize.Commaf(result.Summary.Mean), humanize.Commaf(result.Summary.StdDev)),
		Severity: models.InsightSeverityInfo,
	}}

	insights = append(insights, anomalyInsights(metric, result.Anomalies)...)

	if trend, ok := trendInsight(metric, result.TimeSeriesData); ok {
		insights = append(insights, trend)
	}

	return insights
}

func anomalyInsights(metric string, anomalies []anomaly.Anomaly) []models.Insight {
	if len(anomalies) == 0 {
		return []models.Insight{{
			Type:        models.InsightNormal,
			Title:       "No Anomalies Detected",
			Description: fmt.Sprintf("The %s data appears to be within normal ranges with no significant outliers.", metric),
			Severity:    models.InsightSeverityInfo,
		}}
	}

	var high []anomaly.Anomaly
	medium := 0
	for _, a := range anomalies {
		switch a.Severity {
		case anomaly.SeverityHigh:
			high = append(high, a)
		case anomaly.SeverityMedium:
			medium++
		}
	}

	var out []models.Insight
	if len(high) > 0 {
		details := high
		if len(details) > maxHighDetails {
			details = details[:maxHighDetails]
		}
		out = append(out, models.Insight{
			Type:        models.InsightAnomaly,
			Title:       "Critical Anomalies Detected",
			Description: fmt.Sprintf("Found %d high-severity anomalies that require immediate attention.", len(high)),
			Severity:    models.InsightSeverityHigh,
			Details:     details,
		})
	}
	if medium > 0 {
		out = append(out, models.Insight{
			Type:        models.InsightAnomaly,
			Title:       "Moderate Anomalies",
			Description: fmt.Sprintf("Detected %d medium-severity anomalies that may indicate trends worth monitoring.", medium),
			Severity:    models.InsightSeverityMedium,
		})
	}
	return out
}

// PercentChange returns the relative change between the first and last
// observations of a date-sorted series. ok is false when the series is too
// short or starts at zero.
func PercentChange(series analytics.Series) (pct float64, ok bool) {
	if len(series) < 2 {
		return 0, false
	}
	first := series[0].Value
	if first == 0 {
		return 0, false
	}
	last := series[len(series)-1].Value
	return (last - first) / first * 100, true
}

func trendInsight(metric string, series analytics.Series) (models.Insight, bool) {
	pct, ok := PercentChange(series)
	if !ok || math.Abs(pct) <= trendThresholdPct {
		return models.Insight{}, false
	}

	title, verb := "Upward Trend", "increased"
	if pct < 0 {
		title, verb = "Downward Trend", "decreased"
	}
	severity := models.InsightSeverityMedium
	if math.Abs(pct) > strongTrendPct {
		severity = models.InsightSeverityHigh
	}

	return models.Insight{
		Type:        models.InsightTrend,
		Title:       title,
		Description: fmt.Sprintf("The %s has %s by %.1f%% over the analyzed period.", metric, verb, math.Abs(pct)),
		Severity:    severity,
	}, true
}
