package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/analytics/stats"
	"github.com/statlens/statlens/internal/models"
)

func series(values ...float64) analytics.Series {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	s := make(analytics.Series, len(values))
	for i, v := range values {
		s[i] = analytics.Observation{Date: dates[i], Value: v}
	}
	return s
}

func TestGenerate_NoAnomaliesNoTrend(t *testing.T) {
	result := &models.AnalyticsResult{
		Metric:         "revenue",
		Summary:        stats.Summary{Mean: 1234.5, StdDev: 2.25},
		TimeSeriesData: series(100, 104, 105),
	}

	got := Generate(result)
	require.Len(t, got, 2)

	assert.Equal(t, models.InsightSummary, got[0].Type)
	assert.Equal(t, models.InsightSeverityInfo, got[0].Severity)
	assert.Equal(t, "The revenue has an average value of 1,234.5 with a standard deviation of 2.25.", got[0].Description)

	assert.Equal(t, models.InsightNormal, got[1].Type)
	assert.Equal(t, models.InsightSeverityInfo, got[1].Severity)
}

func TestGenerate_AnomalyInsights(t *testing.T) {
	anomalies := []anomaly.Anomaly{
		{Date: "2024-01-01", Severity: anomaly.SeverityHigh},
		{Date: "2024-01-02", Severity: anomaly.SeverityMedium},
		{Date: "2024-01-03", Severity: anomaly.SeverityHigh},
		{Date: "2024-01-04", Severity: anomaly.SeverityHigh},
		{Date: "2024-01-05", Severity: anomaly.SeverityHigh},
		{Date: "2024-01-06", Severity: anomaly.SeverityLow},
	}
	result := &models.AnalyticsResult{Metric: "cost", Anomalies: anomalies}

	got := Generate(result)
	require.Len(t, got, 3)

	critical := got[1]
	assert.Equal(t, models.InsightAnomaly, critical.Type)
	assert.Equal(t, models.InsightSeverityHigh, critical.Severity)
	assert.Contains(t, critical.Description, "Found 4 high-severity")
	require.Len(t, critical.Details, 3)
	assert.Equal(t, "2024-01-01", critical.Details[0].Date)
	assert.Equal(t, "2024-01-04", critical.Details[2].Date)

	moderate := got[2]
	assert.Equal(t, models.InsightSeverityMedium, moderate.Severity)
	assert.Contains(t, moderate.Description, "Detected 1 medium-severity")
	assert.Empty(t, moderate.Details)
}

func TestGenerate_OnlyLowAnomalies(t *testing.T) {
	result := &models.AnalyticsResult{
		Metric:    "cost",
		Anomalies: []anomaly.Anomaly{{Date: "2024-01-01", Severity: anomaly.SeverityLow}},
	}

	// Low anomalies get no insight of their own, and the series is not normal either
	got := Generate(result)
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightSummary, got[0].Type)
}

func TestGenerate_Trend(t *testing.T) {
	tests := []struct {
		name     string
		data     analytics.Series
		title    string
		severity models.InsightSeverity
		desc     string
	}{
		{"upward medium", series(100, 90, 120), "Upward Trend", models.InsightSeverityMedium, "The m has increased by 20.0% over the analyzed period."},
		{"upward high", series(100, 151), "Upward Trend", models.InsightSeverityHigh, "The m has increased by 51.0% over the analyzed period."},
		{"downward medium", series(200, 150), "Downward Trend", models.InsightSeverityMedium, "The m has decreased by 25.0% over the analyzed period."},
		{"negative values", series(-10, -20), "Upward Trend", models.InsightSeverityHigh, "The m has increased by 100.0% over the analyzed period."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(&models.AnalyticsResult{Metric: "m", TimeSeriesData: tt.data})
			last := got[len(got)-1]
			require.Equal(t, models.InsightTrend, last.Type)
			assert.Equal(t, tt.title, last.Title)
			assert.Equal(t, tt.severity, last.Severity)
			assert.Equal(t, tt.desc, last.Description)
		})
	}
}

func TestGenerate_NoTrend(t *testing.T) {
	tests := []struct {
		name string
		data analytics.Series
	}{
		{"single point", series(100)},
		{"exactly ten percent", series(100, 110)},
		{"starts at zero", series(0, 50)},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(&models.AnalyticsResult{Metric: "m", TimeSeriesData: tt.data})
			for _, in := range got {
				assert.NotEqual(t, models.InsightTrend, in.Type)
			}
		})
	}
}

func TestGenerate_Nil(t *testing.T) {
	assert.Nil(t, Generate(nil))
}

func TestPercentChange(t *testing.T) {
	pct, ok := PercentChange(series(50, 75))
	assert.True(t, ok)
	assert.InDelta(t, 50.0, pct, 1e-9)

	_, ok = PercentChange(series(0, 75))
	assert.False(t, ok)
}
