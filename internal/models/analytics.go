package models

import (
	"time"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/analytics/stats"
)

// AnalyticsResult is the stored outcome of analyzing one metric of a dataset.
// Field names follow the dashboard contract.
type AnalyticsResult struct {
	DatasetID      string            `json:"datasetId"`
	Metric         string            `json:"metric"`
	Summary        stats.Summary     `json:"summary"`
	Anomalies      []anomaly.Anomaly `json:"anomalies"`
	TimeSeriesData analytics.Series  `json:"timeSeriesData"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// AnalysisResult is the outcome of a stateless analysis of a caller-provided series
type AnalysisResult struct {
	Summary        stats.Summary     `json:"summary"`
	Anomalies      []anomaly.Anomaly `json:"anomalies"`
	TimeSeriesData analytics.Series  `json:"timeSeriesData"`
}
