package models

import (
	"fmt"
	"math"

	"github.com/statlens/statlens/internal/analytics"
)

// AnalyzeRequest represents a stateless analysis request
type AnalyzeRequest struct {
	Series          []analytics.Observation `json:"series"`
	ZScoreThreshold *float64                `json:"zscore_threshold,omitempty"`
}

// Validate checks the analysis request
func (r *AnalyzeRequest) Validate() error {
	if len(r.Series) == 0 {
		return fmt.Errorf("series is required")
	}
	for i, o := range r.Series {
		if o.Date == "" {
			return fmt.Errorf("series[%d]: date is required", i)
		}
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return fmt.Errorf("series[%d]: value must be finite", i)
		}
	}
	if r.ZScoreThreshold != nil && *r.ZScoreThreshold <= 0 {
		return fmt.Errorf("zscore_threshold must be positive")
	}
	return nil
}

// RunAnalyticsRequest represents a request to analyze one metric of a dataset
type RunAnalyticsRequest struct {
	DatasetID string `json:"dataset_id"`
	Metric    string `json:"metric"`
}

// Validate checks the run request
func (r *RunAnalyticsRequest) Validate() error {
	if r.DatasetID == "" {
		return fmt.Errorf("dataset_id is required")
	}
	if r.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	return nil
}

// GenerateReportRequest represents a report generation request
type GenerateReportRequest struct {
	DatasetID string   `json:"dataset_id"`
	Metrics   []string `json:"metrics"`
}

// Validate checks the report request
func (r *GenerateReportRequest) Validate() error {
	if r.DatasetID == "" || len(r.Metrics) == 0 {
		return fmt.Errorf("dataset_id and metrics are required")
	}
	for i, m := range r.Metrics {
		if m == "" {
			return fmt.Errorf("metrics[%d] is empty", i)
		}
	}
	return nil
}
