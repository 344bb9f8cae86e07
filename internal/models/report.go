package models

import "time"

// Report bundles analytics of several metrics of one dataset
type Report struct {
	ID          string         `json:"id"`
	DatasetID   string         `json:"dataset_id"`
	DatasetName string         `json:"dataset_name"`
	GeneratedAt time.Time      `json:"generated_at"`
	Metrics     []MetricReport `json:"metrics"`
	Summary     ReportSummary  `json:"summary"`
}

// MetricReport is the per-metric entry of a report
type MetricReport struct {
	Metric  string           `json:"metric"`
	Success bool             `json:"success"`
	Data    *AnalyticsResult `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ReportSummary aggregates the metric entries of a report
type ReportSummary struct {
	TotalMetrics      int `json:"total_metrics"`
	SuccessfulMetrics int `json:"successful_metrics"`
	FailedMetrics     int `json:"failed_metrics"`
	TotalAnomalies    int `json:"total_anomalies"`
}

// Summarize computes the summary of the given metric entries
func Summarize(metrics []MetricReport) ReportSummary {
	summary := ReportSummary{TotalMetrics: len(metrics)}
	for _, m := range metrics {
		if !m.Success {
			summary.FailedMetrics++
			continue
		}
		summary.SuccessfulMetrics++
		if m.Data != nil {
			summary.TotalAnomalies += len(m.Data.Anomalies)
		}
	}
	return summary
}
