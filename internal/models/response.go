package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// AnalyticsResponse wraps a stored analytics result
type AnalyticsResponse struct {
	Analytics *AnalyticsResult `json:"analytics"`
	RequestID string           `json:"request_id,omitempty"`
}

// MetricsListResponse lists the analyzable metrics of a dataset
type MetricsListResponse struct {
	DatasetID string   `json:"dataset_id"`
	Metrics   []string `json:"metrics"`
}

// CacheInvalidateResponse confirms a cache invalidation
type CacheInvalidateResponse struct {
	DatasetID   string `json:"dataset_id"`
	Invalidated bool   `json:"invalidated"`
}

// ReportResponse wraps a generated report
type ReportResponse struct {
	Report *Report `json:"report"`
}

// InsightsResponse lists the insights of a metric
type InsightsResponse struct {
	DatasetID string    `json:"dataset_id"`
	Metric    string    `json:"metric"`
	Insights  []Insight `json:"insights"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
