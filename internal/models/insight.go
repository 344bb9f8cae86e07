package models

import "github.com/statlens/statlens/internal/analytics/anomaly"

// InsightType categorizes an insight
type InsightType string

const (
	InsightSummary InsightType = "summary"
	InsightAnomaly InsightType = "anomaly"
	InsightNormal  InsightType = "normal"
	InsightTrend   InsightType = "trend"
)

// InsightSeverity ranks an insight for display. Unlike anomaly severity it has an
// informational level.
type InsightSeverity string

const (
	InsightSeverityInfo   InsightSeverity = "info"
	InsightSeverityMedium InsightSeverity = "medium"
	InsightSeverityHigh   InsightSeverity = "high"
)

// Insight is a human-readable finding derived from an analytics result
type Insight struct {
	Type        InsightType       `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Severity    InsightSeverity   `json:"severity"`
	Details     []anomaly.Anomaly `json:"details,omitempty"`
}
