package models

import "time"

// Event subjects
const (
	SubjectAnalyticsCompleted = "analytics.completed"
	SubjectDatasetsChanged    = "datasets.changed"
)

// DatasetAction is the kind of change announced on datasets.changed
type DatasetAction string

const (
	DatasetActionUpdated     DatasetAction = "updated"
	DatasetActionReprocessed DatasetAction = "reprocessed"
	DatasetActionDeleted     DatasetAction = "deleted"
)

// AnalyticsCompletedEvent is published after a successful analytics run
type AnalyticsCompletedEvent struct {
	DatasetID    string    `json:"dataset_id"`
	Metric       string    `json:"metric"`
	Count        int       `json:"count"`
	AnomalyCount int       `json:"anomaly_count"`
	HighCount    int       `json:"high_count"`
	CompletedAt  time.Time `json:"completed_at"`
}

// DatasetChangedEvent is consumed to keep cached and stored analytics consistent
// with the datasets they were computed from
type DatasetChangedEvent struct {
	DatasetID string        `json:"dataset_id"`
	Action    DatasetAction `json:"action"`
}
