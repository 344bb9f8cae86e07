package models

import (
	"strings"
	"time"
)

// DatasetStatus represents the ingestion state of a dataset
type DatasetStatus string

const (
	DatasetStatusUploaded   DatasetStatus = "uploaded"
	DatasetStatusProcessing DatasetStatus = "processing"
	DatasetStatusProcessed  DatasetStatus = "processed"
	DatasetStatusError      DatasetStatus = "error"
)

// Dataset is an uploaded table whose rows are stored as records
type Dataset struct {
	ID           string        `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Columns      []string      `json:"columns" db:"-"`
	Status       DatasetStatus `json:"status" db:"status"`
	TimeColumn   string        `json:"time_column,omitempty" db:"time_column"`
	MetricColumn string        `json:"metric_column,omitempty" db:"metric_column"`
	RecordCount  int           `json:"record_count" db:"record_count"`
	UploadedAt   time.Time     `json:"uploaded_at" db:"uploaded_at"`
}

// IsReady reports whether analytics can run on the dataset
func (d *Dataset) IsReady() bool {
	return d.Status == DatasetStatusProcessed
}

// nonMetricColumns are never offered as metrics
var nonMetricColumns = map[string]struct{}{
	"id":         {},
	"date":       {},
	"time":       {},
	"timestamp":  {},
	"created_at": {},
	"updated_at": {},
}

// MetricColumns returns the dataset columns that can be analyzed, in column order
func (d *Dataset) MetricColumns() []string {
	metrics := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		if _, skip := nonMetricColumns[strings.ToLower(col)]; skip {
			continue
		}
		metrics = append(metrics, col)
	}
	return metrics
}

// Record is one row of a dataset
type Record struct {
	ID        string                 `json:"id" db:"id"`
	DatasetID string                 `json:"dataset_id" db:"dataset_id"`
	Data      map[string]interface{} `json:"data" db:"-"`
	Timestamp *time.Time             `json:"timestamp,omitempty" db:"timestamp"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
