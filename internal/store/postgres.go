package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/models"
)

// schema creates the tables used by PostgresStore
const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	columns       JSONB NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL DEFAULT 'uploaded',
	time_column   TEXT NOT NULL DEFAULT '',
	metric_column TEXT NOT NULL DEFAULT '',
	record_count  INTEGER NOT NULL DEFAULT 0,
	uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	data       JSONB NOT NULL,
	timestamp  TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS records_dataset_idx ON records (dataset_id, created_at);

CREATE TABLE IF NOT EXISTS analytics (
	dataset_id  TEXT NOT NULL,
	metric      TEXT NOT NULL,
	summary     JSONB NOT NULL,
	anomalies   JSONB NOT NULL DEFAULT '[]',
	time_series JSONB NOT NULL DEFAULT '[]',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (dataset_id, metric)
);`

// PostgresStore implements Store on PostgreSQL with JSONB payload columns
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open connection
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// OpenPostgres connects to PostgreSQL and verifies the connection
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStore(db, cfg.QueryTimeout), nil
}

// EnsureSchema creates missing tables and indexes
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type datasetRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Columns      []byte    `db:"columns"`
	Status       string    `db:"status"`
	TimeColumn   string    `db:"time_column"`
	MetricColumn string    `db:"metric_column"`
	RecordCount  int       `db:"record_count"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

// GetDataset returns the dataset or ErrNotFound
func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, name, columns, status, time_column, metric_column, record_count, uploaded_at
		FROM datasets
		WHERE id = $1`

	var row datasetRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	ds := &models.Dataset{
		ID:           row.ID,
		Name:         row.Name,
		Status:       models.DatasetStatus(row.Status),
		TimeColumn:   row.TimeColumn,
		MetricColumn: row.MetricColumn,
		RecordCount:  row.RecordCount,
		UploadedAt:   row.UploadedAt,
	}
	if len(row.Columns) > 0 {
		if err := json.Unmarshal(row.Columns, &ds.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
		}
	}

	return ds, nil
}

type recordRow struct {
	ID        string     `db:"id"`
	DatasetID string     `db:"dataset_id"`
	Data      []byte     `db:"data"`
	Timestamp *time.Time `db:"timestamp"`
	CreatedAt time.Time  `db:"created_at"`
}

// ListRecords returns the records of a dataset in insertion order.
// Numbers in record data decode as json.Number.
func (s *PostgresStore) ListRecords(ctx context.Context, datasetID string) ([]models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, dataset_id, data, timestamp, created_at
		FROM records
		WHERE dataset_id = $1
		ORDER BY created_at, id`

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, datasetID); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		dec := json.NewDecoder(bytes.NewReader(row.Data))
		dec.UseNumber()

		var data map[string]interface{}
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", row.ID, err)
		}

		records = append(records, models.Record{
			ID:        row.ID,
			DatasetID: row.DatasetID,
			Data:      data,
			Timestamp: row.Timestamp,
			CreatedAt: row.CreatedAt,
		})
	}

	return records, nil
}

type analyticsRow struct {
	DatasetID  string    `db:"dataset_id"`
	Metric     string    `db:"metric"`
	Summary    []byte    `db:"summary"`
	Anomalies  []byte    `db:"anomalies"`
	TimeSeries []byte    `db:"time_series"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// SaveAnalytics upserts the result by (dataset, metric)
func (s *PostgresStore) SaveAnalytics(ctx context.Context, result *models.AnalyticsResult) error {
	if result == nil {
		return fmt.Errorf("nil analytics result")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	anomalies := result.Anomalies
	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}
	anomaliesJSON, err := json.Marshal(anomalies)
	if err != nil {
		return fmt.Errorf("failed to marshal anomalies: %w", err)
	}

	timeSeries := result.TimeSeriesData
	if timeSeries == nil {
		timeSeries = analytics.Series{}
	}
	timeSeriesJSON, err := json.Marshal(timeSeries)
	if err != nil {
		return fmt.Errorf("failed to marshal time series: %w", err)
	}

	query := `
		INSERT INTO analytics (dataset_id, metric, summary, anomalies, time_series)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (dataset_id, metric) DO UPDATE SET
			summary = EXCLUDED.summary,
			anomalies = EXCLUDED.anomalies,
			time_series = EXCLUDED.time_series,
			updated_at = now()
		RETURNING created_at, updated_at`

	err = s.db.QueryRowxContext(ctx, query,
		result.DatasetID, result.Metric, summaryJSON, anomaliesJSON, timeSeriesJSON).
		Scan(&result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert analytics: %w", err)
	}

	return nil
}

// GetAnalytics returns the stored result or ErrNotFound
func (s *PostgresStore) GetAnalytics(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT dataset_id, metric, summary, anomalies, time_series, created_at, updated_at
		FROM analytics
		WHERE dataset_id = $1 AND metric = $2`

	var row analyticsRow
	if err := s.db.GetContext(ctx, &row, query, datasetID, metric); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}

	result := &models.AnalyticsResult{
		DatasetID: row.DatasetID,
		Metric:    row.Metric,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Summary, &result.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	if err := json.Unmarshal(row.Anomalies, &result.Anomalies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal anomalies: %w", err)
	}
	if err := json.Unmarshal(row.TimeSeries, &result.TimeSeriesData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal time series: %w", err)
	}

	return result, nil
}

// DeleteAnalytics removes every stored result of a dataset
func (s *PostgresStore) DeleteAnalytics(ctx context.Context, datasetID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM analytics WHERE dataset_id = $1`, datasetID); err != nil {
		return fmt.Errorf("failed to delete analytics: %w", err)
	}
	return nil
}

// Ping checks the connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
