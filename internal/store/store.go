// Package store provides access to datasets, their records and the analytics
// results computed from them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/models"
)

// ErrNotFound is returned when a dataset or analytics result does not exist
var ErrNotFound = errors.New("not found")

// DatasetStore reads datasets and their records
type DatasetStore interface {
	// GetDataset returns the dataset or ErrNotFound
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)

	// ListRecords returns the records of a dataset in insertion order
	ListRecords(ctx context.Context, datasetID string) ([]models.Record, error)
}

// ResultStore persists analytics results, one per (dataset, metric)
type ResultStore interface {
	// SaveAnalytics inserts or replaces the result of its (dataset, metric) pair
	SaveAnalytics(ctx context.Context, result *models.AnalyticsResult) error

	// GetAnalytics returns the stored result or ErrNotFound
	GetAnalytics(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, error)

	// DeleteAnalytics removes every stored result of a dataset
	DeleteAnalytics(ctx context.Context, datasetID string) error
}

// Store combines both stores behind one connection
type Store interface {
	DatasetStore
	ResultStore

	// Close releases the underlying connection
	Close() error
}

// New creates a Store based on configuration
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		s := NewMemoryStore()
		if cfg.SeedFile != "" {
			if err := s.LoadSeedFile(cfg.SeedFile); err != nil {
				return nil, err
			}
		}
		return s, nil

	case "postgres":
		s, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := s.EnsureSchema(ctx); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s (supported: memory, postgres)", cfg.Type)
	}
}
