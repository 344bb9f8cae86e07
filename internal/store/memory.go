package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/statlens/statlens/internal/models"
)

// MemoryStore keeps everything in process memory. It backs development runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]*models.Dataset
	records  map[string][]models.Record
	results  map[resultKey]*models.AnalyticsResult
}

type resultKey struct {
	datasetID string
	metric    string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		datasets: make(map[string]*models.Dataset),
		records:  make(map[string][]models.Record),
		results:  make(map[resultKey]*models.AnalyticsResult),
	}
}

// PutDataset adds or replaces a dataset
func (s *MemoryStore) PutDataset(ds models.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds.Columns = append([]string(nil), ds.Columns...)
	s.datasets[ds.ID] = &ds
}

// AppendRecords adds records to a dataset
func (s *MemoryStore) AppendRecords(datasetID string, records ...models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		r.DatasetID = datasetID
		s.records[datasetID] = append(s.records[datasetID], r)
	}
}

// GetDataset returns a copy of the dataset
func (s *MemoryStore) GetDataset(_ context.Context, id string) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ds
	cp.Columns = append([]string(nil), ds.Columns...)
	return &cp, nil
}

// ListRecords returns the records of a dataset in insertion order
func (s *MemoryStore) ListRecords(_ context.Context, datasetID string) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[datasetID]
	out := make([]models.Record, len(records))
	copy(out, records)
	return out, nil
}

// SaveAnalytics upserts the result, keeping CreatedAt of an existing entry
func (s *MemoryStore) SaveAnalytics(_ context.Context, result *models.AnalyticsResult) error {
	if result == nil {
		return fmt.Errorf("nil analytics result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := resultKey{result.DatasetID, result.Metric}
	now := time.Now().UTC()

	cp := *result
	if existing, ok := s.results[key]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	s.results[key] = &cp
	result.CreatedAt, result.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	return nil
}

// GetAnalytics returns a copy of the stored result
func (s *MemoryStore) GetAnalytics(_ context.Context, datasetID, metric string) (*models.AnalyticsResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[resultKey{datasetID, metric}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *result
	return &cp, nil
}

// DeleteAnalytics removes all results of a dataset
func (s *MemoryStore) DeleteAnalytics(_ context.Context, datasetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.results {
		if key.datasetID == datasetID {
			delete(s.results, key)
		}
	}
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// Seed is the JSON layout of a seed file
type Seed struct {
	Datasets []SeedDataset `json:"datasets"`
}

// SeedDataset is a dataset together with its records
type SeedDataset struct {
	models.Dataset
	Records []models.Record `json:"records"`
}

// LoadSeedFile loads datasets and records from a JSON file
func (s *MemoryStore) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	s.LoadSeed(seed)
	return nil
}

// LoadSeed adds the seed's datasets and records to the store
func (s *MemoryStore) LoadSeed(seed Seed) {
	for _, sd := range seed.Datasets {
		ds := sd.Dataset
		if ds.RecordCount == 0 {
			ds.RecordCount = len(sd.Records)
		}
		s.PutDataset(ds)
		s.AppendRecords(ds.ID, sd.Records...)
	}
}
