package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/statlens/statlens/internal/cache"
	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/metrics"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/queue"
	"github.com/statlens/statlens/internal/store"
)

// salesValues has one clear spike on day 15
var salesValues = []float64{
	100, 102, 98, 101, 99, 103, 97, 100, 102, 98,
	101, 99, 100, 103, 500, 98, 101, 100, 99, 102,
}

func seedStore(t *testing.T) *store.MemoryStore {
	t.Helper()

	s := store.NewMemoryStore()
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	s.PutDataset(models.Dataset{
		ID:      "ds-1",
		Name:    "Sales",
		Columns: []string{"id", "Date", "revenue", "notes"},
		Status:  models.DatasetStatusProcessed,
	})
	// Records deliberately out of date order
	for i := len(salesValues) - 1; i >= 0; i-- {
		s.AppendRecords("ds-1", models.Record{
			ID: fmt.Sprintf("r-%d", i),
			Data: map[string]interface{}{
				"date":    fmt.Sprintf("2024-01-%02d", i+1),
				"revenue": salesValues[i],
				"notes":   "n/a",
			},
			CreatedAt: created,
		})
	}

	s.PutDataset(models.Dataset{ID: "ds-pending", Name: "Pending", Status: models.DatasetStatusProcessing})
	s.PutDataset(models.Dataset{ID: "ds-empty", Name: "Empty", Status: models.DatasetStatusProcessed})

	return s
}

type fixture struct {
	store     *store.MemoryStore
	cache     *cache.MemoryCache
	metrics   *metrics.Registry
	analytics *AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := seedStore(t)
	c := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	m := metrics.NewRegistry()

	svc := NewAnalyticsService(logging.NewNop(), AnalyticsDeps{
		Datasets: s,
		Results:  s,
		Cache:    c,
		Metrics:  m,
	})

	return &fixture{store: s, cache: c, metrics: m, analytics: svc}
}

// countingStore counts ListRecords calls and can hold them until released
type countingStore struct {
	store.DatasetStore
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *countingStore) ListRecords(ctx context.Context, datasetID string) ([]models.Record, error) {
	s.calls.Add(1)
	if s.gate != nil {
		s.once.Do(func() { close(s.entered) })
		<-s.gate
	}
	return s.DatasetStore.ListRecords(ctx, datasetID)
}

// failingCache fails every operation
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Get(context.Context, string, string) (*models.AnalyticsResult, bool, error) {
	return nil, false, errCacheDown
}
func (failingCache) Set(context.Context, *models.AnalyticsResult) error { return errCacheDown }
func (failingCache) InvalidateDataset(context.Context, string) error   { return errCacheDown }
func (failingCache) Close() error                                      { return nil }

// failingResults fails writes
type failingResults struct {
	store.ResultStore
}

func (failingResults) SaveAnalytics(context.Context, *models.AnalyticsResult) error {
	return errors.New("disk full")
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := ErrorCode(err); got != code {
		t.Fatalf("expected code %s, got %s (%v)", code, got, err)
	}
}

func mustMemoryQueue(t *testing.T) queue.Queue {
	t.Helper()

	q, err := queue.NewQueue(config.QueueConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	return q
}
