package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/metrics"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/queue"
	"github.com/statlens/statlens/internal/store"
)

func TestAnalyticsService_Run(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	assert.Equal(t, "ds-1", result.DatasetID)
	assert.Equal(t, "revenue", result.Metric)
	assert.Equal(t, 20, result.Summary.Count)
	assert.Equal(t, 97.0, result.Summary.Min)
	assert.Equal(t, 500.0, result.Summary.Max)

	// Series is in calendar order even though records were not
	require.Len(t, result.TimeSeriesData, 20)
	assert.Equal(t, "2024-01-01", result.TimeSeriesData[0].Date)
	assert.Equal(t, "2024-01-20", result.TimeSeriesData[19].Date)

	// The spike is the single anomaly, flagged high
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, "2024-01-15", result.Anomalies[0].Date)
	assert.Equal(t, anomaly.SeverityHigh, result.Anomalies[0].Severity)

	stored, err := f.store.GetAnalytics(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	assert.Equal(t, result.Summary, stored.Summary)

	_, found, err := f.cache.Get(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Anomalies.WithLabelValues("high", string(result.Anomalies[0].Type))))
}

func TestAnalyticsService_RunServesCache(t *testing.T) {
	f := newFixture(t)
	counting := &countingStore{DatasetStore: f.store}
	f.analytics.datasets = counting
	ctx := context.Background()

	first, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	second, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	assert.Equal(t, int32(1), counting.calls.Load())
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues(metrics.OutcomeCached)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheHits))
}

func TestAnalyticsService_RunRerunsAfterInvalidate(t *testing.T) {
	f := newFixture(t)
	counting := &countingStore{DatasetStore: f.store}
	f.analytics.datasets = counting
	ctx := context.Background()

	_, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	assert.True(t, f.analytics.InvalidateCache(ctx, "ds-1"))

	_, err = f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	assert.Equal(t, int32(2), counting.calls.Load())
}

func TestAnalyticsService_RunErrors(t *testing.T) {
	f := newFixture(t)
	f.store.AppendRecords("ds-empty")
	ctx := context.Background()

	tests := []struct {
		name      string
		datasetID string
		metric    string
		code      string
	}{
		{"missing dataset id", "", "revenue", CodeValidation},
		{"missing metric", "ds-1", "", CodeValidation},
		{"unknown dataset", "nope", "revenue", CodeDatasetNotFound},
		{"dataset not processed", "ds-pending", "revenue", CodeDatasetNotReady},
		{"dataset without records", "ds-empty", "revenue", CodeNoRecords},
		{"non-numeric metric", "ds-1", "notes", CodeNoNumericValues},
		{"absent metric", "ds-1", "profit", CodeNoNumericValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.analytics.Run(ctx, tt.datasetID, tt.metric)
			requireCode(t, err, tt.code)
		})
	}

	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues(metrics.OutcomeError)))
}

func TestAnalyticsService_RunSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.analytics.results = failingResults{ResultStore: f.store}

	_, err := f.analytics.Run(context.Background(), "ds-1", "revenue")
	requireCode(t, err, CodeInternal)

	// Nothing is cached for a failed run
	_, found, _ := f.cache.Get(context.Background(), "ds-1", "revenue")
	assert.False(t, found)
}

func TestAnalyticsService_CacheFailuresDoNotFailRequests(t *testing.T) {
	s := seedStore(t)
	svc := NewAnalyticsService(logging.NewNop(), AnalyticsDeps{
		Datasets: s,
		Results:  s,
		Cache:    failingCache{},
	})
	ctx := context.Background()

	result, err := svc.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	assert.Equal(t, 20, result.Summary.Count)

	got, err := svc.Get(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	assert.Equal(t, result.Summary, got.Summary)

	assert.False(t, svc.InvalidateCache(ctx, "ds-1"))
}

func TestAnalyticsService_RunPublishesEvent(t *testing.T) {
	s := seedStore(t)
	events := queue.NewEvents(mustMemoryQueue(t))
	t.Cleanup(func() { _ = events.Close() })

	received := make(chan models.AnalyticsCompletedEvent, 1)
	require.NoError(t, events.OnAnalyticsCompleted(func(_ context.Context, e models.AnalyticsCompletedEvent) error {
		received <- e
		return nil
	}))

	svc := NewAnalyticsService(logging.NewNop(), AnalyticsDeps{Datasets: s, Results: s, Events: events})
	_, err := svc.Run(context.Background(), "ds-1", "revenue")
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, "ds-1", e.DatasetID)
		assert.Equal(t, "revenue", e.Metric)
		assert.Equal(t, 20, e.Count)
		assert.Equal(t, 1, e.AnomalyCount)
		assert.Equal(t, 1, e.HighCount)
	case <-time.After(time.Second):
		t.Fatal("analytics.completed not published")
	}
}

func TestAnalyticsService_ConcurrentRunsShareOneComputation(t *testing.T) {
	s := seedStore(t)
	counting := &countingStore{
		DatasetStore: s,
		gate:         make(chan struct{}),
		entered:      make(chan struct{}),
	}
	svc := NewAnalyticsService(logging.NewNop(), AnalyticsDeps{Datasets: counting, Results: s})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*models.AnalyticsResult, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Run(context.Background(), "ds-1", "revenue")
		}(i)
	}

	<-counting.entered
	time.Sleep(100 * time.Millisecond)
	close(counting.gate)
	wg.Wait()

	assert.Equal(t, int32(1), counting.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 20, results[i].Summary.Count)
	}
}

func TestAnalyticsService_RunSurvivesCallerCancellation(t *testing.T) {
	s := seedStore(t)
	counting := &countingStore{
		DatasetStore: s,
		gate:         make(chan struct{}),
		entered:      make(chan struct{}),
	}
	svc := NewAnalyticsService(logging.NewNop(), AnalyticsDeps{Datasets: counting, Results: s})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(ctx, "ds-1", "revenue")
		done <- err
	}()

	<-counting.entered
	cancel()
	close(counting.gate)

	require.NoError(t, <-done)
	_, err := s.GetAnalytics(context.Background(), "ds-1", "revenue")
	assert.NoError(t, err)
}

func TestAnalyticsService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.analytics.Get(ctx, "ds-1", "revenue")
	requireCode(t, err, CodeAnalyticsNotFound)

	_, err = f.analytics.Get(ctx, "nope", "revenue")
	requireCode(t, err, CodeDatasetNotFound)

	_, err = f.analytics.Get(ctx, "ds-1", "")
	requireCode(t, err, CodeValidation)

	_, err = f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	// Served from the store after the cache is dropped, then re-cached
	f.analytics.InvalidateCache(ctx, "ds-1")
	got, err := f.analytics.Get(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Summary.Count)

	_, found, _ := f.cache.Get(ctx, "ds-1", "revenue")
	assert.True(t, found)
}

func TestAnalyticsService_ListMetrics(t *testing.T) {
	f := newFixture(t)

	got, err := f.analytics.ListMetrics(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue", "notes"}, got)

	_, err = f.analytics.ListMetrics(context.Background(), "nope")
	requireCode(t, err, CodeDatasetNotFound)

	_, err = f.analytics.ListMetrics(context.Background(), "")
	requireCode(t, err, CodeValidation)
}

func TestAnalyticsService_DeleteResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)
	require.NoError(t, f.analytics.DeleteResults(ctx, "ds-1"))

	_, err = f.store.GetAnalytics(ctx, "ds-1", "revenue")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnalyticsService_Analyze(t *testing.T) {
	f := newFixture(t)

	series := analytics.Series{
		{Date: "2024-01-03", Value: 13},
		{Date: "2024-01-01", Value: 10},
		{Date: "2024-01-05", Value: 1000},
		{Date: "2024-01-02", Value: 12},
		{Date: "2024-01-04", Value: 11},
	}

	result, err := f.analytics.Analyze(series, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Summary.Count)
	assert.Equal(t, "2024-01-01", result.TimeSeriesData[0].Date)
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, "2024-01-05", result.Anomalies[0].Date)
	assert.Equal(t, anomaly.TypeIQR, result.Anomalies[0].Type)

	// With a lower threshold z-score flags the date as low first; the IQR
	// pass still replaces it with its high-severity entry
	low := 1.5
	result, err = f.analytics.Analyze(series, &low)
	require.NoError(t, err)
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, anomaly.TypeIQR, result.Anomalies[0].Type)
	assert.Equal(t, anomaly.SeverityHigh, result.Anomalies[0].Severity)

	_, err = f.analytics.Analyze(analytics.Series{}, nil)
	requireCode(t, err, CodeValidation)
}

func TestAnalyticsService_AnalyzeNoAnomaliesIsEmptyList(t *testing.T) {
	f := newFixture(t)

	result, err := f.analytics.Analyze(analytics.Series{{Date: "2024-01-01", Value: 5}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, result.Anomalies)
	assert.Empty(t, result.Anomalies)
}
