package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/analytics/stats"
	"github.com/statlens/statlens/internal/cache"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/metrics"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/queue"
	"github.com/statlens/statlens/internal/store"
	"github.com/statlens/statlens/internal/utils"
)

// AnalyticsDeps are the collaborators of an AnalyticsService.
// Cache, Events and Metrics are optional.
type AnalyticsDeps struct {
	Datasets   store.DatasetStore
	Results    store.ResultStore
	Cache      cache.AnalyticsCache
	Events     *queue.Events
	Metrics    *metrics.Registry
	Detector   anomaly.Config
	RunTimeout time.Duration
}

// AnalyticsService runs and serves per-metric analytics of stored datasets
type AnalyticsService struct {
	logger     *logging.Logger
	datasets   store.DatasetStore
	results    store.ResultStore
	cache      cache.AnalyticsCache
	events     *queue.Events
	metrics    *metrics.Registry
	detector   anomaly.Config
	runTimeout time.Duration
	group      singleflight.Group
	now        func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(logger *logging.Logger, deps AnalyticsDeps) *AnalyticsService {
	if deps.Cache == nil {
		deps.Cache = cache.NopCache{}
	}
	if deps.Events == nil {
		deps.Events = queue.NewEvents(nil)
	}
	if deps.Detector == (anomaly.Config{}) {
		deps.Detector = anomaly.DefaultConfig()
	}
	if deps.RunTimeout <= 0 {
		deps.RunTimeout = utils.DefaultRequestTimeout
	}

	return &AnalyticsService{
		logger:     logger,
		datasets:   deps.Datasets,
		results:    deps.Results,
		cache:      deps.Cache,
		events:     deps.Events,
		metrics:    deps.Metrics,
		detector:   deps.Detector,
		runTimeout: deps.RunTimeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run computes analytics of one metric of a dataset, or returns the cached result.
// Concurrent runs of the same (dataset, metric) share one computation.
func (s *AnalyticsService) Run(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, error) {
	if err := validateTarget(datasetID, metric); err != nil {
		return nil, err
	}

	if cached, ok := s.cacheGet(ctx, datasetID, metric); ok {
		s.metrics.ObserveRun(metrics.OutcomeCached, 0)
		return cached, nil
	}

	v, err, shared := s.group.Do(cache.Key(datasetID, metric), func() (interface{}, error) {
		// Detached so one caller going away does not fail the others
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
		defer cancel()
		return s.compute(runCtx, datasetID, metric)
	})
	if shared {
		s.logger.Debug("Joined in-flight analytics run", "dataset_id", datasetID, "metric", metric)
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.AnalyticsResult), nil
}

func (s *AnalyticsService) compute(ctx context.Context, datasetID, metric string) (result *models.AnalyticsResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			s.metrics.ObserveRun(metrics.OutcomeError, time.Since(start))
			s.logger.Warn("Analytics run failed",
				"dataset_id", datasetID, "metric", metric, "code", ErrorCode(err), "error", err)
		}
	}()

	dataset, err := s.getDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !dataset.IsReady() {
		return nil, NewServiceErrorWithDetails(CodeDatasetNotReady, "Dataset is not ready for analytics",
			map[string]interface{}{"status": dataset.Status})
	}

	records, err := s.datasets.ListRecords(ctx, datasetID)
	if err != nil {
		return nil, internalError("load records", err)
	}
	if len(records) == 0 {
		return nil, NewServiceError(CodeNoRecords, "No records found for dataset")
	}

	series := ExtractSeries(dataset, records, metric)
	if len(series) == 0 {
		return nil, NewServiceErrorWithDetails(CodeNoNumericValues, "No valid numeric values found for metric: "+metric,
			map[string]interface{}{"metric": metric, "records": len(records)})
	}

	analysis, err := analyze(series, s.detector)
	if err != nil {
		return nil, internalError("compute analytics", err)
	}

	now := s.now()
	result = &models.AnalyticsResult{
		DatasetID:      datasetID,
		Metric:         metric,
		Summary:        analysis.Summary,
		Anomalies:      analysis.Anomalies,
		TimeSeriesData: analysis.TimeSeriesData,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.results.SaveAnalytics(ctx, result); err != nil {
		return nil, internalError("save analytics", err)
	}

	s.cacheSet(ctx, result)
	s.publishCompleted(ctx, result)

	elapsed := time.Since(start)
	s.metrics.ObserveRun(metrics.OutcomeSuccess, elapsed)
	s.metrics.ObserveAnomalies(result.Anomalies)

	s.logger.Info("Analytics run completed",
		"dataset_id", datasetID,
		"metric", metric,
		"count", result.Summary.Count,
		"anomalies", len(result.Anomalies),
		"duration", elapsed)

	return result, nil
}

// Get returns previously computed analytics
func (s *AnalyticsService) Get(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, error) {
	if err := validateTarget(datasetID, metric); err != nil {
		return nil, err
	}

	if cached, ok := s.cacheGet(ctx, datasetID, metric); ok {
		return cached, nil
	}

	if _, err := s.getDataset(ctx, datasetID); err != nil {
		return nil, err
	}

	result, err := s.results.GetAnalytics(ctx, datasetID, metric)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewServiceErrorWithDetails(CodeAnalyticsNotFound, "Analytics not found. Please run analytics first.",
				map[string]interface{}{"dataset_id": datasetID, "metric": metric})
		}
		return nil, internalError("load analytics", err)
	}

	s.cacheSet(ctx, result)
	return result, nil
}

// ListMetrics returns the columns of a dataset that can be analyzed
func (s *AnalyticsService) ListMetrics(ctx context.Context, datasetID string) ([]string, error) {
	if datasetID == "" {
		return nil, NewServiceError(CodeValidation, "dataset_id is required")
	}

	dataset, err := s.getDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return dataset.MetricColumns(), nil
}

// InvalidateCache drops every cached result of a dataset. Failures are logged
// and reported through the return value only.
func (s *AnalyticsService) InvalidateCache(ctx context.Context, datasetID string) bool {
	ctx, cancel := context.WithTimeout(ctx, utils.CacheOpTimeout)
	defer cancel()

	if err := s.cache.InvalidateDataset(ctx, datasetID); err != nil {
		s.logger.Warn("Cache invalidation failed", "dataset_id", datasetID, "error", err)
		return false
	}
	return true
}

// DeleteResults removes every stored result of a dataset
func (s *AnalyticsService) DeleteResults(ctx context.Context, datasetID string) error {
	if err := s.results.DeleteAnalytics(ctx, datasetID); err != nil {
		return internalError("delete analytics", err)
	}
	return nil
}

// Analyze runs the engine over a caller-provided series without touching any store.
// A nil threshold uses the configured z-score threshold.
func (s *AnalyticsService) Analyze(series analytics.Series, zscoreThreshold *float64) (*models.AnalysisResult, error) {
	cfg := s.detector
	if zscoreThreshold != nil {
		cfg.ZScoreThreshold = *zscoreThreshold
	}

	result, err := analyze(series, cfg)
	if err != nil {
		return nil, NewServiceError(CodeValidation, err.Error())
	}
	return result, nil
}

// analyze computes the summary, anomalies and date-ordered series
func analyze(series analytics.Series, cfg anomaly.Config) (*models.AnalysisResult, error) {
	summary, err := stats.Compute(series.Values())
	if err != nil {
		return nil, err
	}

	anomalies := anomaly.DetectWithConfig(series, cfg)
	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}

	return &models.AnalysisResult{
		Summary:        summary,
		Anomalies:      anomalies,
		TimeSeriesData: analytics.SortByDate(series),
	}, nil
}

func (s *AnalyticsService) getDataset(ctx context.Context, datasetID string) (*models.Dataset, error) {
	dataset, err := s.datasets.GetDataset(ctx, datasetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewServiceErrorWithDetails(CodeDatasetNotFound, "Dataset not found",
				map[string]interface{}{"dataset_id": datasetID})
		}
		return nil, internalError("load dataset", err)
	}
	return dataset, nil
}

// cacheGet treats any cache failure as a miss
func (s *AnalyticsService) cacheGet(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, utils.CacheOpTimeout)
	defer cancel()

	result, found, err := s.cache.Get(ctx, datasetID, metric)
	if err != nil {
		s.logger.Warn("Cache lookup failed", "dataset_id", datasetID, "metric", metric, "error", err)
		found = false
	}
	s.metrics.CacheLookup(found)
	return result, found
}

func (s *AnalyticsService) cacheSet(ctx context.Context, result *models.AnalyticsResult) {
	ctx, cancel := context.WithTimeout(ctx, utils.CacheOpTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, result); err != nil {
		s.logger.Warn("Cache write failed", "dataset_id", result.DatasetID, "metric", result.Metric, "error", err)
	}
}

func (s *AnalyticsService) publishCompleted(ctx context.Context, result *models.AnalyticsResult) {
	ctx, cancel := context.WithTimeout(ctx, utils.EventPublishTimeout)
	defer cancel()

	event := models.AnalyticsCompletedEvent{
		DatasetID:    result.DatasetID,
		Metric:       result.Metric,
		Count:        result.Summary.Count,
		AnomalyCount: len(result.Anomalies),
		HighCount:    anomaly.CountBySeverity(result.Anomalies)[anomaly.SeverityHigh],
		CompletedAt:  result.UpdatedAt,
	}
	if err := s.events.PublishAnalyticsCompleted(ctx, event); err != nil {
		s.logger.Warn("Failed to publish analytics event", "dataset_id", result.DatasetID, "metric", result.Metric, "error", err)
	}
}

func validateTarget(datasetID, metric string) error {
	if datasetID == "" {
		return NewServiceError(CodeValidation, "dataset_id is required")
	}
	if metric == "" {
		return NewServiceError(CodeValidation, "metric is required")
	}
	return nil
}
