package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/statlens/statlens/internal/analytics/insights"
	"github.com/statlens/statlens/internal/archive"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
)

// ReportService bundles analytics of several metrics into archived reports
type ReportService struct {
	logger    *logging.Logger
	analytics *AnalyticsService
	archive   archive.ReportArchive
	now       func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(logger *logging.Logger, analytics *AnalyticsService, reports archive.ReportArchive) *ReportService {
	return &ReportService{
		logger:    logger,
		analytics: analytics,
		archive:   reports,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate runs analytics for every requested metric. A failing metric is
// recorded in the report instead of failing the whole report.
func (s *ReportService) Generate(ctx context.Context, datasetID string, metricNames []string) (*models.Report, error) {
	if datasetID == "" {
		return nil, NewServiceError(CodeValidation, "dataset_id is required")
	}
	if len(metricNames) == 0 {
		return nil, NewServiceError(CodeValidation, "metrics array is required")
	}

	dataset, err := s.analytics.getDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.MetricReport, 0, len(metricNames))
	for _, metric := range metricNames {
		result, err := s.analytics.Run(ctx, datasetID, metric)
		if err != nil {
			entries = append(entries, models.MetricReport{Metric: metric, Success: false, Error: err.Error()})
			continue
		}
		entries = append(entries, models.MetricReport{Metric: metric, Success: true, Data: result})
	}

	report := &models.Report{
		ID:          "report_" + uuid.New().String(),
		DatasetID:   datasetID,
		DatasetName: dataset.Name,
		GeneratedAt: s.now(),
		Metrics:     entries,
		Summary:     models.Summarize(entries),
	}

	if err := s.archive.Put(ctx, report); err != nil {
		return nil, internalError("archive report", err)
	}

	s.logger.Info("Report generated",
		"report_id", report.ID,
		"dataset_id", datasetID,
		"metrics", report.Summary.TotalMetrics,
		"failed", report.Summary.FailedMetrics,
		"anomalies", report.Summary.TotalAnomalies)

	return report, nil
}

// Get returns an archived report
func (s *ReportService) Get(ctx context.Context, reportID string) (*models.Report, error) {
	report, err := s.archive.Get(ctx, reportID)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, NewServiceErrorWithDetails(CodeReportNotFound, "Report not found",
				map[string]interface{}{"report_id": reportID})
		}
		return nil, internalError("load report", err)
	}
	return report, nil
}

// Insights derives human-readable insights from stored analytics
func (s *ReportService) Insights(ctx context.Context, datasetID, metric string) ([]models.Insight, error) {
	result, err := s.analytics.Get(ctx, datasetID, metric)
	if err != nil {
		return nil, err
	}
	return insights.Generate(result), nil
}
