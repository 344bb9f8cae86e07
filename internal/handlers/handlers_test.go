package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens/internal/analytics/anomaly"
	"github.com/statlens/statlens/internal/archive"
	"github.com/statlens/statlens/internal/cache"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/services"
	"github.com/statlens/statlens/internal/store"
)

var revenue = []float64{
	100, 102, 98, 101, 99, 103, 97, 100, 102, 98,
	101, 99, 100, 103, 500, 98, 101, 100, 99, 102,
}

func seed() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.PutDataset(models.Dataset{
		ID:      "ds-1",
		Name:    "Sales",
		Columns: []string{"id", "date", "revenue", "notes"},
		Status:  models.DatasetStatusProcessed,
	})
	for i, v := range revenue {
		s.AppendRecords("ds-1", models.Record{
			ID: fmt.Sprintf("r-%d", i),
			Data: map[string]interface{}{
				"date":    fmt.Sprintf("2024-01-%02d", i+1),
				"revenue": v,
				"notes":   "n/a",
			},
		})
	}
	s.PutDataset(models.Dataset{ID: "ds-pending", Name: "Pending", Status: models.DatasetStatusProcessing})
	s.PutDataset(models.Dataset{ID: "ds-empty", Name: "Empty", Status: models.DatasetStatusProcessed})
	return s
}

func newTestApp(t *testing.T, results store.ResultStore) *fiber.App {
	t.Helper()

	s := seed()
	if results == nil {
		results = s
	}
	c := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { _ = c.Close() })

	reportArchive, err := archive.NewFileArchive(t.TempDir())
	require.NoError(t, err)

	logger := logging.NewNop()
	analyticsSvc := services.NewAnalyticsService(logger, services.AnalyticsDeps{
		Datasets: s,
		Results:  results,
		Cache:    c,
	})
	h := New(logger, analyticsSvc, services.NewReportService(logger, analyticsSvc, reportArchive))

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Post("/v1/analyze", h.Analyze)
	app.Post("/v1/analytics/run", h.RunAnalytics)
	app.Get("/v1/analytics/:dataset_id/metrics", h.ListMetrics)
	app.Delete("/v1/analytics/:dataset_id/cache", h.InvalidateCache)
	app.Get("/v1/analytics/:dataset_id", h.GetAnalytics)
	app.Post("/v1/reports", h.GenerateReport)
	app.Get("/v1/reports/:dataset_id/insights", h.GetInsights)
	app.Get("/v1/reports/:report_id", h.GetReport)
	app.Use(h.NotFound)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func errorCode(t *testing.T, data []byte) models.ErrorDetail {
	t.Helper()

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &resp), string(data))
	return resp.Error
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/health", nil)
	require.Equal(t, fiber.StatusOK, status)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	assert.NoError(t, err)
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/v2/nothing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	detail := errorCode(t, body)
	assert.Equal(t, "NOT_FOUND", detail.Code)
	assert.Equal(t, "/v2/nothing", detail.Path)
}

func TestAnalyze(t *testing.T) {
	app := newTestApp(t, nil)

	req := map[string]interface{}{
		"series": []map[string]interface{}{
			{"date": "2024-01-05", "value": 1000},
			{"date": "2024-01-01", "value": 10},
			{"date": "2024-01-02", "value": 12},
			{"date": "2024-01-03", "value": 11},
			{"date": "2024-01-04", "value": 13},
		},
	}
	status, body := do(t, app, "POST", "/v1/analyze", req)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 5, result.Summary.Count)
	assert.Equal(t, "2024-01-01", result.TimeSeriesData[0].Date)

	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, "2024-01-05", result.Anomalies[0].Date)
	assert.Equal(t, anomaly.TypeIQR, result.Anomalies[0].Type)
	assert.Equal(t, anomaly.SeverityHigh, result.Anomalies[0].Severity)
}

func TestAnalyze_BadRequests(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", "{"},
		{"empty series", map[string]interface{}{"series": []interface{}{}}},
		{"missing date", map[string]interface{}{"series": []map[string]interface{}{{"value": 1}}}},
		{"negative threshold", map[string]interface{}{
			"series":           []map[string]interface{}{{"date": "2024-01-01", "value": 1}},
			"zscore_threshold": -1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "POST", "/v1/analyze", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, services.CodeValidation, errorCode(t, body).Code)
		})
	}
}

func TestRunAnalytics(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/v1/analytics/run", models.RunAnalyticsRequest{DatasetID: "ds-1", Metric: "revenue"})
	require.Equal(t, fiber.StatusOK, status, string(body))

	var resp models.AnalyticsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Analytics)
	assert.Equal(t, "ds-1", resp.Analytics.DatasetID)
	assert.Equal(t, 20, resp.Analytics.Summary.Count)
	require.Len(t, resp.Analytics.Anomalies, 1)
	assert.Equal(t, "2024-01-15", resp.Analytics.Anomalies[0].Date)
	assert.Equal(t, anomaly.SeverityHigh, resp.Analytics.Anomalies[0].Severity)

	// Contract field names
	var raw map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Contains(t, raw["analytics"], "datasetId")
	assert.Contains(t, raw["analytics"], "timeSeriesData")
}

func TestRunAnalytics_Errors(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name       string
		req        interface{}
		wantStatus int
		wantCode   string
	}{
		{"missing metric", models.RunAnalyticsRequest{DatasetID: "ds-1"}, 400, services.CodeValidation},
		{"unknown dataset", models.RunAnalyticsRequest{DatasetID: "nope", Metric: "revenue"}, 404, services.CodeDatasetNotFound},
		{"not ready", models.RunAnalyticsRequest{DatasetID: "ds-pending", Metric: "revenue"}, 409, services.CodeDatasetNotReady},
		{"no records", models.RunAnalyticsRequest{DatasetID: "ds-empty", Metric: "revenue"}, 422, services.CodeNoRecords},
		{"not numeric", models.RunAnalyticsRequest{DatasetID: "ds-1", Metric: "notes"}, 422, services.CodeNoNumericValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "POST", "/v1/analytics/run", tt.req)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, errorCode(t, body).Code)
		})
	}
}

type brokenResults struct {
	store.ResultStore
}

func (brokenResults) SaveAnalytics(context.Context, *models.AnalyticsResult) error {
	return errors.New("connection reset by peer")
}

func TestRunAnalytics_InternalErrorHidesDetails(t *testing.T) {
	app := newTestApp(t, brokenResults{})

	status, body := do(t, app, "POST", "/v1/analytics/run", models.RunAnalyticsRequest{DatasetID: "ds-1", Metric: "revenue"})
	assert.Equal(t, fiber.StatusInternalServerError, status)

	detail := errorCode(t, body)
	assert.Equal(t, services.CodeInternal, detail.Code)
	assert.Nil(t, detail.Details)
	assert.NotContains(t, string(body), "connection reset")
}

func TestGetAnalytics(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/v1/analytics/ds-1", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, services.CodeValidation, errorCode(t, body).Code)

	status, body = do(t, app, "GET", "/v1/analytics/ds-1?metric=revenue", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, services.CodeAnalyticsNotFound, errorCode(t, body).Code)

	status, _ = do(t, app, "POST", "/v1/analytics/run", models.RunAnalyticsRequest{DatasetID: "ds-1", Metric: "revenue"})
	require.Equal(t, fiber.StatusOK, status)

	status, body = do(t, app, "GET", "/v1/analytics/ds-1?metric=revenue", nil)
	require.Equal(t, fiber.StatusOK, status)

	var resp models.AnalyticsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "revenue", resp.Analytics.Metric)
	assert.Len(t, resp.Analytics.TimeSeriesData, 20)
}

func TestListMetrics(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/v1/analytics/ds-1/metrics", nil)
	require.Equal(t, fiber.StatusOK, status)

	var resp models.MetricsListResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, []string{"revenue", "notes"}, resp.Metrics)

	status, body = do(t, app, "GET", "/v1/analytics/missing/metrics", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, services.CodeDatasetNotFound, errorCode(t, body).Code)
}

func TestInvalidateCache(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "DELETE", "/v1/analytics/ds-1/cache", nil)
	require.Equal(t, fiber.StatusOK, status)

	var resp models.CacheInvalidateResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ds-1", resp.DatasetID)
	assert.True(t, resp.Invalidated)
}

func TestReports(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/v1/reports", models.GenerateReportRequest{
		DatasetID: "ds-1",
		Metrics:   []string{"revenue", "notes"},
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var created models.ReportResponse
	require.NoError(t, json.Unmarshal(body, &created))
	report := created.Report
	require.NotNil(t, report)
	assert.Equal(t, "Sales", report.DatasetName)
	assert.Equal(t, models.ReportSummary{TotalMetrics: 2, SuccessfulMetrics: 1, FailedMetrics: 1, TotalAnomalies: 1}, report.Summary)

	status, body = do(t, app, "GET", "/v1/reports/"+report.ID, nil)
	require.Equal(t, fiber.StatusOK, status)

	var fetched models.ReportResponse
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, report.ID, fetched.Report.ID)
	assert.Len(t, fetched.Report.Metrics, 2)
}

func TestReports_Errors(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"missing metrics", "POST", "/v1/reports", models.GenerateReportRequest{DatasetID: "ds-1"}, 400, services.CodeValidation},
		{"missing dataset id", "POST", "/v1/reports", models.GenerateReportRequest{Metrics: []string{"revenue"}}, 400, services.CodeValidation},
		{"unknown dataset", "POST", "/v1/reports", models.GenerateReportRequest{DatasetID: "nope", Metrics: []string{"revenue"}}, 404, services.CodeDatasetNotFound},
		{"unknown report", "GET", "/v1/reports/report_missing", nil, 404, services.CodeReportNotFound},
		{"insights without metric", "GET", "/v1/reports/ds-1/insights", nil, 400, services.CodeValidation},
		{"insights before run", "GET", "/v1/reports/ds-1/insights?metric=revenue", nil, 404, services.CodeAnalyticsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, errorCode(t, body).Code)
		})
	}
}

func TestGetInsights(t *testing.T) {
	app := newTestApp(t, nil)

	status, _ := do(t, app, "POST", "/v1/analytics/run", models.RunAnalyticsRequest{DatasetID: "ds-1", Metric: "revenue"})
	require.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, "GET", "/v1/reports/ds-1/insights?metric=revenue", nil)
	require.Equal(t, fiber.StatusOK, status, string(body))

	var resp models.InsightsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Insights)
	assert.Equal(t, models.InsightSummary, resp.Insights[0].Type)

	var sawAnomaly bool
	for _, in := range resp.Insights {
		if in.Type == models.InsightAnomaly && in.Severity == models.InsightSeverityHigh {
			sawAnomaly = true
		}
	}
	assert.True(t, sawAnomaly, "expected a high anomaly insight")
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		services.CodeValidation:         400,
		services.CodeDatasetNotFound:    404,
		services.CodeAnalyticsNotFound:  404,
		services.CodeReportNotFound:     404,
		services.CodeDatasetNotReady:    409,
		services.CodeNoRecords:          422,
		services.CodeNoNumericValues:    422,
		services.CodeServiceUnavailable: 503,
		services.CodeInternal:           500,
		"SOMETHING_ELSE":                500,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusFor(code), code)
	}
}
