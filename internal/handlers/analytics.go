package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
)

// Analyze handles POST /v1/analyze: a stateless run over the posted series
func (h *Handler) Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.analytics.Analyze(analytics.Series(req.Series), req.ZScoreThreshold)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

// RunAnalytics handles POST /v1/analytics/run
func (h *Handler) RunAnalytics(c *fiber.Ctx) error {
	var req models.RunAnalyticsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := logging.WithAnalyticsTarget(c.UserContext(), req.DatasetID, req.Metric)
	result, err := h.analytics.Run(ctx, req.DatasetID, req.Metric)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(models.AnalyticsResponse{
		Analytics: result,
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// GetAnalytics handles GET /v1/analytics/:dataset_id?metric=
func (h *Handler) GetAnalytics(c *fiber.Ctx) error {
	datasetID := c.Params("dataset_id")
	metric := c.Query("metric")
	if metric == "" {
		return badRequest(c, "Metric parameter is required")
	}

	result, err := h.analytics.Get(c.UserContext(), datasetID, metric)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.AnalyticsResponse{
		Analytics: result,
		RequestID: logging.RequestIDFromContext(c.UserContext()),
	})
}

// ListMetrics handles GET /v1/analytics/:dataset_id/metrics
func (h *Handler) ListMetrics(c *fiber.Ctx) error {
	datasetID := c.Params("dataset_id")

	metrics, err := h.analytics.ListMetrics(c.UserContext(), datasetID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.MetricsListResponse{DatasetID: datasetID, Metrics: metrics})
}

// InvalidateCache handles DELETE /v1/analytics/:dataset_id/cache
func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	datasetID := c.Params("dataset_id")

	return c.JSON(models.CacheInvalidateResponse{
		DatasetID:   datasetID,
		Invalidated: h.analytics.InvalidateCache(c.UserContext(), datasetID),
	})
}
