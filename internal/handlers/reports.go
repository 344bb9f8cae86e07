package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/statlens/statlens/internal/models"
)

// GenerateReport handles POST /v1/reports
func (h *Handler) GenerateReport(c *fiber.Ctx) error {
	var req models.GenerateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.reports.Generate(c.UserContext(), req.DatasetID, req.Metrics)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.ReportResponse{Report: report})
}

// GetReport handles GET /v1/reports/:report_id
func (h *Handler) GetReport(c *fiber.Ctx) error {
	report, err := h.reports.Get(c.UserContext(), c.Params("report_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.ReportResponse{Report: report})
}

// GetInsights handles GET /v1/reports/:dataset_id/insights?metric=
func (h *Handler) GetInsights(c *fiber.Ctx) error {
	datasetID := c.Params("dataset_id")
	metric := c.Query("metric")
	if metric == "" {
		return badRequest(c, "Metric parameter is required")
	}

	insights, err := h.reports.Insights(c.UserContext(), datasetID, metric)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.InsightsResponse{DatasetID: datasetID, Metric: metric, Insights: insights})
}
