package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/services"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger    *logging.Logger
	analytics *services.AnalyticsService
	reports   *services.ReportService
}

// New creates a new handler instance
func New(logger *logging.Logger, analytics *services.AnalyticsService, reports *services.ReportService) *Handler {
	return &Handler{
		logger:    logger,
		analytics: analytics,
		reports:   reports,
	}
}

// statusFor maps service error codes to HTTP statuses
func statusFor(code string) int {
	switch code {
	case services.CodeValidation:
		return fiber.StatusBadRequest
	case services.CodeDatasetNotFound, services.CodeAnalyticsNotFound, services.CodeReportNotFound:
		return fiber.StatusNotFound
	case services.CodeDatasetNotReady:
		return fiber.StatusConflict
	case services.CodeNoRecords, services.CodeNoNumericValues:
		return fiber.StatusUnprocessableEntity
	case services.CodeServiceUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes a ServiceError as the error envelope. Internal details
// are logged but never sent to the client.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = services.NewServiceError(services.CodeInternal, "Internal Server Error")
		h.logger.Error("Unexpected handler error", "path", c.Path(), "error", err)
	}

	status := statusFor(svcErr.Code)
	details := svcErr.Details
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("Request failed",
			"path", c.Path(),
			"code", svcErr.Code,
			"message", svcErr.Message,
			"details", svcErr.Details)
		details = nil
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Details: details,
		},
	})
}

// badRequest writes a validation error
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeValidation,
			Message: message,
		},
	})
}
