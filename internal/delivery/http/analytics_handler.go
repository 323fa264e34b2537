package http

import (
	"io"

	"github.com/labstack/echo/v4"

	"quantshared/internal/analytics"
	"quantshared/internal/validation"
)

// AnalyticsHandler computes performance metrics on request
type AnalyticsHandler struct{}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler() *AnalyticsHandler {
	return &AnalyticsHandler{}
}

// Performance computes PerformanceMetrics from an equity curve and trade returns
// POST /api/analytics/performance
func (h *AnalyticsHandler) Performance(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequestResponse(c, "Failed to read request body")
	}

	in, err := validation.Decode[analytics.Input](body)
	if err != nil {
		return HandleError(c, err, "Invalid performance request")
	}

	metrics, err := analytics.Compute(in)
	if err != nil {
		if validation.IsValidationError(err) {
			return HandleError(c, err, "Computed metrics are out of range")
		}
		// everything else describes a problem with the input series
		return BadRequestResponse(c, err.Error())
	}
	return SuccessResponse(c, metrics)
}
