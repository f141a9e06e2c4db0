package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/forecast"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

// maxForecastDays bounds the horizon a caller can request.
const maxForecastDays = 365

type ForecastHandler struct {
	forecastService *forecast.Service
}

func NewForecastHandler(forecastService *forecast.Service) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

func (h *ForecastHandler) Register(api fiber.Router) {
	api.Get("/forecast/:metric", h.Forecast)
}

// Forecast projects the named metric over ?days=N future days. A metric
// with no history yields an empty list, not an error.
func (h *ForecastHandler) Forecast(c *fiber.Ctx) error {
	if _, err := GetUserID(c); err != nil {
		return respondError(c, apperr.Unauthorized("missing user identity"))
	}

	metric := c.Params("metric")
	if metric == "" {
		return respondError(c, apperr.BadRequest("metric name is required"))
	}

	days := c.QueryInt("days", 7)
	if days < 0 || days > maxForecastDays {
		return respondError(c, apperr.BadRequest("days must be between 0 and 365"))
	}

	points, err := h.forecastService.Forecast(c.Context(), metric, days)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.Map{
		"metric":  metric,
		"horizon": days,
		"points":  points,
	})
}
