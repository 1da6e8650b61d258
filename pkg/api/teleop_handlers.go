package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/open-teleop/legged-teleop/pkg/processing"
)

// StatusProvider reports the command loop's state
type StatusProvider interface {
	Snapshot() processing.LoopSnapshot
}

// IndicatorPublisher forwards status light colors to the operator device
type IndicatorPublisher interface {
	PublishIndicator(color teleop.IndicatorColor) error
}

// TeleopHandler serves loop status and operator feedback endpoints
type TeleopHandler struct {
	status    StatusProvider
	indicator IndicatorPublisher
	logger    customlog.Logger
}

// RegisterTeleopRoutes registers the teleop API endpoints with the Fiber app.
func RegisterTeleopRoutes(app *fiber.App, status StatusProvider, indicator IndicatorPublisher, logger customlog.Logger) {
	h := &TeleopHandler{
		status:    status,
		indicator: indicator,
		logger:    logger,
	}

	apiGroup := app.Group("/api/v1/teleop")
	apiGroup.Get("/status", h.handleGetStatus)
	apiGroup.Put("/indicator", h.handleSetIndicator)

	logger.Infof("Registered teleop API endpoints under /api/v1/teleop")
}

func (h *TeleopHandler) handleGetStatus(c *fiber.Ctx) error {
	snap := h.status.Snapshot()
	return c.JSON(fiber.Map{
		"loop":            snap,
		"shared_channels": snap.Settings.Channels.SharedChannels(),
	})
}

func (h *TeleopHandler) handleSetIndicator(c *fiber.Ctx) error {
	if h.indicator == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "indicator output not configured")
	}

	var req IndicatorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid indicator request: "+err.Error())
	}
	if req.Color == nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing color")
	}
	if err := req.Color.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.indicator.PublishIndicator(*req.Color); err != nil {
		h.logger.Errorf("Failed to publish indicator color: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to publish indicator color")
	}
	return c.JSON(fiber.Map{"color": req.Color})
}
