package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/arister/internal/models"
	"github.com/example/arister/internal/services"
)

// SettingsHandler manages payment policy configuration.
type SettingsHandler struct {
	settings *services.SettingsService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetCod returns the COD configuration.
func (h *SettingsHandler) GetCod(c *fiber.Ctx) error {
	settings, err := h.settings.Get()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": settings.COD})
}

// UpdateCod merges the request into the COD configuration. Fields absent
// from the body keep their current values.
func (h *SettingsHandler) UpdateCod(c *fiber.Ctx) error {
	settings, err := h.settings.Get()
	if err != nil {
		return err
	}

	cod := settings.COD
	if err := c.BodyParser(&cod); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	switch cod.Pricing.Type {
	case models.CODPricingFixed, models.CODPricingPercentage, models.CODPricingTiered, models.CODPricingDynamic:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown pricing type")
	}

	settings.COD = cod
	if err := h.settings.Save(settings); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": settings.COD})
}

type onlinePaymentRequest struct {
	Enabled bool `json:"enabled"`
}

// UpdateOnlinePayment toggles online payment acceptance.
func (h *SettingsHandler) UpdateOnlinePayment(c *fiber.Ctx) error {
	settings, err := h.settings.Get()
	if err != nil {
		return err
	}

	var req onlinePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	settings.OnlinePayment.Enabled = req.Enabled
	if err := h.settings.Save(settings); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": settings.OnlinePayment})
}
