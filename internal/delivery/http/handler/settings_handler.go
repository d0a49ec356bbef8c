package handler

import (
	"autocv/internal/delivery/http/middleware"
	"autocv/internal/pkg/response"
	"autocv/internal/service"

	"github.com/gofiber/fiber/v3"
)

type SettingsHandler struct {
	svc *service.Service
}

func NewSettingsHandler(svc *service.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) HandleGetSettings(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, "success", h.svc.Settings())
}

func (h *SettingsHandler) HandleUpdateSettings(c fiber.Ctx) error {
	var in service.Settings
	if err := c.Bind().Body(&in); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	out, err := h.svc.UpdateSettings(in)
	if err != nil {
		return middleware.NewAppError(fiber.StatusUnprocessableEntity, err.Error(), nil, err)
	}
	return response.Success(c, fiber.StatusOK, "settings updated", out)
}
