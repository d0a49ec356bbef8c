package handler

import (
	"autocv/internal/pkg/response"
	"autocv/internal/service"

	"github.com/gofiber/fiber/v3"
)

type StatusHandler struct {
	svc *service.Service
}

func NewStatusHandler(svc *service.Service) *StatusHandler {
	return &StatusHandler{svc: svc}
}

func (h *StatusHandler) HandleHealth(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *StatusHandler) HandleStatus(c fiber.Ctx) error {
	report := h.svc.Status(c.Context())
	return response.Success(c, fiber.StatusOK, "success", report)
}

func (h *StatusHandler) HandleTask(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, "success", h.svc.Tasks.Status())
}
