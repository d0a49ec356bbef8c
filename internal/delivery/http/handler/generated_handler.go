package handler

import (
	"autocv/internal/delivery/http/middleware"
	"autocv/internal/pkg/response"
	"autocv/internal/service"

	"github.com/gofiber/fiber/v3"
)

type GeneratedHandler struct {
	svc *service.Service
}

func NewGeneratedHandler(svc *service.Service) *GeneratedHandler {
	return &GeneratedHandler{svc: svc}
}

func (h *GeneratedHandler) HandleListGenerated(c fiber.Ctx) error {
	list, err := h.svc.Artifacts.List()
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, "success", list)
}

func (h *GeneratedHandler) HandleDownloadGenerated(c fiber.Ctx) error {
	path, err := h.svc.Artifacts.Path(c.Params("name"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusNotFound, "Artifact not found", nil, err)
	}
	return c.SendFile(path)
}

func (h *GeneratedHandler) HandleDeleteGenerated(c fiber.Ctx) error {
	name := c.Params("name")
	if err := h.svc.Artifacts.Delete(name); err != nil {
		return middleware.NewAppError(fiber.StatusNotFound, "Artifact not found", nil, err)
	}
	return response.Success(c, fiber.StatusOK, "artifact deleted", fiber.Map{"name": name})
}
