package handler

import (
	"errors"
	"io/fs"

	"autocv/internal/delivery/http/middleware"
	"autocv/internal/pkg/response"
	"autocv/internal/profile"
	"autocv/internal/service"

	"github.com/gofiber/fiber/v3"
)

type ProfileHandler struct {
	svc *service.Service
}

func NewProfileHandler(svc *service.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) HandleGetProfile(c fiber.Ctx) error {
	prof, err := h.svc.Profile()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return middleware.NewAppError(fiber.StatusNotFound, "Profile not found", nil, err)
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, "success", fiber.Map{
		"profile": prof,
		"issues":  prof.Validate(),
	})
}

func (h *ProfileHandler) HandleSaveProfile(c fiber.Ctx) error {
	var prof profile.Profile
	if err := c.Bind().Body(&prof); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	issues, err := h.svc.SaveProfile(&prof)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	if len(issues) > 0 {
		return middleware.NewAppError(fiber.StatusUnprocessableEntity, "Profile validation failed", fiber.Map{"issues": issues}, nil)
	}
	return response.Success(c, fiber.StatusOK, "profile saved", nil)
}
