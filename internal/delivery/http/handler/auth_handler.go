package handler

import (
	"autocv/internal/delivery/http/middleware"
	"autocv/internal/pkg/jwt"
	"autocv/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler issues dashboard session tokens against the configured
// password hash. Only mounted when a hash is set.
type AuthHandler struct {
	jwt          jwt.Service
	passwordHash []byte
}

func NewAuthHandler(jwtSvc jwt.Service, passwordHash string) *AuthHandler {
	return &AuthHandler{jwt: jwtSvc, passwordHash: []byte(passwordHash)}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) HandleLogin(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Invalid password", nil, err)
	}

	token, err := h.jwt.GenerateSessionToken()
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, "success", fiber.Map{"token": token})
}
