package handler

import (
	"errors"

	"autocv/internal/delivery/http/middleware"
	"autocv/internal/jobstore"
	"autocv/internal/pkg/response"
	"autocv/internal/service"
	"autocv/internal/task"

	"github.com/gofiber/fiber/v3"
)

// TasksHandler starts the two background operations. Both return 409 when
// the task slot is taken.
type TasksHandler struct {
	svc *service.Service
}

func NewTasksHandler(svc *service.Service) *TasksHandler {
	return &TasksHandler{svc: svc}
}

func (h *TasksHandler) HandleStartSearch(c fiber.Ctx) error {
	var req service.SearchRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if req.Query == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "query is required", nil, nil)
	}

	snap, err := h.svc.StartSearch(req)
	if err != nil {
		return mapTaskError(err)
	}
	return response.Success(c, fiber.StatusAccepted, "search started", snap)
}

type generateRequest struct {
	JobID string `json:"job_id"`
}

func (h *TasksHandler) HandleStartGenerate(c fiber.Ctx) error {
	var req generateRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if req.JobID == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "job_id is required", nil, nil)
	}

	snap, err := h.svc.StartGenerate(req.JobID)
	if err != nil {
		return mapTaskError(err)
	}
	return response.Success(c, fiber.StatusAccepted, "generation started", snap)
}

func mapTaskError(err error) error {
	switch {
	case errors.Is(err, task.ErrTaskRunning):
		return middleware.NewAppError(fiber.StatusConflict, "A task is already running", nil, err)
	case errors.Is(err, jobstore.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", nil, err)
	case errors.Is(err, jobstore.ErrAmbiguousPrefix):
		return middleware.NewAppError(fiber.StatusBadRequest, "Job id prefix is ambiguous", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
}
