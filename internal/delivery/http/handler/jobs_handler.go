package handler

import (
	"errors"

	"autocv/internal/delivery/http/middleware"
	"autocv/internal/jobstore"
	"autocv/internal/pkg/response"
	"autocv/internal/service"

	"github.com/gofiber/fiber/v3"
)

type JobsHandler struct {
	svc *service.Service
}

func NewJobsHandler(svc *service.Service) *JobsHandler {
	return &JobsHandler{svc: svc}
}

func (h *JobsHandler) HandleListJobs(c fiber.Ctx) error {
	jobs, err := h.svc.Jobs.List()
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, "success", jobs)
}

func (h *JobsHandler) HandleGetJob(c fiber.Ctx) error {
	job, err := h.svc.Jobs.Get(c.Params("id"))
	if err != nil {
		return mapJobStoreError(err)
	}
	return response.Success(c, fiber.StatusOK, "success", job)
}

func (h *JobsHandler) HandleDeleteJob(c fiber.Ctx) error {
	job, err := h.svc.Jobs.Get(c.Params("id"))
	if err != nil {
		return mapJobStoreError(err)
	}
	if err := h.svc.Jobs.Delete(job.ID); err != nil {
		return mapJobStoreError(err)
	}
	return response.Success(c, fiber.StatusOK, "job deleted", fiber.Map{"id": job.ID})
}

func mapJobStoreError(err error) error {
	switch {
	case errors.Is(err, jobstore.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", nil, err)
	case errors.Is(err, jobstore.ErrAmbiguousPrefix):
		return middleware.NewAppError(fiber.StatusBadRequest, "Job id prefix is ambiguous", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
