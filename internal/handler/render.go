package handler

import (
	"github.com/framecut/api/internal/middleware"
	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/render
// @Summary      Start render job
// @Description  Queue an asynchronous export of a timeline to a video file
// @Tags         Render
// @Accept       json
// @Produce      json
// @Param        request body model.RenderStartRequest true "Render start request"
// @Success      202 {object} model.RenderStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render [post]
func (h *RenderHandler) Start(c *fiber.Ctx) error {
	var req model.RenderStartRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.service.StartRender(c.UserContext(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/render/:jobId
// @Summary      Get render job status
// @Tags         Render
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RenderStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/{jobId} [get]
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	result, err := h.service.GetStatus(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return serviceError(c, err, "Job")
	}

	return response.OK(c, result)
}

// Cancel handles DELETE /api/render/:jobId
// @Summary      Cancel render job
// @Description  Cancel a pending or processing render job
// @Tags         Render
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RenderCancelResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/{jobId} [delete]
func (h *RenderHandler) Cancel(c *fiber.Ctx) error {
	result, err := h.service.CancelRender(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return serviceError(c, err, "Job")
	}

	return response.OK(c, result)
}
