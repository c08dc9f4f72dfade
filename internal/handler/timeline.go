package handler

import (
	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type TimelineHandler struct {
	service   *service.TimelineService
	validator *validator.Validate
}

func NewTimelineHandler(svc *service.TimelineService, v *validator.Validate) *TimelineHandler {
	return &TimelineHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/timelines
// @Summary      Create timeline
// @Tags         Timelines
// @Accept       json
// @Produce      json
// @Param        request body model.CreateTimelineRequest true "Timeline"
// @Success      201 {object} model.TimelineResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/timelines [post]
func (h *TimelineHandler) Create(c *fiber.Ctx) error {
	var req model.CreateTimelineRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	t, err := h.service.CreateTimeline(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.Created(c, model.NewTimelineResponse(t))
}

// List handles GET /api/timelines?limit=&offset=
// @Summary      List timelines
// @Tags         Timelines
// @Produce      json
// @Param        limit  query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {object} model.TimelineListResponse
// @Security     BearerAuth
// @Router       /api/timelines [get]
func (h *TimelineHandler) List(c *fiber.Ctx) error {
	list, limit, offset, err := h.service.ListTimelines(c.UserContext(), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	resp := model.TimelineListResponse{
		Timelines: make([]model.TimelineResponse, 0, len(list)),
		Limit:     limit,
		Offset:    offset,
	}
	for i := range list {
		resp.Timelines = append(resp.Timelines, model.NewTimelineResponse(&list[i]))
	}

	return response.OK(c, resp)
}

// Get handles GET /api/timelines/:id
// @Summary      Get timeline with tracks and clips
// @Tags         Timelines
// @Produce      json
// @Param        id path string true "Timeline ID"
// @Success      200 {object} model.TimelineResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/timelines/{id} [get]
func (h *TimelineHandler) Get(c *fiber.Ctx) error {
	t, err := h.service.GetTimeline(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.OK(c, model.NewTimelineResponse(t))
}

// Update handles PUT /api/timelines/:id
// @Summary      Update timeline settings
// @Tags         Timelines
// @Accept       json
// @Produce      json
// @Param        id path string true "Timeline ID"
// @Param        request body model.UpdateTimelineRequest true "Fields to change"
// @Success      200 {object} model.TimelineResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/timelines/{id} [put]
func (h *TimelineHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateTimelineRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	t, err := h.service.UpdateTimeline(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.OK(c, model.NewTimelineResponse(t))
}

// Delete handles DELETE /api/timelines/:id
// @Summary      Delete timeline with its tracks and clips
// @Tags         Timelines
// @Param        id path string true "Timeline ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/timelines/{id} [delete]
func (h *TimelineHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteTimeline(c.UserContext(), c.Params("id")); err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.NoContent(c)
}
