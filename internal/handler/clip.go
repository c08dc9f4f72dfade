package handler

import (
	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ClipHandler struct {
	service   *service.TimelineService
	validator *validator.Validate
}

func NewClipHandler(svc *service.TimelineService, v *validator.Validate) *ClipHandler {
	return &ClipHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/tracks/:trackId/clips
func (h *ClipHandler) List(c *fiber.Ctx) error {
	clips, err := h.service.ListClips(c.UserContext(), c.Params("trackId"))
	if err != nil {
		return serviceError(c, err, "Track")
	}

	resp := make([]model.ClipResponse, 0, len(clips))
	for i := range clips {
		resp = append(resp, model.NewClipResponse(&clips[i]))
	}
	return response.OK(c, resp)
}

// Create handles POST /api/tracks/:trackId/clips
// @Summary      Add clip to track
// @Description  Rejects clips that overlap another clip on the track or whose asset type the track cannot carry
// @Tags         Clips
// @Accept       json
// @Produce      json
// @Param        trackId path string true "Track ID"
// @Param        request body model.CreateClipRequest true "Clip"
// @Success      201 {object} model.ClipResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tracks/{trackId}/clips [post]
func (h *ClipHandler) Create(c *fiber.Ctx) error {
	var req model.CreateClipRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	clip, err := h.service.CreateClip(c.UserContext(), c.Params("trackId"), &req)
	if err != nil {
		return serviceError(c, err, "Track")
	}

	return response.Created(c, model.NewClipResponse(clip))
}

// Update handles PUT /api/clips/:clipId
func (h *ClipHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateClipRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	clip, err := h.service.UpdateClip(c.UserContext(), c.Params("clipId"), &req)
	if err != nil {
		return serviceError(c, err, "Clip")
	}

	return response.OK(c, model.NewClipResponse(clip))
}

// Delete handles DELETE /api/clips/:clipId
func (h *ClipHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteClip(c.UserContext(), c.Params("clipId")); err != nil {
		return serviceError(c, err, "Clip")
	}

	return response.NoContent(c)
}
