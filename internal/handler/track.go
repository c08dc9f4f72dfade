package handler

import (
	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type TrackHandler struct {
	service   *service.TimelineService
	validator *validator.Validate
}

func NewTrackHandler(svc *service.TimelineService, v *validator.Validate) *TrackHandler {
	return &TrackHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/timelines/:id/tracks
func (h *TrackHandler) List(c *fiber.Ctx) error {
	tracks, err := h.service.ListTracks(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	resp := make([]model.TrackResponse, 0, len(tracks))
	for i := range tracks {
		resp = append(resp, model.NewTrackResponse(&tracks[i]))
	}
	return response.OK(c, resp)
}

// Create handles POST /api/timelines/:id/tracks
func (h *TrackHandler) Create(c *fiber.Ctx) error {
	var req model.CreateTrackRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	t, err := h.service.CreateTrack(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.Created(c, model.NewTrackResponse(t))
}

// Update handles PUT /api/tracks/:trackId
func (h *TrackHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateTrackRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	t, err := h.service.UpdateTrack(c.UserContext(), c.Params("trackId"), &req)
	if err != nil {
		return serviceError(c, err, "Track")
	}

	return response.OK(c, model.NewTrackResponse(t))
}

// Delete handles DELETE /api/tracks/:trackId
func (h *TrackHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteTrack(c.UserContext(), c.Params("trackId")); err != nil {
		return serviceError(c, err, "Track")
	}

	return response.NoContent(c)
}
