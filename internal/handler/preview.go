package handler

import (
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type PreviewHandler struct {
	service *service.PreviewService
}

func NewPreviewHandler(svc *service.PreviewService) *PreviewHandler {
	return &PreviewHandler{service: svc}
}

// Frame handles GET /api/timelines/:id/frames/:frame
// @Summary      Composite one frame
// @Description  Returns the ordered layer stack for a frame. Out-of-range frames are clamped.
// @Tags         Preview
// @Produce      json
// @Param        id    path string true "Timeline ID"
// @Param        frame path int    true "Frame index"
// @Success      200 {object} timeline.Frame
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/timelines/{id}/frames/{frame} [get]
func (h *PreviewHandler) Frame(c *fiber.Ctx) error {
	frame, err := c.ParamsInt("frame")
	if err != nil {
		return response.ValidationError(c, "Frame must be an integer", nil)
	}

	result, err := h.service.RenderFrame(c.UserContext(), c.Params("id"), frame)
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	return response.OK(c, result)
}

// FrameImage handles GET /api/timelines/:id/frames/:frame/image?height=
// @Summary      Rasterize one frame
// @Tags         Preview
// @Produce      png
// @Param        id     path  string true  "Timeline ID"
// @Param        frame  path  int    true  "Frame index"
// @Param        height query int    false "Output height, defaults to the canvas height"
// @Success      200
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/timelines/{id}/frames/{frame}/image [get]
func (h *PreviewHandler) FrameImage(c *fiber.Ctx) error {
	frame, err := c.ParamsInt("frame")
	if err != nil {
		return response.ValidationError(c, "Frame must be an integer", nil)
	}
	height := c.QueryInt("height")
	if height < 0 {
		return response.ValidationError(c, "Height must not be negative", nil)
	}

	img, err := h.service.RenderFrameImage(c.UserContext(), c.Params("id"), frame, height)
	if err != nil {
		return serviceError(c, err, "Timeline")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(img)
}
