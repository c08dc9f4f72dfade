package handler

import "github.com/gofiber/fiber/v2"

// Routes groups the API handlers with the middleware that guards them
type Routes struct {
	Timelines *TimelineHandler
	Tracks    *TrackHandler
	Clips     *ClipHandler
	Preview   *PreviewHandler
	Render    *RenderHandler

	Auth         fiber.Handler
	RenderLimit  fiber.Handler
	PreviewLimit fiber.Handler
}

// Register mounts the authenticated /api routes on app
func (r *Routes) Register(app fiber.Router) {
	api := app.Group("/api", r.Auth)

	timelines := api.Group("/timelines")
	timelines.Post("/", r.Timelines.Create)
	timelines.Get("/", r.Timelines.List)
	timelines.Get("/:id", r.Timelines.Get)
	timelines.Put("/:id", r.Timelines.Update)
	timelines.Delete("/:id", r.Timelines.Delete)
	timelines.Get("/:id/tracks", r.Tracks.List)
	timelines.Post("/:id/tracks", r.Tracks.Create)
	timelines.Get("/:id/frames/:frame", r.PreviewLimit, r.Preview.Frame)
	timelines.Get("/:id/frames/:frame/image", r.PreviewLimit, r.Preview.FrameImage)

	tracks := api.Group("/tracks")
	tracks.Put("/:trackId", r.Tracks.Update)
	tracks.Delete("/:trackId", r.Tracks.Delete)
	tracks.Get("/:trackId/clips", r.Clips.List)
	tracks.Post("/:trackId/clips", r.Clips.Create)

	clips := api.Group("/clips")
	clips.Put("/:clipId", r.Clips.Update)
	clips.Delete("/:clipId", r.Clips.Delete)

	render := api.Group("/render")
	render.Post("/", r.RenderLimit, r.Render.Start)
	render.Get("/:jobId", r.Render.Status)
	render.Delete("/:jobId", r.Render.Cancel)
}
