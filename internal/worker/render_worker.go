package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/framecut/api/internal/client"
	"github.com/framecut/api/internal/encoder"
	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/raster"
	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/internal/timeline"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const defaultFrameBatch = 30

// progress bands: frames fill 5..90, the rest is finishing and upload
const (
	progressStart    = 5
	progressEncoded  = 90
	progressUploaded = 95
)

var errCanceled = errors.New("render canceled")

// Notifier receives job updates for websocket subscribers
type Notifier interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// RenderWorker turns render jobs into video files: it composites every
// frame of the timeline, paints it, pipes it to ffmpeg and uploads the
// result. Without ffmpeg it uploads a poster frame instead.
type RenderWorker struct {
	renderService *service.RenderService
	preview       *service.PreviewService
	painter       *raster.Painter
	ffmpeg        *encoder.FFmpeg
	storage       client.StorageClient
	notifier      Notifier
	logger        zerolog.Logger
	outputDir     string
	frameBatch    int
}

// NewRenderWorker creates a new render worker. ffmpeg may be nil.
func NewRenderWorker(
	renderService *service.RenderService,
	preview *service.PreviewService,
	painter *raster.Painter,
	ffmpeg *encoder.FFmpeg,
	storage client.StorageClient,
	notifier Notifier,
	logger zerolog.Logger,
	outputDir string,
	frameBatch int,
) *RenderWorker {
	if frameBatch <= 0 {
		frameBatch = defaultFrameBatch
	}
	return &RenderWorker{
		renderService: renderService,
		preview:       preview,
		painter:       painter,
		ffmpeg:        ffmpeg,
		storage:       storage,
		notifier:      notifier,
		logger:        logger,
		outputDir:     outputDir,
		frameBatch:    frameBatch,
	}
}

// renderJob is one attempt at a job
type renderJob struct {
	id         string
	timeline   *timeline.Timeline
	compositor *timeline.Compositor
	options    model.RenderOptions
	width      int
	height     int
	logger     zerolog.Logger
}

// ProcessTask handles render task processing
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RenderJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal render payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := w.logger.With().Str("job_id", payload.JobID).Logger()
	retryCount, _ := asynq.GetRetryCount(ctx)

	job, err := w.renderService.StartJob(ctx, payload.JobID, retryCount)
	switch {
	case errors.Is(err, service.ErrJobCanceled), errors.Is(err, service.ErrJobFinished):
		logger.Info().Err(err).Msg("skipping render job")
		return nil
	case errors.Is(err, service.ErrJobNotFound):
		return fmt.Errorf("render job %s expired: %w", payload.JobID, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("failed to start job: %w", err)
	}

	logger.Info().Str("timeline_id", job.TimelineID).Int("attempt", retryCount).Msg("starting render job")

	tl, compositor, err := w.preview.Compositor(ctx, job.TimelineID)
	if errors.Is(err, repository.ErrNotFound) {
		w.failJob(ctx, logger, job.ID, "Timeline no longer exists")
		return fmt.Errorf("timeline %s not found: %w", job.TimelineID, asynq.SkipRetry)
	}
	if err != nil {
		return w.retryOrFail(ctx, logger, job.ID, fmt.Errorf("failed to load timeline: %w", err))
	}
	if compositor.DurationInFrames() == 0 {
		w.failJob(ctx, logger, job.ID, "Timeline has no frames to render")
		return fmt.Errorf("timeline %s is empty: %w", job.TimelineID, asynq.SkipRetry)
	}

	options := job.Options.WithDefaults()
	width, height := encoder.OutputSize(tl.Width, tl.Height, options.Resolution.Height())
	rj := &renderJob{
		id:         job.ID,
		timeline:   tl,
		compositor: compositor,
		options:    options,
		width:      width,
		height:     height,
		logger:     logger,
	}

	var result *model.RenderResult
	if w.ffmpeg != nil {
		result, err = w.renderVideo(ctx, rj)
	} else {
		logger.Warn().Msg("ffmpeg unavailable, rendering poster frame")
		result, err = w.renderPoster(ctx, rj)
	}
	if errors.Is(err, errCanceled) {
		logger.Info().Msg("render job canceled")
		return nil
	}
	if err != nil {
		return w.retryOrFail(ctx, logger, job.ID, err)
	}

	if err := w.renderService.CompleteJob(ctx, job.ID, result.OutputURL); err != nil {
		if errors.Is(err, service.ErrJobCanceled) {
			logger.Info().Msg("job canceled during upload, removing output")
			if derr := w.storage.Delete(ctx, w.outputKey(rj, result.Poster)); derr != nil {
				logger.Warn().Err(derr).Msg("failed to remove output")
			}
			return nil
		}
		return fmt.Errorf("failed to complete job: %w", err)
	}

	w.notifier.BroadcastComplete(job.ID, result)
	logger.Info().Str("output_url", result.OutputURL).Int("frames", result.Frames).Msg("render job completed")
	return nil
}

func (w *RenderWorker) renderVideo(ctx context.Context, rj *renderJob) (*model.RenderResult, error) {
	ext := encoder.Extension(rj.options.Format)
	tmp, err := os.CreateTemp(w.outputDir, "render-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	output := tmp.Name()
	tmp.Close()
	defer os.Remove(output)

	session, err := w.ffmpeg.Start(ctx, encoder.Options{
		Width:   rj.width,
		Height:  rj.height,
		FPS:     rj.timeline.FPS,
		Format:  rj.options.Format,
		Quality: rj.options.Quality,
	}, output)
	if err != nil {
		return nil, err
	}

	total := rj.compositor.DurationInFrames()
	w.progress(ctx, rj, progressStart, "rendering frames")

	for f := 0; f < total; f++ {
		if f > 0 && f%w.frameBatch == 0 {
			if err := w.checkpoint(ctx, rj, progressStart+(progressEncoded-progressStart)*f/total, "rendering frames"); err != nil {
				session.Abort()
				return nil, err
			}
		}

		img := w.painter.Paint(rj.compositor.RenderFrame(f), rj.width, rj.height)
		if err := session.WriteFrame(img); err != nil {
			session.Abort()
			return nil, err
		}
	}

	if err := session.Close(); err != nil {
		return nil, err
	}
	if err := w.checkpoint(ctx, rj, progressEncoded, "uploading"); err != nil {
		return nil, err
	}

	f, err := os.Open(output)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	url, err := w.storage.Upload(ctx, w.outputKey(rj, false), f, encoder.ContentType(rj.options.Format))
	if err != nil {
		return nil, fmt.Errorf("failed to upload output: %w", err)
	}
	w.progress(ctx, rj, progressUploaded, "finalizing")

	return &model.RenderResult{
		OutputURL: url,
		Frames:    session.Frames(),
		Width:     rj.width,
		Height:    rj.height,
		Format:    rj.options.Format,
	}, nil
}

// renderPoster uploads the middle frame as a PNG
func (w *RenderWorker) renderPoster(ctx context.Context, rj *renderJob) (*model.RenderResult, error) {
	mid := rj.compositor.DurationInFrames() / 2
	w.progress(ctx, rj, progressStart, "rendering poster")

	var buf bytes.Buffer
	if err := w.painter.EncodePNG(&buf, rj.compositor.RenderFrame(mid), rj.width, rj.height); err != nil {
		return nil, fmt.Errorf("failed to encode poster: %w", err)
	}
	if err := w.checkpoint(ctx, rj, progressEncoded, "uploading"); err != nil {
		return nil, err
	}

	url, err := w.storage.Upload(ctx, w.outputKey(rj, true), &buf, "image/png")
	if err != nil {
		return nil, fmt.Errorf("failed to upload poster: %w", err)
	}

	return &model.RenderResult{
		OutputURL: url,
		Frames:    1,
		Width:     rj.width,
		Height:    rj.height,
		Format:    rj.options.Format,
		Poster:    true,
	}, nil
}

// checkpoint records progress and stops the render when the job was
// canceled or the task context ended
func (w *RenderWorker) checkpoint(ctx context.Context, rj *renderJob, progress int, step string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	canceled, err := w.renderService.IsCanceled(ctx, rj.id)
	if err != nil {
		rj.logger.Warn().Err(err).Msg("failed to check cancellation")
	}
	if canceled {
		return errCanceled
	}

	err = w.renderService.UpdateJobProgress(ctx, rj.id, progress, step)
	if errors.Is(err, service.ErrJobCanceled) {
		return errCanceled
	}
	if err != nil {
		rj.logger.Warn().Err(err).Msg("failed to update progress")
	}
	w.notifier.BroadcastProgress(rj.id, progress, model.JobStatusProcessing, step)
	return nil
}

func (w *RenderWorker) progress(ctx context.Context, rj *renderJob, progress int, step string) {
	if err := w.renderService.UpdateJobProgress(ctx, rj.id, progress, step); err != nil {
		rj.logger.Warn().Err(err).Msg("failed to update progress")
	}
	w.notifier.BroadcastProgress(rj.id, progress, model.JobStatusProcessing, step)
}

func (w *RenderWorker) outputKey(rj *renderJob, poster bool) string {
	ext := encoder.Extension(rj.options.Format)
	if poster {
		ext = "png"
	}
	return fmt.Sprintf("renders/%s/%s.%s", rj.timeline.ID, rj.id, ext)
}

// retryOrFail leaves the job processing while asynq has retries left and
// marks it failed on the last attempt
func (w *RenderWorker) retryOrFail(ctx context.Context, logger zerolog.Logger, jobID string, err error) error {
	retryCount, _ := asynq.GetRetryCount(ctx)
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if ok && retryCount < maxRetry {
		logger.Warn().Err(err).Int("attempt", retryCount).Msg("render attempt failed, will retry")
		return err
	}
	w.failJob(ctx, logger, jobID, err.Error())
	return err
}

func (w *RenderWorker) failJob(ctx context.Context, logger zerolog.Logger, jobID, errMsg string) {
	logger.Error().Str("error", errMsg).Msg("render job failed")
	if err := w.renderService.FailJob(ctx, jobID, errMsg); err != nil && !errors.Is(err, service.ErrJobCanceled) {
		logger.Error().Err(err).Msg("failed to mark job as failed")
	}
	w.notifier.BroadcastError(jobID, "RENDER_FAILED", errMsg)
}
