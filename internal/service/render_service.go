package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/framecut/api/internal/model"
	"github.com/framecut/api/internal/repository"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskTypeRender = "render:process"
	RenderQueue    = "render"

	jobTTL        = 24 * time.Hour
	maxTxAttempts = 5
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobNotCancelable = errors.New("job is not pending or processing")
	ErrJobCanceled      = errors.New("job canceled")
	ErrTimelineNotFound = errors.New("timeline not found")
	ErrJobFinished      = errors.New("job already finished")
)

// TaskEnqueuer is the part of asynq.Client the service needs
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RenderService handles render job management. Job state lives in Redis;
// the work itself runs in the asynq render queue.
type RenderService struct {
	redis    *redis.Client
	enqueuer TaskEnqueuer
	repo     repository.Repository
}

func NewRenderService(redisClient *redis.Client, enqueuer TaskEnqueuer, repo repository.Repository) *RenderService {
	return &RenderService{
		redis:    redisClient,
		enqueuer: enqueuer,
		repo:     repo,
	}
}

// StartRender queues a render job for an existing timeline
func (s *RenderService) StartRender(ctx context.Context, userID string, req *model.RenderStartRequest) (*model.RenderStartResponse, error) {
	t, err := s.repo.GetTimeline(ctx, req.TimelineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTimelineNotFound
		}
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeline, err)
	}

	jobID := uuid.New().String()
	now := time.Now()
	options := req.Options.WithDefaults()

	job := &model.Job{
		ID:         jobID,
		Type:       model.JobTypeRender,
		TimelineID: req.TimelineID,
		UserID:     userID,
		Status:     model.JobStatusPending,
		Progress:   0,
		Options:    options,
		CreatedAt:  now,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := NewRenderTask(&model.RenderJobPayload{
		JobID:      jobID,
		TimelineID: req.TimelineID,
		Options:    options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(RenderQueue),
		asynq.MaxRetry(3),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		msg := "failed to enqueue"
		_, _ = s.updateJob(ctx, jobID, func(j *model.Job) error {
			j.Status = model.JobStatusFailed
			j.Error = &msg
			return nil
		})
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.RenderStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a render job
func (s *RenderService) GetStatus(ctx context.Context, jobID string) (*model.RenderStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.RenderStatusResponse{
		JobID:       job.ID,
		TimelineID:  job.TimelineID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Options:     job.Options,
		OutputURL:   job.OutputURL,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// CancelRender cancels a pending or processing job. The worker notices
// between frame batches.
func (s *RenderService) CancelRender(ctx context.Context, jobID string) (*model.RenderCancelResponse, error) {
	_, err := s.updateJob(ctx, jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return ErrJobNotCancelable
		}
		j.Status = model.JobStatusCanceled
		now := time.Now()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.RenderCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// StartJob moves a job into processing and returns it (called by worker).
// Retries of a processing job are allowed.
func (s *RenderService) StartJob(ctx context.Context, jobID string, retryCount int) (*model.Job, error) {
	return s.updateJob(ctx, jobID, func(j *model.Job) error {
		switch j.Status {
		case model.JobStatusCanceled:
			return ErrJobCanceled
		case model.JobStatusCompleted, model.JobStatusFailed:
			return ErrJobFinished
		}
		if j.Status == model.JobStatusPending {
			now := time.Now()
			j.StartedAt = &now
		}
		j.Status = model.JobStatusProcessing
		j.RetryCount = retryCount
		j.Error = nil
		return nil
	})
}

// UpdateJobProgress records progress (called by worker). It returns
// ErrJobCanceled once the job has been canceled.
func (s *RenderService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	_, err := s.updateJob(ctx, jobID, func(j *model.Job) error {
		if j.Status == model.JobStatusCanceled {
			return ErrJobCanceled
		}
		if j.Status == model.JobStatusPending {
			now := time.Now()
			j.StartedAt = &now
		}
		j.Status = model.JobStatusProcessing
		j.Progress = progress
		j.CurrentStep = step
		return nil
	})
	return err
}

// IsCanceled reports whether the job was canceled or has expired
func (s *RenderService) IsCanceled(ctx context.Context, jobID string) (bool, error) {
	job, err := s.getJob(ctx, jobID)
	if errors.Is(err, ErrJobNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return job.Status == model.JobStatusCanceled, nil
}

// CompleteJob marks job as completed (called by worker)
func (s *RenderService) CompleteJob(ctx context.Context, jobID, outputURL string) error {
	_, err := s.updateJob(ctx, jobID, func(j *model.Job) error {
		if j.Status == model.JobStatusCanceled {
			return ErrJobCanceled
		}
		j.Status = model.JobStatusCompleted
		j.Progress = 100
		j.CurrentStep = ""
		j.OutputURL = outputURL
		now := time.Now()
		j.CompletedAt = &now
		return nil
	})
	return err
}

// FailJob marks job as failed (called by worker). A canceled job stays
// canceled.
func (s *RenderService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	_, err := s.updateJob(ctx, jobID, func(j *model.Job) error {
		if j.Status == model.JobStatusCanceled {
			return ErrJobCanceled
		}
		j.Status = model.JobStatusFailed
		j.Error = &errMsg
		now := time.Now()
		j.CompletedAt = &now
		return nil
	})
	return err
}

// NewRenderTask builds the asynq task for a render job
func NewRenderTask(payload *model.RenderJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRender, data), nil
}

// Helper methods

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func (s *RenderService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}

func (s *RenderService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

// updateJob applies fn to the stored job under WATCH so that a cancel
// racing a worker update is never lost. fn errors abort without writing.
func (s *RenderService) updateJob(ctx context.Context, jobID string, fn func(*model.Job) error) (*model.Job, error) {
	key := jobKey(jobID)
	var updated *model.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrJobNotFound
			}
			return err
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		if err := fn(&job); err != nil {
			return err
		}

		out, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = &job
		}
		return err
	}

	for i := 0; i < maxTxAttempts; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("job %s: too much contention", jobID)
}
