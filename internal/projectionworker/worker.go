package projectionworker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/projection"
	"mapeditor/core-go/internal/sqlcgen"
)

// Queries is the minimal DB interface the projection worker needs.
//
// *sqlcgen.Queries satisfies this; MemoryQueue does too.
type Queries interface {
	InsertProjectionJob(ctx context.Context, arg sqlcgen.InsertProjectionJobParams) (sqlcgen.ProjectionJob, error)
	ClaimNextProjectionJob(ctx context.Context, stats map[string]any) (sqlcgen.ProjectionJob, error)
	UpdateProjectionJob(ctx context.Context, arg sqlcgen.UpdateProjectionJobParams) (sqlcgen.ProjectionJob, error)
	InsertProjectionJobLog(ctx context.Context, arg sqlcgen.InsertProjectionJobLogParams) error
}

// Projector runs one projection. *projection.Engine satisfies this.
type Projector interface {
	Project(ctx context.Context, esID string, mode projection.Mode) (*projection.Batch, error)
}

type Worker struct {
	log          zerolog.Logger
	q            Queries
	p            Projector
	pollInterval time.Duration
	maxRuntime   time.Duration
}

type Options struct {
	PollInterval time.Duration
	MaxRuntime   time.Duration
}

func New(log zerolog.Logger, q Queries, p Projector, opts Options) *Worker {
	pi := opts.PollInterval
	if pi <= 0 {
		pi = 400 * time.Millisecond
	}
	mr := opts.MaxRuntime
	if mr <= 0 {
		mr = 30 * time.Second
	}
	return &Worker{
		log:          log,
		q:            q,
		p:            p,
		pollInterval: pi,
		maxRuntime:   mr,
	}
}

// Enqueue queues a projection of esID for the next poll.
func (w *Worker) Enqueue(ctx context.Context, esID string, force bool) (sqlcgen.ProjectionJob, error) {
	if w == nil || w.q == nil {
		return sqlcgen.ProjectionJob{}, errors.New("projection worker unavailable")
	}
	return w.q.InsertProjectionJob(ctx, sqlcgen.InsertProjectionJobParams{
		ID:           uuid.NewString(),
		EsID:         esID,
		Status:       "queued",
		ForceRefresh: force,
		Stats:        map[string]any{"stage": "queued"},
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.q == nil || w.p == nil {
		return
	}

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		for {
			processed, err := w.runOnce(ctx)
			if err != nil {
				consecutiveFailures++
				break
			}
			consecutiveFailures = 0
			if !processed {
				break
			}
		}

		timer.Reset(backoffDuration(w.pollInterval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 400 * time.Millisecond
	}
	if failures <= 0 {
		return base
	}

	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > 10*time.Second {
		return 10 * time.Second
	}
	return d
}

func (w *Worker) runOnce(ctx context.Context) (bool, error) {
	job, err := w.q.ClaimNextProjectionJob(ctx, map[string]any{
		"stage": "running",
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		w.log.Error().Err(err).Msg("projection worker failed to claim next job")
		return false, err
	}

	w.log.Info().Str("job_id", job.ID).Str("es_id", job.EsID).Msg("projection job claimed")

	execCtx, cancel := context.WithTimeout(ctx, w.maxRuntime)
	defer cancel()

	if err := w.q.InsertProjectionJobLog(execCtx, sqlcgen.InsertProjectionJobLogParams{
		JobID:   job.ID,
		Level:   "info",
		Message: "projection job started",
	}); err != nil {
		w.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to write projection start log")
	}

	start := time.Now()
	batch, err := w.p.Project(execCtx, job.EsID, projection.Mode{ForceRefresh: job.ForceRefresh})
	if err != nil {
		_ = w.failRun(execCtx, job.ID, err.Error(), map[string]any{"es_id": job.EsID})
		return true, err
	}

	completedAt := time.Now()
	stats := map[string]any{
		"stage":       "completed",
		"es_id":       job.EsID,
		"skipped":     batch.Skipped,
		"features":    len(batch.Features),
		"buildings":   len(batch.Buildings),
		"connections": len(batch.Connections),
		"alerts":      len(batch.Alerts),
		"runtime_ms":  int(time.Since(start).Milliseconds()),
	}
	if _, err := w.q.UpdateProjectionJob(execCtx, sqlcgen.UpdateProjectionJobParams{
		ID:          job.ID,
		Status:      "succeeded",
		Stats:       stats,
		CompletedAt: &completedAt,
		LastError:   nil,
	}); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to mark projection job succeeded")
		_ = w.failRun(execCtx, job.ID, err.Error(), map[string]any{"es_id": job.EsID})
		return true, err
	}

	if err := w.q.InsertProjectionJobLog(execCtx, sqlcgen.InsertProjectionJobLogParams{
		JobID:   job.ID,
		Level:   "info",
		Message: "projection job completed",
	}); err != nil {
		w.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to write projection completion log")
	}

	return true, nil
}

func (w *Worker) failRun(ctx context.Context, jobID string, errMsg string, stats map[string]any) error {
	if stats == nil {
		stats = map[string]any{}
	}
	stats["stage"] = "failed"
	stats["runtime_budget_ms"] = int(w.maxRuntime.Milliseconds())

	// A canceled context must not leave the job stuck in "running".
	if ctx == nil || ctx.Err() != nil {
		bg, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ctx = bg
	}

	completedAt := time.Now()
	lastErr := errMsg
	_, err := w.q.UpdateProjectionJob(ctx, sqlcgen.UpdateProjectionJobParams{
		ID:          jobID,
		Status:      "failed",
		Stats:       stats,
		CompletedAt: &completedAt,
		LastError:   &lastErr,
	})
	if err != nil {
		w.log.Error().Err(err).Str("job_id", jobID).Msg("failed to mark projection job failed")
		return err
	}

	_ = w.q.InsertProjectionJobLog(ctx, sqlcgen.InsertProjectionJobLogParams{
		JobID:   jobID,
		Level:   "error",
		Message: "projection job failed: " + errMsg,
	})

	return nil
}
