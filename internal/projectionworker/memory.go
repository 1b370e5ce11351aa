package projectionworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"mapeditor/core-go/internal/sqlcgen"
)

// MemoryQueue keeps projection jobs in process when no database is
// configured. An empty queue reports pgx.ErrNoRows like the database does.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []sqlcgen.ProjectionJob
	logs []sqlcgen.ProjectionJobLog
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (m *MemoryQueue) InsertProjectionJob(_ context.Context, arg sqlcgen.InsertProjectionJobParams) (sqlcgen.ProjectionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := sqlcgen.ProjectionJob{
		ID:           arg.ID,
		EsID:         arg.EsID,
		Status:       arg.Status,
		ForceRefresh: arg.ForceRefresh,
		Stats:        arg.Stats,
		StartedAt:    time.Now(),
	}
	m.jobs = append(m.jobs, job)
	return job, nil
}

func (m *MemoryQueue) ClaimNextProjectionJob(_ context.Context, stats map[string]any) (sqlcgen.ProjectionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.jobs {
		if m.jobs[i].Status != "queued" {
			continue
		}
		m.jobs[i].Status = "running"
		if stats != nil {
			m.jobs[i].Stats = stats
		}
		return m.jobs[i], nil
	}
	return sqlcgen.ProjectionJob{}, pgx.ErrNoRows
}

func (m *MemoryQueue) UpdateProjectionJob(_ context.Context, arg sqlcgen.UpdateProjectionJobParams) (sqlcgen.ProjectionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.jobs {
		if m.jobs[i].ID != arg.ID {
			continue
		}
		m.jobs[i].Status = arg.Status
		if arg.Stats != nil {
			m.jobs[i].Stats = arg.Stats
		}
		m.jobs[i].CompletedAt = arg.CompletedAt
		m.jobs[i].LastError = arg.LastError
		return m.jobs[i], nil
	}
	return sqlcgen.ProjectionJob{}, fmt.Errorf("projection job %s: %w", arg.ID, pgx.ErrNoRows)
}

func (m *MemoryQueue) InsertProjectionJobLog(_ context.Context, arg sqlcgen.InsertProjectionJobLogParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, sqlcgen.ProjectionJobLog{JobID: arg.JobID, Level: arg.Level, Message: arg.Message})
	return nil
}

// Job returns a copy of the job with id.
func (m *MemoryQueue) Job(id string) (sqlcgen.ProjectionJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return sqlcgen.ProjectionJob{}, false
}
