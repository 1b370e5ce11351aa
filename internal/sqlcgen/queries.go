package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertProjectionRun = `-- name: UpsertProjectionRun :one
INSERT INTO projection_runs (es_id, title, payload, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (es_id) DO UPDATE
SET title = EXCLUDED.title,
    payload = EXCLUDED.payload,
    created_at = EXCLUDED.created_at
RETURNING es_id, title, payload, created_at
`

type UpsertProjectionRunParams struct {
	EsID      string
	Title     string
	Payload   []byte
	CreatedAt time.Time
}

func (q *Queries) UpsertProjectionRun(ctx context.Context, arg UpsertProjectionRunParams) (ProjectionRun, error) {
	row := q.db.QueryRow(ctx, upsertProjectionRun, arg.EsID, arg.Title, arg.Payload, arg.CreatedAt)
	var i ProjectionRun
	err := row.Scan(&i.EsID, &i.Title, &i.Payload, &i.CreatedAt)
	return i, err
}

const getProjectionRun = `-- name: GetProjectionRun :one
SELECT es_id, title, payload, created_at
FROM projection_runs
WHERE es_id = $1
`

func (q *Queries) GetProjectionRun(ctx context.Context, esID string) (ProjectionRun, error) {
	row := q.db.QueryRow(ctx, getProjectionRun, esID)
	var i ProjectionRun
	err := row.Scan(&i.EsID, &i.Title, &i.Payload, &i.CreatedAt)
	return i, err
}

const projectionRunExists = `-- name: ProjectionRunExists :one
SELECT EXISTS (SELECT 1 FROM projection_runs WHERE es_id = $1)
`

func (q *Queries) ProjectionRunExists(ctx context.Context, esID string) (bool, error) {
	row := q.db.QueryRow(ctx, projectionRunExists, esID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const deleteProjectionRun = `-- name: DeleteProjectionRun :exec
DELETE FROM projection_runs
WHERE es_id = $1
`

func (q *Queries) DeleteProjectionRun(ctx context.Context, esID string) error {
	_, err := q.db.Exec(ctx, deleteProjectionRun, esID)
	return err
}

const insertProjectionJob = `-- name: InsertProjectionJob :one
INSERT INTO projection_jobs (id, es_id, status, force_refresh, stats)
VALUES ($1::uuid, $2, $3, $4, COALESCE($5, '{}'::jsonb))
RETURNING id, es_id, status, force_refresh, stats, started_at, completed_at, last_error
`

type InsertProjectionJobParams struct {
	ID           string
	EsID         string
	Status       string
	ForceRefresh bool
	Stats        map[string]any
}

func (q *Queries) InsertProjectionJob(ctx context.Context, arg InsertProjectionJobParams) (ProjectionJob, error) {
	row := q.db.QueryRow(ctx, insertProjectionJob, arg.ID, arg.EsID, arg.Status, arg.ForceRefresh, arg.Stats)
	return scanProjectionJob(row)
}

const claimNextProjectionJob = `-- name: ClaimNextProjectionJob :one
WITH next AS (
  SELECT id
  FROM projection_jobs
  WHERE status = 'queued'
  ORDER BY started_at ASC
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
UPDATE projection_jobs pj
SET status = 'running',
    stats = COALESCE($1, pj.stats),
    completed_at = NULL,
    last_error = NULL
FROM next
WHERE pj.id = next.id
RETURNING pj.id, pj.es_id, pj.status, pj.force_refresh, pj.stats, pj.started_at, pj.completed_at, pj.last_error
`

func (q *Queries) ClaimNextProjectionJob(ctx context.Context, stats map[string]any) (ProjectionJob, error) {
	row := q.db.QueryRow(ctx, claimNextProjectionJob, stats)
	return scanProjectionJob(row)
}

const updateProjectionJob = `-- name: UpdateProjectionJob :one
UPDATE projection_jobs
SET status = $2,
    stats = COALESCE($3, stats),
    completed_at = $4,
    last_error = $5
WHERE id = $1
RETURNING id, es_id, status, force_refresh, stats, started_at, completed_at, last_error
`

type UpdateProjectionJobParams struct {
	ID          string
	Status      string
	Stats       map[string]any
	CompletedAt *time.Time
	LastError   *string
}

func (q *Queries) UpdateProjectionJob(ctx context.Context, arg UpdateProjectionJobParams) (ProjectionJob, error) {
	row := q.db.QueryRow(ctx, updateProjectionJob, arg.ID, arg.Status, arg.Stats, arg.CompletedAt, arg.LastError)
	return scanProjectionJob(row)
}

const getProjectionJob = `-- name: GetProjectionJob :one
SELECT id, es_id, status, force_refresh, stats, started_at, completed_at, last_error
FROM projection_jobs
WHERE id = $1
`

func (q *Queries) GetProjectionJob(ctx context.Context, id string) (ProjectionJob, error) {
	row := q.db.QueryRow(ctx, getProjectionJob, id)
	return scanProjectionJob(row)
}

const insertProjectionJobLog = `-- name: InsertProjectionJobLog :exec
INSERT INTO projection_job_logs (job_id, level, message)
VALUES ($1, $2, $3)
`

type InsertProjectionJobLogParams struct {
	JobID   string
	Level   string
	Message string
}

func (q *Queries) InsertProjectionJobLog(ctx context.Context, arg InsertProjectionJobLogParams) error {
	_, err := q.db.Exec(ctx, insertProjectionJobLog, arg.JobID, arg.Level, arg.Message)
	return err
}

func scanProjectionJob(row pgx.Row) (ProjectionJob, error) {
	var i ProjectionJob
	err := row.Scan(
		&i.ID,
		&i.EsID,
		&i.Status,
		&i.ForceRefresh,
		&i.Stats,
		&i.StartedAt,
		&i.CompletedAt,
		&i.LastError,
	)
	return i, err
}
