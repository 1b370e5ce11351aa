package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"mapeditor/core-go/internal/sqlcgen"
)

// Queries is the subset of the generated queries the Postgres store needs.
// *sqlcgen.Queries satisfies it.
type Queries interface {
	UpsertProjectionRun(ctx context.Context, arg sqlcgen.UpsertProjectionRunParams) (sqlcgen.ProjectionRun, error)
	GetProjectionRun(ctx context.Context, esID string) (sqlcgen.ProjectionRun, error)
	ProjectionRunExists(ctx context.Context, esID string) (bool, error)
	DeleteProjectionRun(ctx context.Context, esID string) error
}

type Postgres struct {
	q Queries
}

func NewPostgres(q Queries) *Postgres {
	return &Postgres{q: q}
}

func (p *Postgres) IsProcessed(ctx context.Context, esID string) (bool, error) {
	return p.q.ProjectionRunExists(ctx, esID)
}

func (p *Postgres) Save(ctx context.Context, s Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := p.q.UpsertProjectionRun(ctx, sqlcgen.UpsertProjectionRunParams{
		EsID:      s.ESID,
		Title:     s.Title,
		Payload:   s.Payload,
		CreatedAt: s.CreatedAt,
	})
	return err
}

func (p *Postgres) Latest(ctx context.Context, esID string) (Snapshot, error) {
	row, err := p.q.GetProjectionRun(ctx, esID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return Snapshot{ESID: row.EsID, Title: row.Title, Payload: row.Payload, CreatedAt: row.CreatedAt}, nil
}

func (p *Postgres) Reset(ctx context.Context, esID string) error {
	return p.q.DeleteProjectionRun(ctx, esID)
}
