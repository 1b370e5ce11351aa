package sqlcgen

import "time"

type ProjectionRun struct {
	EsID      string
	Title     string
	Payload   []byte
	CreatedAt time.Time
}

type ProjectionJob struct {
	ID           string
	EsID         string
	Status       string
	ForceRefresh bool
	Stats        map[string]any
	StartedAt    time.Time
	CompletedAt  *time.Time
	LastError    *string
}

type ProjectionJobLog struct {
	JobID   string
	Level   string
	Message string
}
