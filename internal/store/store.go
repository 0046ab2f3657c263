package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-sim/internal/model"
)

// ErrJobNotFound is returned when a job ID does not exist.
var ErrJobNotFound = eris.New("job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f JobFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for simulation jobs.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, cfg map[string]any) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	FailJob(ctx context.Context, jobID string, msg string) error
	SaveMetadata(ctx context.Context, jobID string, metadata map[string]any) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	CountByStatus(ctx context.Context) (map[model.JobStatus]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func checkStatus(status model.JobStatus) error {
	if !status.Valid() {
		return eris.Errorf("invalid job status %q", status)
	}
	return nil
}
