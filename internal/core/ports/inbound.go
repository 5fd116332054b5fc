package ports

import (
	"context"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

// PipelineRunner is the inbound contract for executing one processing run.
type PipelineRunner interface {
	Run(ctx context.Context, jobID string) error
}

// JobEnqueuer creates processing jobs for ready documents.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, projectID, docID, batchID string, force bool) (*domain.ProcessingJob, error)
}

// JobStatusReader exposes pollable job state.
type JobStatusReader interface {
	JobStatus(ctx context.Context, jobID string) (*domain.ProcessingJob, error)
}

// ProjectAssistant answers questions grounded in a project's processed
// documents.
type ProjectAssistant interface {
	Answer(ctx context.Context, projectID, question string) (*domain.Answer, error)
}
