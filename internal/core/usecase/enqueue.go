package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
	"github.com/mkorobkov/dealroom-pipeline/internal/core/ports"
)

type EnqueueUseCase struct {
	jobs  ports.JobRepository
	docs  ports.DocumentRepository
	queue ports.JobQueue
}

func NewEnqueueUseCase(
	jobs ports.JobRepository,
	docs ports.DocumentRepository,
	queue ports.JobQueue,
) *EnqueueUseCase {
	return &EnqueueUseCase{
		jobs:  jobs,
		docs:  docs,
		queue: queue,
	}
}

// Enqueue creates a QUEUED job for a ready document and publishes its id.
// A document with a run already QUEUED or PROCESSING is rejected unless the
// caller forces a re-run; a forced re-run is still a fresh job row.
func (uc *EnqueueUseCase) Enqueue(
	ctx context.Context,
	projectID, docID, batchID string,
	force bool,
) (*domain.ProcessingJob, error) {
	doc, err := uc.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNotFound, "load document", err)
	}
	if doc.ProjectID != projectID {
		return nil, domain.WrapError(domain.ErrNotFound, "load document",
			fmt.Errorf("document %s not in project %s", docID, projectID))
	}
	if doc.Status != domain.StatusReady {
		return nil, domain.WrapError(domain.ErrConflict, "enqueue job",
			fmt.Errorf("document must be READY, currently %s", doc.Status))
	}

	active, err := uc.jobs.ActiveForDocument(ctx, docID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check active job: %w", err)
	}
	if active != nil && !force {
		return nil, domain.WrapError(domain.ErrConflict, "enqueue job",
			fmt.Errorf("job %s already %s for document", active.ID, active.Status))
	}

	now := time.Now().UTC()
	job := &domain.ProcessingJob{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		DocID:      docID,
		BatchID:    batchID,
		Stage:      domain.StageQueued,
		Status:     domain.JobQueued,
		Progress:   0,
		MaxRetries: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := uc.queue.PublishJob(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish job: %w", err)
	}
	return job, nil
}
