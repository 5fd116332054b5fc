package usecase

import (
	"context"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
	"github.com/mkorobkov/dealroom-pipeline/internal/core/ports"
)

type StatusUseCase struct {
	jobs ports.JobRepository
}

func NewStatusUseCase(jobs ports.JobRepository) *StatusUseCase {
	return &StatusUseCase{jobs: jobs}
}

// JobStatus returns the pollable job view: stage, progress, status and any
// failure details.
func (uc *StatusUseCase) JobStatus(ctx context.Context, jobID string) (*domain.ProcessingJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNotFound, "load job", err)
	}
	return job, nil
}
