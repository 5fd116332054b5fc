package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.ProcessingJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO processing_jobs (
	id, project_id, doc_id, batch_id, stage, progress, status, eta_seconds,
	error_code, error_msg, retry_count, max_retries, worker_id,
	started_at, completed_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`,
		job.ID, job.ProjectID, job.DocID, nullString(job.BatchID),
		string(job.Stage), job.Progress, string(job.Status), job.ETASeconds,
		nullString(job.ErrorCode), nullString(job.ErrorMsg),
		job.RetryCount, job.MaxRetries, nullString(job.WorkerID),
		job.StartedAt, job.CompletedAt, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, jobSelect+` WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return job, nil
}

// ActiveForDocument returns the newest queued or running job for a document,
// or ErrNotFound when no run is in flight.
func (r *JobRepository) ActiveForDocument(ctx context.Context, docID string) (*domain.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, jobSelect+`
 WHERE doc_id = $1 AND status IN ('QUEUED','PROCESSING')
 ORDER BY created_at DESC
 LIMIT 1`, docID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active job for doc %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan active job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) MarkStarted(ctx context.Context, id, workerID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = $2, stage = $3, progress = $4, worker_id = $5, started_at = $6, updated_at = $6
WHERE id = $1
`, id, string(domain.JobProcessing), string(domain.StageUploaded),
		domain.StageUploaded.Checkpoint(), workerID, now)
	if err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	return nil
}

func (r *JobRepository) Advance(ctx context.Context, id string, stage domain.Stage, progress int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET stage = $2, progress = $3, updated_at = $4
WHERE id = $1
`, id, string(stage), progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("advance job: %w", err)
	}
	return nil
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET stage = $2, progress = 100, status = $3, completed_at = $4, updated_at = $4
WHERE id = $1
`, id, string(domain.StageCompleted), string(domain.JobCompleted), now)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

// MarkFailed freezes the job at its current stage with the first error;
// the stage column is left untouched so callers can see where it died.
func (r *JobRepository) MarkFailed(ctx context.Context, id, errorCode, errorMsg string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE processing_jobs
SET status = $2, error_code = $3, error_msg = $4, completed_at = $5, updated_at = $5
WHERE id = $1
`, id, string(domain.JobFailed), errorCode, errorMsg, now)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

const jobSelect = `
SELECT id, project_id, doc_id, batch_id, stage, progress, status, eta_seconds,
	error_code, error_msg, retry_count, max_retries, worker_id,
	started_at, completed_at, created_at, updated_at
FROM processing_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.ProcessingJob, error) {
	var (
		job                            domain.ProcessingJob
		stage, status                  string
		batchID, errCode, errMsg, wrkr sql.NullString
		eta                            sql.NullInt64
		startedAt, completedAt         sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.ProjectID, &job.DocID, &batchID, &stage, &job.Progress, &status, &eta,
		&errCode, &errMsg, &job.RetryCount, &job.MaxRetries, &wrkr,
		&startedAt, &completedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Stage = domain.Stage(stage)
	job.Status = domain.JobStatus(status)
	job.BatchID = batchID.String
	job.ErrorCode = errCode.String
	job.ErrorMsg = errMsg.String
	job.WorkerID = wrkr.String
	if eta.Valid {
		v := int(eta.Int64)
		job.ETASeconds = &v
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
