package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

func newJobRepoWithMock(t *testing.T) (*JobRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &JobRepository{db: db}, mock, func() { _ = db.Close() }
}

var jobColumns = []string{
	"id", "project_id", "doc_id", "batch_id", "stage", "progress", "status", "eta_seconds",
	"error_code", "error_msg", "retry_count", "max_retries", "worker_id",
	"started_at", "completed_at", "created_at", "updated_at",
}

func TestJobGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newJobRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, project_id, doc_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobGetByIDScansNullableColumns(t *testing.T) {
	repo, mock, done := newJobRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, project_id, doc_id").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow(
			"job-1", "proj-1", "doc-1", nil, "PII_SCANNING", 50, "PROCESSING", nil,
			nil, nil, 0, 3, "worker-a",
			now, nil, now, now,
		))

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Stage != domain.StagePIIScanning || job.Status != domain.JobProcessing {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.BatchID != "" || job.ETASeconds != nil || job.CompletedAt != nil {
		t.Fatalf("nullable fields not zeroed: %+v", job)
	}
	if job.StartedAt == nil {
		t.Fatal("started_at should be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestActiveForDocumentMapsNoRowsToNotFound(t *testing.T) {
	repo, mock, done := newJobRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, project_id, doc_id").
		WithArgs("doc-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ActiveForDocument(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedWritesCodeAndMessage(t *testing.T) {
	repo, mock, done := newJobRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE processing_jobs").
		WithArgs("job-1", string(domain.JobFailed), domain.CodeExtraction, "pdf parse failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkFailed(context.Background(), "job-1", domain.CodeExtraction, "pdf parse failed"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdvanceWritesStageAndProgress(t *testing.T) {
	repo, mock, done := newJobRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE processing_jobs").
		WithArgs("job-1", string(domain.StageAnalysis), 80, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Advance(context.Background(), "job-1", domain.StageAnalysis, 80); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
