package ports

import (
	"context"
	"io"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

// JobRepository persists processing job state.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ProcessingJob) error
	GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
	ActiveForDocument(ctx context.Context, docID string) (*domain.ProcessingJob, error)
	MarkStarted(ctx context.Context, id, workerID string) error
	Advance(ctx context.Context, id string, stage domain.Stage, progress int) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errorCode, errorMsg string) error
}

// DocumentRepository reads document metadata the pipeline depends on.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdatePageCount(ctx context.Context, id string, pages int) error
}

// TextRepository owns the per-document text record.
type TextRepository interface {
	Upsert(ctx context.Context, text *domain.DocumentText) error
	GetByDocument(ctx context.Context, docID string) (*domain.DocumentText, error)
	SaveRedacted(ctx context.Context, docID, redacted string) error
}

// PIIRepository replaces the detected entity set atomically per run.
type PIIRepository interface {
	ReplaceForDocument(ctx context.Context, docID string, entities []domain.PIIEntity) error
}

// ClassificationRepository upserts the at-most-one classification per doc.
type ClassificationRepository interface {
	Upsert(ctx context.Context, cls *domain.Classification) error
	GetByDocument(ctx context.Context, docID string) (*domain.Classification, error)
}

// StructuredRepository appends structured extractions and serves the sibling
// query used by the duplicate-invoice check.
type StructuredRepository interface {
	Append(ctx context.Context, rec *domain.StructuredRecord) error
	FirstForDocument(ctx context.Context, docID string) (*domain.StructuredRecord, error)
	ListProjectSiblings(ctx context.Context, projectID, excludeDocID, schemaType string) ([]domain.StructuredRecord, error)
}

// FindingRepository inserts pipeline findings (always status NEW).
type FindingRepository interface {
	InsertBatch(ctx context.Context, findings []domain.Finding) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Finding, error)
}

// ChunkRepository replaces the chunk set atomically per indexing run.
type ChunkRepository interface {
	ReplaceForDocument(ctx context.Context, docID string, chunks []domain.Chunk) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Chunk, error)
}

// BlobStore is content-addressable file storage keyed by storage key.
type BlobStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// JobQueue carries job ids from the enqueue path to pipeline workers.
type JobQueue interface {
	PublishJob(ctx context.Context, jobID string) error
	SubscribeJobs(ctx context.Context, handler func(context.Context, string) error) error
}

// AuditNotifier emits one completion event per successful run.
type AuditNotifier interface {
	PipelineCompleted(ctx context.Context, event domain.AuditEvent) error
}

// TextExtractor converts raw file content into quality-scored page text.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, filename, declaredType string) (domain.ExtractionResult, error)
}

// PIIDetector finds identifying spans and rewrites them with stable tokens.
// Pseudonymize writes the assigned token back onto each entity so callers
// can persist it. Counters persist for the detector's lifetime; Reset must
// be called per document to avoid cross-document numbering leakage.
type PIIDetector interface {
	Reset()
	Detect(text string) []domain.PIIEntity
	Pseudonymize(text string, entities []domain.PIIEntity) (string, []domain.PIIReplacement)
}

// SemanticPIIDetector asks the inference service for PII entities.
type SemanticPIIDetector interface {
	DetectPII(ctx context.Context, text string) ([]domain.PIIEntity, error)
}

// DocumentClassifier labels a text sample. On inference failure it returns
// the safe default classification together with the error.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// FindingGenerator derives risk findings from text and structured data.
type FindingGenerator interface {
	Generate(ctx context.Context, text, docType string, structured map[string]any) (domain.FindingsResult, error)
}

// StructureExtractor is the vision-document service. Absence is a normal,
// handled path: Available reports it without error.
type StructureExtractor interface {
	Available(ctx context.Context) bool
	Extract(ctx context.Context, content []byte, schemaType string) (*domain.StructuredRecord, error)
}

// Chunker splits page-segmented text into retrieval passages.
type Chunker interface {
	SplitPages(pages []string) []domain.Chunk
}

// AnswerGenerator produces the assistant's final reply.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, context string) (string, error)
}
