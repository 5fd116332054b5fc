package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
	"github.com/mkorobkov/dealroom-pipeline/internal/core/ports"
)

// Limits bound how much text each inference-backed stage may see.
type Limits struct {
	ClassificationChars  int
	AnalysisChars        int
	PIISampleChars       int
	PIISamplePages       int
	SemanticPIIMinConf   float64
	DuplicateInvoiceConf float64
}

func DefaultLimits() Limits {
	return Limits{
		ClassificationChars:  8000,
		AnalysisChars:        15000,
		PIISampleChars:       6000,
		PIISamplePages:       3,
		SemanticPIIMinConf:   0.6,
		DuplicateInvoiceConf: 0.95,
	}
}

// StageObserver receives per-stage outcomes for metrics.
type StageObserver interface {
	ObserveStage(stage domain.Stage, duration time.Duration, err error)
}

// PipelineDeps wires the orchestrator's collaborators. All handles are owned
// per process, not process-wide singletons; the detector is reset per run.
type PipelineDeps struct {
	Jobs            ports.JobRepository
	Docs            ports.DocumentRepository
	Texts           ports.TextRepository
	PII             ports.PIIRepository
	Classifications ports.ClassificationRepository
	Structured      ports.StructuredRepository
	Findings        ports.FindingRepository
	Chunks          ports.ChunkRepository

	Blobs      ports.BlobStore
	Extractor  ports.TextExtractor
	Detector   ports.PIIDetector
	Semantic   ports.SemanticPIIDetector
	Classifier ports.DocumentClassifier
	Generator  ports.FindingGenerator
	Vision     ports.StructureExtractor
	Chunker    ports.Chunker
	Audit      ports.AuditNotifier

	Logger   *slog.Logger
	Observer StageObserver
	WorkerID string
	Limits   Limits
}

// Pipeline drives one document through the processing state machine:
// UPLOADED → TEXT_EXTRACTION → CLASSIFICATION → PII_SCANNING → STRUCTURING →
// ANALYSIS → INDEXING → COMPLETED, persisting stage/progress/status before
// each stage body runs.
type Pipeline struct {
	deps PipelineDeps
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Limits == (Limits{}) {
		deps.Limits = DefaultLimits()
	}
	return &Pipeline{deps: deps}
}

// Run executes the full state machine for one job. It returns an error only
// for fatal outcomes; non-fatal stage failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	log := p.deps.Logger.With("job_id", jobID)

	job, err := p.deps.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return domain.WrapError(domain.ErrNotFound, "load job", err)
	}
	log = log.With("doc_id", job.DocID)

	doc, err := p.deps.Docs.GetByID(ctx, job.DocID)
	if err != nil {
		return p.failJob(ctx, job, domain.WrapError(domain.ErrNotFound, "load document", err))
	}

	content, err := p.readBlob(ctx, doc.StorageKey)
	if err != nil {
		return p.failJob(ctx, job, domain.WrapError(domain.ErrNotFound, "read document blob", err))
	}

	if err := p.deps.Jobs.MarkStarted(ctx, job.ID, p.deps.WorkerID); err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	log.Info("pipeline started", "filename", doc.Filename)

	text, err := p.stageTextExtraction(ctx, job, doc, content, log)
	if err != nil {
		return p.failJob(ctx, job, err)
	}

	cls := p.stageClassification(ctx, job, doc, text, log)

	p.stagePIIScanning(ctx, job, doc, text, log)

	p.stageStructuring(ctx, job, doc, content, text, cls, log)

	if err := p.stageAnalysis(ctx, job, doc, text, cls, log); err != nil {
		return p.failJob(ctx, job, err)
	}

	p.stageIndexing(ctx, job, doc, text, log)

	if err := p.deps.Jobs.MarkCompleted(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	log.Info("pipeline completed")

	p.emitAudit(ctx, doc, log)
	return nil
}

func (p *Pipeline) readBlob(ctx context.Context, key string) ([]byte, error) {
	reader, err := p.deps.Blobs.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (p *Pipeline) enterStage(ctx context.Context, job *domain.ProcessingJob, stage domain.Stage) error {
	job.Stage = stage
	job.Progress = stage.Checkpoint()
	return p.deps.Jobs.Advance(ctx, job.ID, stage, stage.Checkpoint())
}

func (p *Pipeline) failJob(ctx context.Context, job *domain.ProcessingJob, cause error) error {
	code := domain.ErrorCode(cause)
	if err := p.deps.Jobs.MarkFailed(ctx, job.ID, code, cause.Error()); err != nil {
		return fmt.Errorf("%w; mark job failed: %w", cause, err)
	}
	p.deps.Logger.Error("pipeline failed",
		"job_id", job.ID, "stage", job.Stage, "error_code", code, "error", cause)
	return cause
}

func (p *Pipeline) observe(stage domain.Stage, started time.Time, err error) {
	if p.deps.Observer != nil {
		p.deps.Observer.ObserveStage(stage, time.Since(started), err)
	}
}

// stageTextExtraction derives the text record. Extractor errors are fatal:
// without any extraction result the job cannot proceed. Format-level
// failures are not errors; they come back as empty text with NeedsVLM set.
func (p *Pipeline) stageTextExtraction(
	ctx context.Context,
	job *domain.ProcessingJob,
	doc *domain.Document,
	content []byte,
	log *slog.Logger,
) (*domain.DocumentText, error) {
	started := time.Now()
	if err := p.enterStage(ctx, job, domain.StageTextExtraction); err != nil {
		return nil, fmt.Errorf("advance to extraction: %w", err)
	}

	result, err := p.deps.Extractor.Extract(ctx, content, doc.Filename, doc.FileType)
	p.observe(domain.StageTextExtraction, started, err)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "extract text", err)
	}

	now := time.Now().UTC()
	text := &domain.DocumentText{
		DocID:     doc.ID,
		Text:      result.Text,
		Pages:     result.Pages,
		PageCount: result.PageCount,
		CharCount: result.CharCount,
		Method:    result.Method,
		Quality:   result.Quality,
		NeedsVLM:  result.NeedsVLM,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.deps.Texts.Upsert(ctx, text); err != nil {
		return nil, fmt.Errorf("save text record: %w", err)
	}
	if err := p.deps.Docs.UpdatePageCount(ctx, doc.ID, result.PageCount); err != nil {
		log.Warn("update page count", "error", err)
	}

	log.Info("text extraction complete",
		"chars", result.CharCount, "pages", result.PageCount,
		"method", result.Method, "quality", result.Quality)
	return text, nil
}

// stageClassification is non-fatal: on inference failure the safe default
// classification is stored and the run continues.
func (p *Pipeline) stageClassification(
	ctx context.Context,
	job *domain.ProcessingJob,
	doc *domain.Document,
	text *domain.DocumentText,
	log *slog.Logger,
) *domain.Classification {
	started := time.Now()
	if err := p.enterStage(ctx, job, domain.StageClassification); err != nil {
		log.Warn("advance to classification", "error", err)
		return nil
	}
	if text.Empty() {
		log.Warn("no text available for classification")
		p.skipAhead(ctx, job, domain.StageClassification)
		return nil
	}

	sample := truncate(text.Text, p.deps.Limits.ClassificationChars)
	cls, err := p.deps.Classifier.Classify(ctx, sample)
	p.observe(domain.StageClassification, started, err)
	if err != nil {
		log.Warn("classification failed, storing safe default", "error", err)
		p.skipAhead(ctx, job, domain.StageClassification)
	}

	cls.DocID = doc.ID
	// Low-quality extraction overrides whatever the model said.
	if text.NeedsVLM {
		cls.NeedsVLM = true
	}
	if err := p.deps.Classifications.Upsert(ctx, &cls); err != nil {
		log.Warn("save classification", "error", err)
		return nil
	}

	log.Info("classification complete",
		"doc_type", cls.DocType, "sensitivity", cls.Sensitivity, "confidence", cls.Confidence)
	return &cls
}

// skipAhead nudges progress past a skipped or degraded stage so pollers can
// tell it ran.
func (p *Pipeline) skipAhead(ctx context.Context, job *domain.ProcessingJob, stage domain.Stage) {
	if err := p.deps.Jobs.Advance(ctx, job.ID, stage, stage.Checkpoint()+5); err != nil {
		p.deps.Logger.Warn("advance past skipped stage", "job_id", job.ID, "stage", stage, "error", err)
	}
}

// stagePIIScanning fuses rule-based and semantic detections, replaces the
// entity set and writes the redacted text. All failures are non-fatal.
func (p *Pipeline) stagePIIScanning(
	ctx context.Context,
	job *domain.ProcessingJob,
	doc *domain.Document,
	text *domain.DocumentText,
	log *slog.Logger,
) {
	started := time.Now()
	if err := p.enterStage(ctx, job, domain.StagePIIScanning); err != nil {
		log.Warn("advance to pii scanning", "error", err)
		return
	}
	if text.Empty() {
		log.Warn("no text available for pii scanning")
		return
	}

	p.deps.Detector.Reset()
	ruleEntities := p.deps.Detector.Detect(text.Text)

	var semanticEntities []domain.PIIEntity
	if sample := joinPages(text.Pages, p.deps.Limits.PIISamplePages, p.deps.Limits.PIISampleChars); sample != "" {
		entities, err := p.deps.Semantic.DetectPII(ctx, sample)
		if err != nil {
			log.Warn("semantic pii detection failed", "error", err)
		} else {
			semanticEntities = entities
		}
	}

	fused := domain.FusePIIEntities(ruleEntities, semanticEntities, p.deps.Limits.SemanticPIIMinConf)
	for i := range fused {
		fused[i].DocID = doc.ID
	}

	// Pseudonymize stamps the assigned token on each entity, so it runs
	// before the rows are written.
	redacted, _ := p.deps.Detector.Pseudonymize(text.Text, fused)

	if err := p.deps.PII.ReplaceForDocument(ctx, doc.ID, fused); err != nil {
		log.Warn("replace pii entities", "error", err)
		p.observe(domain.StagePIIScanning, started, err)
		return
	}

	if err := p.deps.Texts.SaveRedacted(ctx, doc.ID, redacted); err != nil {
		log.Warn("save redacted text", "error", err)
		p.observe(domain.StagePIIScanning, started, err)
		return
	}
	text.RedactedText = redacted

	p.observe(domain.StagePIIScanning, started, nil)
	log.Info("pii scanning complete", "entities", len(fused))
}

// shouldRouteToVision implements the routing policy in order: explicit
// needs_vlm flags, then low extraction quality, then table-shaped doc types.
func shouldRouteToVision(cls *domain.Classification, text *domain.DocumentText) bool {
	if (cls != nil && cls.NeedsVLM) || (text != nil && text.NeedsVLM) {
		return true
	}
	if text != nil && text.Quality < 0.3 {
		return true
	}
	if cls != nil {
		switch cls.DocType {
		case domain.SchemaInvoice, domain.SchemaFinancialStatement, domain.SchemaContract:
			return true
		}
	}
	return false
}

// stageStructuring conditionally routes to the vision service. An absent
// service and extraction errors are both non-fatal.
func (p *Pipeline) stageStructuring(
	ctx context.Context,
	job *domain.ProcessingJob,
	doc *domain.Document,
	content []byte,
	text *domain.DocumentText,
	cls *domain.Classification,
	log *slog.Logger,
) {
	started := time.Now()
	if err := p.enterStage(ctx, job, domain.StageStructuring); err != nil {
		log.Warn("advance to structuring", "error", err)
		return
	}

	if !shouldRouteToVision(cls, text) {
		log.Info("vision extraction not needed")
		return
	}
	if !p.deps.Vision.Available(ctx) {
		log.Warn("vision service unavailable, skipping structure extraction")
		return
	}

	schemaType := domain.SchemaInvoice
	if cls != nil {
		schemaType = domain.SchemaForDocType(cls.DocType)
	}

	rec, err := p.deps.Vision.Extract(ctx, content, schemaType)
	p.observe(domain.StageStructuring, started, err)
	if err != nil {
		log.Warn("structure extraction failed", "schema", schemaType, "error", err)
		return
	}
	if rec == nil || rec.Data == nil {
		return
	}
	rec.DocID = doc.ID
	if err := p.deps.Structured.Append(ctx, rec); err != nil {
		log.Warn("save structured record", "error", err)
		return
	}
	log.Info("structure extraction complete", "schema", schemaType, "confidence", rec.Confidence)
}

// stageAnalysis generates findings. This is the one stage whose failure is
// fatal: findings are the product's primary deliverable.
func (p *Pipeline) stageAnalysis(
	ctx context.Context,
	job *domain.ProcessingJob,
	doc *domain.Document,
	text *domain.DocumentText,
	cls *domain.Classification,
	log *slog.Logger,
) error {
	started := time.Now()
	if err := p.enterStage(ctx, job, domain.StageAnalysis); err != nil {
		return fmt.Errorf("advance to analysis: %w", err)
	}
	if text.Empty() {
		log.Warn("no text available for analysis")
		return nil
	}

	docType := "unknown"
	if cls != nil && cls.DocType != "" {
		docType = cls.DocType
	}

	structured, err := p.deps.Structured.FirstForDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn("load structured data", "error", err)
	}
	var structuredData map[string]any
	if structured != nil {
		structuredData = structured.Data
	}

	result, err := p.deps.Generator.Generate(
		ctx,
		truncate(text.InferenceText(), p.deps.Limits.AnalysisChars),
		docType,
		structuredData,
	)
	p.observe(domain.StageAnalysis, started, err)
	if err != nil {
		return domain.WrapError(domain.ErrInference, "generate findings", err)
	}

	findings := make([]domain.Finding, 0, len(result.Findings)+1)
	for _, f := range result.Findings {
		f.ProjectID = doc.ProjectID
		f.DocID = doc.ID
		f.Status = domain.FindingNew
		findings = append(findings, f)
	}

	if dup := p.duplicateInvoiceFinding(ctx, doc, docType, structured, log); dup != nil {
		findings = append(findings, *dup)
	}

	if len(findings) > 0 {
		if err := p.deps.Findings.InsertBatch(ctx, findings); err != nil {
			return fmt.Errorf("save findings: %w", err)
		}
	}

	log.Info("analysis complete", "findings", len(findings), "risk_score_delta", result.RiskScoreDelta)
	return nil
}

// duplicateInvoiceFinding runs the deterministic duplicate-invoice check:
// same project, same structured invoice number, first match only.
func (p *Pipeline) duplicateInvoiceFinding(
	ctx context.Context,
	doc *domain.Document,
	docType string,
	structured *domain.StructuredRecord,
	log *slog.Logger,
) *domain.Finding {
	if docType != domain.SchemaInvoice {
		return nil
	}
	invoiceNum := structured.InvoiceNumber()
	if invoiceNum == "" {
		return nil
	}

	siblings, err := p.deps.Structured.ListProjectSiblings(ctx, doc.ProjectID, doc.ID, domain.SchemaInvoice)
	if err != nil {
		log.Warn("duplicate invoice sibling query", "error", err)
		return nil
	}
	for _, sibling := range siblings {
		if sibling.InvoiceNumber() != invoiceNum {
			continue
		}
		return &domain.Finding{
			ProjectID: doc.ProjectID,
			DocID:     doc.ID,
			Category:  "FINANCIAL",
			Type:      "DUPLICATE_INVOICE",
			Severity:  domain.SeverityHigh,
			Status:    domain.FindingNew,
			Description: fmt.Sprintf(
				"This invoice has the same invoice number (%s) as another document in the data room.",
				invoiceNum),
			EvidenceQuote: invoiceNum,
			Confidence:    p.deps.Limits.DuplicateInvoiceConf,
		}
	}
	return nil
}

// stageIndexing rebuilds the retrieval chunks. Failure is non-fatal: the job
// still completes.
func (p *Pipeline) stageIndexing(
	ctx context.Context,
	job *domain.ProcessingJob,
	doc *domain.Document,
	text *domain.DocumentText,
	log *slog.Logger,
) {
	started := time.Now()
	if err := p.enterStage(ctx, job, domain.StageIndexing); err != nil {
		log.Warn("advance to indexing", "error", err)
		return
	}
	if text.Empty() {
		log.Warn("no text available for indexing")
		return
	}

	pages := text.Pages
	if len(pages) == 0 {
		pages = []string{text.Text}
	}
	chunks := p.deps.Chunker.SplitPages(pages)
	for i := range chunks {
		chunks[i].DocID = doc.ID
	}

	err := p.deps.Chunks.ReplaceForDocument(ctx, doc.ID, chunks)
	p.observe(domain.StageIndexing, started, err)
	if err != nil {
		log.Warn("indexing failed, continuing", "error", err)
		return
	}
	log.Info("indexing complete", "chunks", len(chunks))
}

func (p *Pipeline) emitAudit(ctx context.Context, doc *domain.Document, log *slog.Logger) {
	if p.deps.Audit == nil {
		return
	}
	event := domain.AuditEvent{
		Action:    domain.AuditAnalysisComplete,
		ActorID:   doc.UploadedBy,
		ProjectID: doc.ProjectID,
		DocID:     doc.ID,
		Filename:  doc.Filename,
		At:        time.Now().UTC(),
	}
	if err := p.deps.Audit.PipelineCompleted(ctx, event); err != nil {
		log.Warn("emit audit event", "error", err)
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}

func joinPages(pages []string, maxPages, maxChars int) string {
	if len(pages) == 0 {
		return ""
	}
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	joined := ""
	for i, page := range pages {
		if i > 0 {
			joined += "\n\n"
		}
		joined += page
	}
	return truncate(joined, maxChars)
}
