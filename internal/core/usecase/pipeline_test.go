package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type advanceCall struct {
	stage    domain.Stage
	progress int
}

type failCall struct {
	code string
	msg  string
}

type fakeJobRepo struct {
	job       *domain.ProcessingJob
	getErr    error
	active    *domain.ProcessingJob
	activeErr error
	createErr error

	created   []*domain.ProcessingJob
	started   []string
	advances  []advanceCall
	completed []string
	failed    []failCall
}

func (f *fakeJobRepo) Create(_ context.Context, job *domain.ProcessingJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id string) (*domain.ProcessingJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.job == nil || f.job.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.job, nil
}

func (f *fakeJobRepo) ActiveForDocument(_ context.Context, _ string) (*domain.ProcessingJob, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	if f.active == nil {
		return nil, domain.ErrNotFound
	}
	return f.active, nil
}

func (f *fakeJobRepo) MarkStarted(_ context.Context, id, _ string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeJobRepo) Advance(_ context.Context, _ string, stage domain.Stage, progress int) error {
	f.advances = append(f.advances, advanceCall{stage: stage, progress: progress})
	return nil
}

func (f *fakeJobRepo) MarkCompleted(_ context.Context, id string) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, _ string, code, msg string) error {
	f.failed = append(f.failed, failCall{code: code, msg: msg})
	return nil
}

type fakeDocRepo struct {
	doc        *domain.Document
	err        error
	pageCounts []int
}

func (f *fakeDocRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc == nil || f.doc.ID != id {
		return nil, domain.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeDocRepo) UpdatePageCount(_ context.Context, _ string, pages int) error {
	f.pageCounts = append(f.pageCounts, pages)
	return nil
}

type fakeTextRepo struct {
	upserted  *domain.DocumentText
	upsertErr error
	redacted  string
}

func (f *fakeTextRepo) Upsert(_ context.Context, text *domain.DocumentText) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = text
	return nil
}

func (f *fakeTextRepo) GetByDocument(_ context.Context, _ string) (*domain.DocumentText, error) {
	return f.upserted, nil
}

func (f *fakeTextRepo) SaveRedacted(_ context.Context, _ string, redacted string) error {
	f.redacted = redacted
	return nil
}

type fakePIIRepo struct {
	replaced []domain.PIIEntity
	err      error
}

func (f *fakePIIRepo) ReplaceForDocument(_ context.Context, _ string, entities []domain.PIIEntity) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = entities
	return nil
}

type fakeClassificationRepo struct {
	upserted *domain.Classification
	err      error
}

func (f *fakeClassificationRepo) Upsert(_ context.Context, cls *domain.Classification) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = cls
	return nil
}

func (f *fakeClassificationRepo) GetByDocument(_ context.Context, _ string) (*domain.Classification, error) {
	return f.upserted, nil
}

type fakeStructuredRepo struct {
	appended []*domain.StructuredRecord
	first    *domain.StructuredRecord
	siblings []domain.StructuredRecord
}

func (f *fakeStructuredRepo) Append(_ context.Context, rec *domain.StructuredRecord) error {
	f.appended = append(f.appended, rec)
	return nil
}

func (f *fakeStructuredRepo) FirstForDocument(_ context.Context, _ string) (*domain.StructuredRecord, error) {
	if f.first == nil {
		return nil, domain.ErrNotFound
	}
	return f.first, nil
}

func (f *fakeStructuredRepo) ListProjectSiblings(_ context.Context, _, _, _ string) ([]domain.StructuredRecord, error) {
	return f.siblings, nil
}

type fakeFindingRepo struct {
	inserted []domain.Finding
	listErr  error
	list     []domain.Finding
	err      error
}

func (f *fakeFindingRepo) InsertBatch(_ context.Context, findings []domain.Finding) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, findings...)
	return nil
}

func (f *fakeFindingRepo) ListByProject(_ context.Context, _ string, _ int) ([]domain.Finding, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

type fakeChunkRepo struct {
	replaced []domain.Chunk
	list     []domain.Chunk
	err      error
}

func (f *fakeChunkRepo) ReplaceForDocument(_ context.Context, _ string, chunks []domain.Chunk) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = chunks
	return nil
}

func (f *fakeChunkRepo) ListByProject(_ context.Context, _ string, _ int) ([]domain.Chunk, error) {
	return f.list, nil
}

type fakeBlobStore struct {
	data    []byte
	openErr error
}

func (f *fakeBlobStore) Save(_ context.Context, _ string, _ io.Reader) error { return nil }

func (f *fakeBlobStore) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type fakeExtractor struct {
	result domain.ExtractionResult
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _, _ string) (domain.ExtractionResult, error) {
	return f.result, f.err
}

type fakeDetector struct {
	entities []domain.PIIEntity
	redacted string
	resets   int
}

func (f *fakeDetector) Reset() { f.resets++ }

func (f *fakeDetector) Detect(_ string) []domain.PIIEntity { return f.entities }

func (f *fakeDetector) Pseudonymize(text string, entities []domain.PIIEntity) (string, []domain.PIIReplacement) {
	for i := range entities {
		entities[i].Replacement = fmt.Sprintf("%s_%d", entities[i].Label, i+1)
	}
	if f.redacted != "" {
		return f.redacted, nil
	}
	return text, nil
}

type fakeSemanticDetector struct {
	entities []domain.PIIEntity
	err      error
}

func (f *fakeSemanticDetector) DetectPII(_ context.Context, _ string) ([]domain.PIIEntity, error) {
	return f.entities, f.err
}

type fakeClassifier struct {
	cls     domain.Classification
	err     error
	gotText string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (domain.Classification, error) {
	f.gotText = text
	if f.err != nil {
		return domain.DefaultClassification(""), f.err
	}
	return f.cls, nil
}

type fakeGenerator struct {
	result     domain.FindingsResult
	err        error
	calls      int
	gotText    string
	gotDocType string
	gotData    map[string]any
}

func (f *fakeGenerator) Generate(_ context.Context, text, docType string, structured map[string]any) (domain.FindingsResult, error) {
	f.calls++
	f.gotText = text
	f.gotDocType = docType
	f.gotData = structured
	return f.result, f.err
}

type fakeVision struct {
	available bool
	rec       *domain.StructuredRecord
	err       error
	schemas   []string
}

func (f *fakeVision) Available(_ context.Context) bool { return f.available }

func (f *fakeVision) Extract(_ context.Context, _ []byte, schemaType string) (*domain.StructuredRecord, error) {
	f.schemas = append(f.schemas, schemaType)
	return f.rec, f.err
}

type fakeChunker struct {
	chunks []domain.Chunk
}

func (f *fakeChunker) SplitPages(_ []string) []domain.Chunk {
	out := make([]domain.Chunk, len(f.chunks))
	copy(out, f.chunks)
	return out
}

type fakeAuditNotifier struct {
	events []domain.AuditEvent
	err    error
}

func (f *fakeAuditNotifier) PipelineCompleted(_ context.Context, event domain.AuditEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type pipelineFixture struct {
	jobs       *fakeJobRepo
	docs       *fakeDocRepo
	texts      *fakeTextRepo
	pii        *fakePIIRepo
	cls        *fakeClassificationRepo
	structured *fakeStructuredRepo
	findings   *fakeFindingRepo
	chunks     *fakeChunkRepo
	blobs      *fakeBlobStore
	extractor  *fakeExtractor
	detector   *fakeDetector
	semantic   *fakeSemanticDetector
	classifier *fakeClassifier
	generator  *fakeGenerator
	vision     *fakeVision
	chunker    *fakeChunker
	audit      *fakeAuditNotifier
}

func newPipelineFixture() *pipelineFixture {
	return &pipelineFixture{
		jobs: &fakeJobRepo{job: &domain.ProcessingJob{
			ID:        "job-1",
			ProjectID: "proj-1",
			DocID:     "doc-1",
			Stage:     domain.StageQueued,
			Status:    domain.JobQueued,
		}},
		docs: &fakeDocRepo{doc: &domain.Document{
			ID:         "doc-1",
			ProjectID:  "proj-1",
			Filename:   "invoice.pdf",
			FileType:   "pdf",
			StorageKey: "proj-1/doc-1/invoice.pdf",
			Status:     domain.StatusReady,
			UploadedBy: "user-1",
		}},
		texts:      &fakeTextRepo{},
		pii:        &fakePIIRepo{},
		cls:        &fakeClassificationRepo{},
		structured: &fakeStructuredRepo{},
		findings:   &fakeFindingRepo{},
		chunks:     &fakeChunkRepo{},
		blobs:      &fakeBlobStore{data: []byte("%PDF-1.4 payload")},
		extractor: &fakeExtractor{result: domain.ExtractionResult{
			Text:      "Invoice INV-100\n\nTotal due 5000 USD",
			Pages:     []string{"Invoice INV-100", "Total due 5000 USD"},
			PageCount: 2,
			CharCount: 35,
			Method:    "pdfplumber",
			Quality:   0.9,
		}},
		detector: &fakeDetector{},
		semantic: &fakeSemanticDetector{},
		classifier: &fakeClassifier{cls: domain.Classification{
			DocType:     "invoice",
			Sensitivity: "MEDIUM",
			Confidence:  0.92,
			Tags:        []string{"finance"},
		}},
		generator: &fakeGenerator{result: domain.FindingsResult{
			Findings: []domain.Finding{{
				Category:    "FINANCIAL",
				Type:        "LARGE_PAYMENT",
				Severity:    domain.SeverityMedium,
				Description: "Payment above the review threshold.",
				Confidence:  0.8,
			}},
			RiskScoreDelta: 5,
		}},
		vision: &fakeVision{available: true, rec: &domain.StructuredRecord{
			SchemaType: domain.SchemaInvoice,
			Data:       map[string]any{"invoice_number": "INV-100"},
			Confidence: 0.88,
		}},
		chunker: &fakeChunker{chunks: []domain.Chunk{
			{Index: 0, Text: "Invoice INV-100", Page: 1},
			{Index: 1, Text: "Total due 5000 USD", Page: 2},
		}},
		audit: &fakeAuditNotifier{},
	}
}

func (f *pipelineFixture) pipeline() *Pipeline {
	return NewPipeline(PipelineDeps{
		Jobs:            f.jobs,
		Docs:            f.docs,
		Texts:           f.texts,
		PII:             f.pii,
		Classifications: f.cls,
		Structured:      f.structured,
		Findings:        f.findings,
		Chunks:          f.chunks,
		Blobs:           f.blobs,
		Extractor:       f.extractor,
		Detector:        f.detector,
		Semantic:        f.semantic,
		Classifier:      f.classifier,
		Generator:       f.generator,
		Vision:          f.vision,
		Chunker:         f.chunker,
		Audit:           f.audit,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		WorkerID:        "worker-test",
	})
}

func TestRunHappyPathCompletes(t *testing.T) {
	f := newPipelineFixture()
	f.structured.first = f.vision.rec

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.jobs.started) != 1 || len(f.jobs.completed) != 1 {
		t.Fatalf("started=%v completed=%v", f.jobs.started, f.jobs.completed)
	}
	if len(f.jobs.failed) != 0 {
		t.Fatalf("unexpected failures: %v", f.jobs.failed)
	}

	wantStages := []domain.Stage{
		domain.StageTextExtraction,
		domain.StageClassification,
		domain.StagePIIScanning,
		domain.StageStructuring,
		domain.StageAnalysis,
		domain.StageIndexing,
	}
	if len(f.jobs.advances) != len(wantStages) {
		t.Fatalf("advances = %v", f.jobs.advances)
	}
	for i, want := range wantStages {
		got := f.jobs.advances[i]
		if got.stage != want || got.progress != want.Checkpoint() {
			t.Fatalf("advance %d = %+v, want %s@%d", i, got, want, want.Checkpoint())
		}
	}

	if f.texts.upserted == nil || f.texts.upserted.DocID != "doc-1" {
		t.Fatalf("text record not saved: %+v", f.texts.upserted)
	}
	if f.cls.upserted == nil || f.cls.upserted.DocType != "invoice" {
		t.Fatalf("classification not saved: %+v", f.cls.upserted)
	}
	if f.detector.resets != 1 {
		t.Fatalf("detector resets = %d", f.detector.resets)
	}
	if len(f.structured.appended) != 1 || f.structured.appended[0].DocID != "doc-1" {
		t.Fatalf("structured records = %+v", f.structured.appended)
	}
	if len(f.findings.inserted) != 1 {
		t.Fatalf("findings = %+v", f.findings.inserted)
	}
	got := f.findings.inserted[0]
	if got.ProjectID != "proj-1" || got.DocID != "doc-1" || got.Status != domain.FindingNew {
		t.Fatalf("finding stamping = %+v", got)
	}
	if len(f.chunks.replaced) != 2 || f.chunks.replaced[0].DocID != "doc-1" {
		t.Fatalf("chunks = %+v", f.chunks.replaced)
	}
	if len(f.audit.events) != 1 || f.audit.events[0].ActorID != "user-1" {
		t.Fatalf("audit events = %+v", f.audit.events)
	}
}

func TestRunJobNotFound(t *testing.T) {
	f := newPipelineFixture()

	err := f.pipeline().Run(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(f.jobs.failed) != 0 {
		t.Fatalf("failJob should not run without a job row: %v", f.jobs.failed)
	}
}

func TestRunExtractionFailureIsFatal(t *testing.T) {
	f := newPipelineFixture()
	f.extractor.err = errors.New("corrupt stream")

	err := f.pipeline().Run(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("err = %v", err)
	}
	if len(f.jobs.failed) != 1 || f.jobs.failed[0].code != domain.CodeExtraction {
		t.Fatalf("failed = %+v", f.jobs.failed)
	}
	if f.texts.upserted != nil {
		t.Fatal("text must not be saved when extraction fails")
	}
	if len(f.findings.inserted) != 0 || len(f.chunks.replaced) != 0 {
		t.Fatal("downstream stages must not run after a fatal failure")
	}
}

func TestRunClassificationFailureIsNonFatal(t *testing.T) {
	f := newPipelineFixture()
	f.classifier.err = errors.New("model timeout")
	f.vision.available = false

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.cls.upserted == nil || f.cls.upserted.DocType != "unknown" {
		t.Fatalf("safe default not stored: %+v", f.cls.upserted)
	}
	var sawSkip bool
	for _, a := range f.jobs.advances {
		if a.stage == domain.StageClassification && a.progress == domain.StageClassification.Checkpoint()+5 {
			sawSkip = true
		}
	}
	if !sawSkip {
		t.Fatalf("skip-ahead advance missing: %v", f.jobs.advances)
	}
	if f.generator.gotDocType != "unknown" {
		t.Fatalf("analysis doc type = %q", f.generator.gotDocType)
	}
	if len(f.findings.inserted) != 1 {
		t.Fatalf("findings = %+v", f.findings.inserted)
	}
	if len(f.jobs.completed) != 1 {
		t.Fatal("job must still complete")
	}
}

func TestRunAnalysisFailureIsFatal(t *testing.T) {
	f := newPipelineFixture()
	f.generator.err = errors.New("model unreachable")

	err := f.pipeline().Run(context.Background(), "job-1")
	if !errors.Is(err, domain.ErrInference) {
		t.Fatalf("err = %v", err)
	}
	if len(f.jobs.failed) != 1 || f.jobs.failed[0].code != domain.CodeAnalysis {
		t.Fatalf("failed = %+v", f.jobs.failed)
	}
	if len(f.jobs.completed) != 0 {
		t.Fatal("job must not complete")
	}
	if len(f.audit.events) != 0 {
		t.Fatal("audit must not fire on failure")
	}
}

func TestRunVisionUnavailableSkipsStructuring(t *testing.T) {
	f := newPipelineFixture()
	f.vision.available = false

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.vision.schemas) != 0 {
		t.Fatalf("vision extract should not be called: %v", f.vision.schemas)
	}
	if len(f.structured.appended) != 0 {
		t.Fatalf("structured records = %+v", f.structured.appended)
	}
	if len(f.jobs.completed) != 1 {
		t.Fatal("job must still complete")
	}
}

func TestRunEmptyExtractionRoutesVisionAndCompletes(t *testing.T) {
	f := newPipelineFixture()
	f.extractor.result = domain.ExtractionResult{
		Method:   "pdfplumber",
		NeedsVLM: true,
	}

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// No text means no classification row, but the needs_vlm flag still
	// routes to vision with the default schema.
	if f.cls.upserted != nil {
		t.Fatalf("classification stored for empty text: %+v", f.cls.upserted)
	}
	if len(f.vision.schemas) != 1 || f.vision.schemas[0] != domain.SchemaInvoice {
		t.Fatalf("vision schemas = %v", f.vision.schemas)
	}
	if f.generator.calls != 0 {
		t.Fatal("analysis must be skipped for empty text")
	}
	if len(f.chunks.replaced) != 0 {
		t.Fatalf("chunks = %+v", f.chunks.replaced)
	}
	if len(f.jobs.completed) != 1 {
		t.Fatal("job must still complete")
	}
}

func TestRunDuplicateInvoiceFinding(t *testing.T) {
	f := newPipelineFixture()
	f.structured.first = &domain.StructuredRecord{
		SchemaType: domain.SchemaInvoice,
		Data:       map[string]any{"invoice_number": "INV-100"},
	}
	f.structured.siblings = []domain.StructuredRecord{
		{DocID: "doc-0", SchemaType: domain.SchemaInvoice, Data: map[string]any{"invoice_number": "INV-099"}},
		{DocID: "doc-2", SchemaType: domain.SchemaInvoice, Data: map[string]any{"invoice_number": "INV-100"}},
	}

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var dup *domain.Finding
	for i := range f.findings.inserted {
		if f.findings.inserted[i].Type == "DUPLICATE_INVOICE" {
			dup = &f.findings.inserted[i]
		}
	}
	if dup == nil {
		t.Fatalf("duplicate finding missing: %+v", f.findings.inserted)
	}
	if dup.Severity != domain.SeverityHigh || dup.Category != "FINANCIAL" {
		t.Fatalf("duplicate finding = %+v", dup)
	}
	if dup.EvidenceQuote != "INV-100" {
		t.Fatalf("evidence quote = %q", dup.EvidenceQuote)
	}
}

func TestRunNoDuplicateForUniqueInvoice(t *testing.T) {
	f := newPipelineFixture()
	f.structured.first = &domain.StructuredRecord{
		SchemaType: domain.SchemaInvoice,
		Data:       map[string]any{"invoice_number": "INV-100"},
	}
	f.structured.siblings = []domain.StructuredRecord{
		{DocID: "doc-2", SchemaType: domain.SchemaInvoice, Data: map[string]any{"invoice_number": "INV-200"}},
	}

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, finding := range f.findings.inserted {
		if finding.Type == "DUPLICATE_INVOICE" {
			t.Fatalf("unexpected duplicate finding: %+v", finding)
		}
	}
}

func TestRunPIIFusionAndRedaction(t *testing.T) {
	f := newPipelineFixture()
	f.detector.entities = []domain.PIIEntity{
		{Label: "EMAIL", Text: "a@b.com", Start: 0, End: 7, Confidence: 0.95, Method: domain.DetectionRuleBased},
	}
	f.detector.redacted = "EMAIL_1 sent the invoice"
	f.semantic.entities = []domain.PIIEntity{
		{Label: "PERSON", Text: "Jane Roe", Confidence: 0.9},
		{Label: "ORG", Text: "maybe a company", Confidence: 0.4},
	}

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(f.pii.replaced) != 2 {
		t.Fatalf("fused entities = %+v", f.pii.replaced)
	}
	for _, e := range f.pii.replaced {
		if e.DocID != "doc-1" {
			t.Fatalf("entity missing doc id: %+v", e)
		}
		if e.Label == "ORG" {
			t.Fatal("low-confidence semantic entity must be dropped")
		}
		// Pseudonymization runs before the rows are written, so every
		// persisted entity carries its token.
		if e.Replacement == "" {
			t.Fatalf("entity persisted without replacement token: %+v", e)
		}
	}
	if f.texts.redacted != "EMAIL_1 sent the invoice" {
		t.Fatalf("redacted = %q", f.texts.redacted)
	}
}

func TestRunSemanticPIIFailureKeepsRuleEntities(t *testing.T) {
	f := newPipelineFixture()
	f.detector.entities = []domain.PIIEntity{
		{Label: "EMAIL", Text: "a@b.com", Start: 0, End: 7, Confidence: 0.95, Method: domain.DetectionRuleBased},
	}
	f.semantic.err = errors.New("model unreachable")

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.pii.replaced) != 1 || f.pii.replaced[0].Label != "EMAIL" {
		t.Fatalf("entities = %+v", f.pii.replaced)
	}
	if len(f.jobs.completed) != 1 {
		t.Fatal("job must still complete")
	}
}

func TestRunIndexingFailureIsNonFatal(t *testing.T) {
	f := newPipelineFixture()
	f.chunks.err = errors.New("db down")

	if err := f.pipeline().Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.jobs.completed) != 1 {
		t.Fatal("job must still complete")
	}
}

func TestShouldRouteToVision(t *testing.T) {
	cases := []struct {
		name string
		cls  *domain.Classification
		text *domain.DocumentText
		want bool
	}{
		{"nil inputs", nil, nil, false},
		{"classifier flag", &domain.Classification{NeedsVLM: true}, &domain.DocumentText{Quality: 0.9}, true},
		{"extraction flag", nil, &domain.DocumentText{NeedsVLM: true}, true},
		{"low quality", &domain.Classification{DocType: "report"}, &domain.DocumentText{Quality: 0.1}, true},
		{"invoice type", &domain.Classification{DocType: domain.SchemaInvoice}, &domain.DocumentText{Quality: 0.9}, true},
		{"contract type", &domain.Classification{DocType: domain.SchemaContract}, &domain.DocumentText{Quality: 0.9}, true},
		{"plain report", &domain.Classification{DocType: "report"}, &domain.DocumentText{Quality: 0.9}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRouteToVision(tc.cls, tc.text); got != tc.want {
				t.Fatalf("shouldRouteToVision = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestJoinPages(t *testing.T) {
	pages := []string{"first", "second", "third", "fourth"}
	if got := joinPages(pages, 2, 100); got != "first\n\nsecond" {
		t.Fatalf("joinPages = %q", got)
	}
	if got := joinPages(pages, 0, 7); got != "first\n\n" {
		t.Fatalf("joinPages = %q", got)
	}
	if got := joinPages(nil, 3, 100); got != "" {
		t.Fatalf("joinPages = %q", got)
	}
}
