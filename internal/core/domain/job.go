package domain

import "time"

type Stage string

const (
	StageQueued         Stage = "QUEUED"
	StageUploaded       Stage = "UPLOADED"
	StageTextExtraction Stage = "TEXT_EXTRACTION"
	StageClassification Stage = "CLASSIFICATION"
	StagePIIScanning    Stage = "PII_SCANNING"
	StageStructuring    Stage = "STRUCTURING"
	StageAnalysis       Stage = "ANALYSIS"
	StageIndexing       Stage = "INDEXING"
	StageCompleted      Stage = "COMPLETED"
)

// stageCheckpoints is the fixed coarse progress schedule. Callers polling a
// job treat progress as an ETA proxy only, not a continuous measurement.
var stageCheckpoints = map[Stage]int{
	StageQueued:         0,
	StageUploaded:       5,
	StageTextExtraction: 10,
	StageClassification: 30,
	StagePIIScanning:    50,
	StageStructuring:    65,
	StageAnalysis:       80,
	StageIndexing:       90,
	StageCompleted:      100,
}

func (s Stage) Checkpoint() int {
	return stageCheckpoints[s]
}

type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
	JobCancelled  JobStatus = "CANCELLED"
)

// ProcessingJob tracks one processing attempt of one document version.
// Mutated exclusively by the pipeline; a re-run is always a fresh row.
type ProcessingJob struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	DocID       string     `json:"doc_id"`
	BatchID     string     `json:"batch_id,omitempty"`
	Stage       Stage      `json:"stage"`
	Progress    int        `json:"progress"`
	Status      JobStatus  `json:"status"`
	ETASeconds  *int       `json:"eta_seconds,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	WorkerID    string     `json:"worker_id,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (j *ProcessingJob) Active() bool {
	return j.Status == JobQueued || j.Status == JobProcessing
}

// AuditEvent is emitted to the audit subject when a pipeline run completes.
// The actor is the document's uploader, who triggered the run.
type AuditEvent struct {
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	ProjectID string    `json:"project_id"`
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	At        time.Time `json:"at"`
}

const AuditAnalysisComplete = "AI_ANALYSIS_COMPLETE"
