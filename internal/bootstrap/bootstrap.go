// Package bootstrap wires configuration into the worker's object graph.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mkorobkov/dealroom-pipeline/internal/config"
	"github.com/mkorobkov/dealroom-pipeline/internal/core/ports"
	"github.com/mkorobkov/dealroom-pipeline/internal/core/usecase"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/chunking"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/extractor"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/llm/ollama"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/pii"
	natsqueue "github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/queue/nats"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/repository/postgres"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/resilience"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/storage/localfs"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/vlm/donut"
	"github.com/mkorobkov/dealroom-pipeline/internal/observability/logging"
	"github.com/mkorobkov/dealroom-pipeline/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   *natsqueue.Queue
	Metrics *metrics.WorkerMetrics

	Pipeline  ports.PipelineRunner
	Enqueue   ports.JobEnqueuer
	Status    ports.JobStatusReader
	Assistant ports.ProjectAssistant

	Jobs ports.JobRepository

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	workerID, _ := os.Hostname()
	logger = logging.WorkerLogger(logger, workerID)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	jobs := postgres.NewJobRepository(db)
	docs := postgres.NewDocumentRepository(db)
	texts := postgres.NewTextRepository(db)
	piiRepo := postgres.NewPIIRepository(db)
	classifications := postgres.NewClassificationRepository(db)
	structured := postgres.NewStructuredRepository(db)
	findings := postgres.NewFindingRepository(db)
	chunks := postgres.NewChunkRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(cfg.BreakerMinRequests),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutMS) * time.Millisecond,
	})

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSJobSubject, cfg.NATSAuditSubject, natsqueue.Options{
		ResilienceExecutor: exec,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	detector, err := pii.NewDetector()
	if err != nil {
		return nil, fmt.Errorf("init pii detector: %w", err)
	}

	ollamaClient := ollama.New(
		cfg.OllamaURL,
		ollama.Models{
			Classification: cfg.OllamaClassificationModel,
			PII:            cfg.OllamaPIIModel,
			Analysis:       cfg.OllamaAnalysisModel,
		},
		time.Duration(cfg.OllamaTimeoutSeconds)*time.Second,
		cfg.OllamaRequestsPerSecond,
		exec,
	)

	vision, err := donut.New(cfg.DonutURL, time.Duration(cfg.DonutTimeoutSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("init vision client: %w", err)
	}

	workerMetrics := metrics.NewWorkerMetrics(service)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Jobs:            jobs,
		Docs:            docs,
		Texts:           texts,
		PII:             piiRepo,
		Classifications: classifications,
		Structured:      structured,
		Findings:        findings,
		Chunks:          chunks,

		Blobs:      storage,
		Extractor:  extractor.New(),
		Detector:   detector,
		Semantic:   ollama.NewSemanticDetector(ollamaClient),
		Classifier: ollama.NewClassifier(ollamaClient),
		Generator:  ollama.NewFindingsGenerator(ollamaClient),
		Vision:     vision,
		Chunker:    chunking.NewSplitter(cfg.ChunkMinChars),
		Audit:      queue,

		Logger:   logger,
		Observer: workerMetrics.Recorder(service),
		WorkerID: workerID,
		Limits: usecase.Limits{
			ClassificationChars:  cfg.ClassificationSampleChars,
			AnalysisChars:        cfg.FindingsSampleChars,
			PIISampleChars:       cfg.PIISampleChars,
			PIISamplePages:       cfg.PIISamplePages,
			SemanticPIIMinConf:   cfg.SemanticPIIMinConfidence,
			DuplicateInvoiceConf: 0.95,
		},
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		Queue:   queue,
		Metrics: workerMetrics,

		Pipeline:  pipeline,
		Enqueue:   usecase.NewEnqueueUseCase(jobs, docs, queue),
		Status:    usecase.NewStatusUseCase(jobs),
		Assistant: usecase.NewAssistantUseCase(chunks, findings, ollama.NewAnswerGenerator(ollamaClient)),

		Jobs: jobs,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
