package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
	"github.com/mkorobkov/dealroom-pipeline/internal/core/ports"
)

type AssistantUseCase struct {
	chunks    ports.ChunkRepository
	findings  ports.FindingRepository
	generator ports.AnswerGenerator

	chunkLimit   int
	findingLimit int
}

func NewAssistantUseCase(
	chunks ports.ChunkRepository,
	findings ports.FindingRepository,
	generator ports.AnswerGenerator,
) *AssistantUseCase {
	return &AssistantUseCase{
		chunks:       chunks,
		findings:     findings,
		generator:    generator,
		chunkLimit:   20,
		findingLimit: 10,
	}
}

// Answer builds context from a project's indexed chunks and findings and
// asks the answer generator for a grounded reply.
func (uc *AssistantUseCase) Answer(ctx context.Context, projectID, question string) (*domain.Answer, error) {
	chunks, err := uc.chunks.ListByProject(ctx, projectID, uc.chunkLimit)
	if err != nil {
		return nil, fmt.Errorf("list project chunks: %w", err)
	}
	findings, err := uc.findings.ListByProject(ctx, projectID, uc.findingLimit)
	if err != nil {
		return nil, fmt.Errorf("list project findings: %w", err)
	}

	context, sources := buildAnswerContext(chunks, findings)

	text, err := uc.generator.GenerateAnswer(ctx, question, context)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInference, "generate answer", err)
	}

	return &domain.Answer{
		Text:    text,
		Sources: sources,
	}, nil
}

func buildAnswerContext(chunks []domain.Chunk, findings []domain.Finding) (string, []domain.AnswerSource) {
	var builder strings.Builder
	sources := make([]domain.AnswerSource, 0, len(chunks)+len(findings))

	for _, chunk := range chunks {
		fmt.Fprintf(&builder, "[doc %s p.%d]\n%s\n\n", chunk.DocID, chunk.Page, chunk.Text)
		sources = append(sources, domain.AnswerSource{
			DocID: chunk.DocID,
			Kind:  "chunk",
			Page:  chunk.Page,
		})
	}
	for _, finding := range findings {
		fmt.Fprintf(&builder, "Finding [%s/%s, %s]: %s\n",
			finding.Category, finding.Type, finding.Severity, finding.Description)
		sources = append(sources, domain.AnswerSource{
			DocID: finding.DocID,
			Kind:  "finding",
		})
	}
	return builder.String(), sources
}
