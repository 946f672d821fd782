package driving

import (
	"context"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
)

// QuestionOutcome is the per-question result of a batch run.
type QuestionOutcome struct {
	// Record is the answer, nil when the question failed.
	Record *domain.AnswerRecord

	// Err is the per-question failure, nil on success.
	Err error
}

// BatchSummary describes a completed batch question run.
type BatchSummary struct {
	// RunID uniquely identifies the run.
	RunID string

	// OutputPath is the answers file that was written.
	OutputPath string

	// Outcomes has one entry per input question, in order.
	Outcomes []QuestionOutcome
}

// QuestionService answers questions over the ingested corpus.
type QuestionService interface {
	// AnswerQuestion runs the full pipeline for one question:
	// retrieve, optionally rerank, optionally expand, synthesize.
	// Errors surface directly to the caller.
	AnswerQuestion(ctx context.Context, q domain.Question) (*domain.AnswerRecord, error)

	// ProcessQuestions answers a batch of questions with a
	// configurable number of parallel workers and writes one answer
	// record per question to a collision-avoiding output file.
	// Per-question failures are recorded, not raised.
	ProcessQuestions(ctx context.Context, questions []domain.Question) (*BatchSummary, error)
}
