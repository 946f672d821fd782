package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// Ensure QuestionProcessor implements the interface.
var _ driving.QuestionService = (*QuestionProcessor)(nil)

// ProcessorConfig is the run configuration for question answering.
// It is an explicit value passed in at construction; services never
// read ambient environment state.
type ProcessorConfig struct {
	// TopN is the fused candidate list size (default 10).
	TopN int

	// Dense and Sparse select the retrieval sources.
	Dense  bool
	Sparse bool

	// DenseWeight is the fusion blend weight (default 0.5).
	DenseWeight float64

	// Rerank enables LLM reranking of the fused head.
	Rerank bool

	// RerankSampleSize caps the rerank sample (default 30).
	RerankSampleSize int

	// ParentRetrieval expands chunks to page context before synthesis.
	ParentRetrieval bool

	// PageWindow is the parent expansion window in pages (default 1).
	PageWindow int

	// FullContext bypasses retrieval and hands the model every chunk
	// of the target reports in page order.
	FullContext bool

	// ParallelRequests is the batch worker count (default 1).
	ParallelRequests int

	// OutputDir is where batch answer files are written.
	OutputDir string

	// PipelineDetails is a free-form run description recorded in the
	// answers file.
	PipelineDetails string
}

// QuestionProcessor answers questions over the ingested corpus.
type QuestionProcessor struct {
	retriever *Retriever
	reranker  *Reranker
	synth     *Synthesizer
	catalog   driven.ReportCatalog
	cfg       ProcessorConfig
}

// NewQuestionProcessor creates the question service. The reranker is
// optional and only used when cfg.Rerank is set.
func NewQuestionProcessor(
	retriever *Retriever,
	reranker *Reranker,
	synth *Synthesizer,
	catalog driven.ReportCatalog,
	cfg ProcessorConfig,
) *QuestionProcessor {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.ParallelRequests < 1 {
		cfg.ParallelRequests = 1
	}
	if cfg.PageWindow < 1 {
		cfg.PageWindow = 1
	}
	return &QuestionProcessor{
		retriever: retriever,
		reranker:  reranker,
		synth:     synth,
		catalog:   catalog,
		cfg:       cfg,
	}
}

// AnswerQuestion runs the full pipeline for one question.
func (p *QuestionProcessor) AnswerQuestion(ctx context.Context, q domain.Question) (*domain.AnswerRecord, error) {
	if q.Text == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	kind, err := domain.ParseAnswerKind(string(q.Kind))
	if err != nil {
		return nil, err
	}
	// Keep the canonical kind so aliases reach the typed coercion.
	q.Kind = kind

	targets, err := p.resolveTargets(ctx, q)
	if err != nil {
		return nil, err
	}
	logger.Debug("Question targets %d reports", len(targets))

	candidates, err := p.selectCandidates(ctx, q, targets)
	if err != nil {
		return nil, err
	}

	var blocks []domain.ContextBlock
	if p.cfg.ParentRetrieval {
		blocks, err = ExpandParents(ctx, p.retriever, candidates, p.cfg.PageWindow)
	} else {
		blocks, err = ChunkBlocks(ctx, p.retriever, candidates)
	}
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	return p.synth.Synthesize(ctx, q, blocks)
}

// selectCandidates picks the context candidates for a question,
// either by hybrid retrieval or, in full-context mode, by taking the
// documents whole.
func (p *QuestionProcessor) selectCandidates(
	ctx context.Context, q domain.Question, targets []string,
) ([]domain.Candidate, error) {
	if p.cfg.FullContext {
		return p.retriever.FullContext(ctx, targets)
	}

	candidates, err := p.retriever.Retrieve(ctx, q.Text, targets, domain.RetrievalOptions{
		TopN:        p.cfg.TopN,
		Dense:       p.cfg.Dense,
		Sparse:      p.cfg.Sparse,
		DenseWeight: p.cfg.DenseWeight,
	})
	if err != nil {
		return nil, err
	}

	if p.cfg.Rerank && p.reranker != nil {
		candidates = p.reranker.Rerank(ctx, q.Text, candidates)
	}
	return candidates, nil
}

// resolveTargets maps the question's company scope to report ids.
func (p *QuestionProcessor) resolveTargets(ctx context.Context, q domain.Question) ([]string, error) {
	if len(q.Companies) == 0 {
		return nil, fmt.Errorf("%w: question names no companies", domain.ErrInvalidInput)
	}

	var targets []string
	for _, company := range q.Companies {
		metas, err := p.catalog.ResolveCompany(ctx, company)
		if err != nil {
			return nil, fmt.Errorf("resolve company %q: %w", company, err)
		}
		for _, meta := range metas {
			targets = append(targets, meta.SHA1)
		}
	}
	return targets, nil
}

// answersFile is the JSON layout of a batch output file.
type answersFile struct {
	RunID           string         `json:"run_id"`
	CreatedAt       time.Time      `json:"created_at"`
	PipelineDetails string         `json:"pipeline_details,omitempty"`
	Answers         []answerOutput `json:"answers"`
}

// answerOutput is one per-question entry in the answers file.
type answerOutput struct {
	*domain.AnswerRecord
	Error string `json:"error,omitempty"`
}

// ProcessQuestions answers the batch with the configured number of
// parallel workers. Each question's pipeline is fully independent;
// a failed question is recorded in its outcome and in the answers
// file, never raised.
func (p *QuestionProcessor) ProcessQuestions(
	ctx context.Context, questions []domain.Question,
) (*driving.BatchSummary, error) {
	logger.Section("Batch Question Processing")
	logger.Info("Processing %d questions (%d parallel)", len(questions), p.cfg.ParallelRequests)

	outcomes := make([]driving.QuestionOutcome, len(questions))
	sem := make(chan struct{}, p.cfg.ParallelRequests)
	var wg sync.WaitGroup

	for i := range questions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			record, err := p.AnswerQuestion(ctx, questions[i])
			outcomes[i] = driving.QuestionOutcome{Record: record, Err: err}
			if err != nil {
				logger.Warn("Question %d failed: %v", i+1, err)
			}
		}(i)
	}
	wg.Wait()

	summary := &driving.BatchSummary{
		RunID:    uuid.New().String(),
		Outcomes: outcomes,
	}

	path, err := p.writeAnswers(summary, questions)
	if err != nil {
		return nil, err
	}
	summary.OutputPath = path
	logger.Info("Answers written to %s", path)

	return summary, nil
}

// writeAnswers persists the batch results to a collision-avoiding
// answers file.
func (p *QuestionProcessor) writeAnswers(summary *driving.BatchSummary, questions []domain.Question) (string, error) {
	out := answersFile{
		RunID:           summary.RunID,
		CreatedAt:       time.Now().UTC(),
		PipelineDetails: p.cfg.PipelineDetails,
		Answers:         make([]answerOutput, len(summary.Outcomes)),
	}
	for i, o := range summary.Outcomes {
		entry := answerOutput{AnswerRecord: o.Record}
		if o.Err != nil {
			entry.AnswerRecord = &domain.AnswerRecord{Question: questions[i].Text, Kind: questions[i].Kind}
			entry.Error = o.Err.Error()
		}
		out.Answers[i] = entry
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}

	dir := p.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := NextAvailablePath(filepath.Join(dir, "answers.json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write answers: %w", err)
	}
	return path, nil
}

// NextAvailablePath returns base if it does not exist yet, otherwise
// the first free numeric-suffix variant (answers_01.json,
// answers_02.json, ...). An existing answers file is never
// overwritten.
func NextAvailablePath(base string) string {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base
	}

	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%02d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
