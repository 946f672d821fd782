package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// Synthesizer builds one structured-generation request per question
// and turns the completion into a validated AnswerRecord.
type Synthesizer struct {
	llm       driven.LLMService
	maxTokens int
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(llm driven.LLMService) *Synthesizer {
	return &Synthesizer{llm: llm, maxTokens: 2048}
}

// Synthesize asks the model to answer the question from the given
// context blocks. The network call can fail; the completion parse
// cannot - malformed output degrades through the parse chain instead.
func (s *Synthesizer) Synthesize(
	ctx context.Context, q domain.Question, blocks []domain.ContextBlock,
) (*domain.AnswerRecord, error) {
	logger.Section("Answer Synthesis")

	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	raw, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: synthesisSystemPrompt(q.Kind)},
		{Role: "user", Content: synthesisUserPrompt(q, blocks)},
	}, driven.ChatOptions{
		MaxTokens:   s.maxTokens,
		Temperature: 0,
		JSONObject:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	record := ParseCompletion(raw, q.Kind)
	record.Question = q.Text
	record.Sources = blockSources(blocks)
	logger.Debug("Answer parsed at tier %s", record.Tier)

	return record, nil
}

// synthesisSystemPrompt states the required output schema and the
// typing rule for the requested answer kind.
func synthesisSystemPrompt(kind domain.AnswerKind) string {
	var typing string
	switch kind {
	case domain.AnswerKindNumber:
		typing = `"final_answer" must be a plain number without units, currency symbols or thousands separators. Use "N/A" only if the reports do not contain the figure.`
	case domain.AnswerKindBoolean:
		typing = `"final_answer" must be the JSON boolean true or false.`
	case domain.AnswerKindNames:
		typing = `"final_answer" must be a JSON array of person or entity names, most relevant first.`
	default:
		typing = `"final_answer" must be a concise string answering the question.`
	}

	return `You answer questions about company annual reports using only the provided context.
Respond with a single JSON object with exactly these fields:
  "step_by_step_analysis": detailed reasoning grounded in the context,
  "reasoning_summary": one or two sentences summarising the reasoning,
  "relevant_pages": array of page numbers actually used,
  "final_answer": the answer.
` + typing
}

// synthesisUserPrompt lays out the question and the selected context.
func synthesisUserPrompt(q domain.Question, blocks []domain.ContextBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nContext:\n", q.Text)
	for _, block := range blocks {
		fmt.Fprintf(&b, "\n--- %s, page %d ---\n%s\n", block.CompanyName, block.Page, block.Text)
	}
	return b.String()
}

// blockSources lists the context pages in relevance order, one entry
// per distinct report page.
func blockSources(blocks []domain.ContextBlock) []domain.SourceRef {
	seen := make(map[pageKey]bool, len(blocks))
	refs := make([]domain.SourceRef, 0, len(blocks))
	for _, block := range blocks {
		key := pageKey{sha1: block.ReportSHA1, page: block.Page}
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, domain.SourceRef{ReportSHA1: block.ReportSHA1, Page: block.Page})
	}
	return refs
}
