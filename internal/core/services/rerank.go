package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// DefaultRerankSampleSize caps how many candidates are sent to the
// model, bounding rerank cost per question.
const DefaultRerankSampleSize = 30

// ChunkSource provides the chunked form of ingested reports.
// Implemented by Retriever.
type ChunkSource interface {
	ChunkSet(ctx context.Context, sha1 string) (*domain.ChunkSet, error)
}

// Reranker reorders the head of a fused candidate list using a
// language model's relative-relevance judgment.
//
// Reranking fails soft: any model failure or malformed ranking leaves
// the fused order untouched. It never drops or fabricates a candidate.
type Reranker struct {
	llm        driven.LLMService
	chunks     ChunkSource
	sampleSize int
}

// NewReranker creates a reranker. sampleSize values below 1 use the
// default cap.
func NewReranker(llm driven.LLMService, chunks ChunkSource, sampleSize int) *Reranker {
	if sampleSize < 1 {
		sampleSize = DefaultRerankSampleSize
	}
	return &Reranker{llm: llm, chunks: chunks, sampleSize: sampleSize}
}

// rerankResponse is the ranking shape requested from the model.
type rerankResponse struct {
	Ranking []int `json:"ranking"`
}

// Rerank reorders at most sampleSize top candidates by model-assigned
// relevance. Candidates outside the sample retain their fused order
// after the reranked head.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []domain.Candidate) []domain.Candidate {
	logger.Section("Reranking")

	if len(candidates) < 2 {
		return candidates
	}

	sample := candidates
	if len(sample) > r.sampleSize {
		sample = sample[:r.sampleSize]
	}
	tail := candidates[len(sample):]

	prompt, err := r.buildPrompt(ctx, question, sample)
	if err != nil {
		logger.Warn("Rerank prompt build failed, keeping fused order: %v", err)
		return candidates
	}

	raw, err := r.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: rerankSystemPrompt},
		{Role: "user", Content: prompt},
	}, driven.ChatOptions{Temperature: 0, JSONObject: true})
	if err != nil {
		logger.Warn("Rerank call failed, keeping fused order: %v", err)
		return candidates
	}

	ranking, err := parseRanking(raw, len(sample))
	if err != nil {
		logger.Warn("Rerank response invalid, keeping fused order: %v", err)
		return candidates
	}

	reranked := make([]domain.Candidate, 0, len(candidates))
	for _, id := range ranking {
		c := sample[id-1]
		c.Source = domain.CandidateSourceReranked
		reranked = append(reranked, c)
	}
	reranked = append(reranked, tail...)

	logger.Debug("Reranked %d of %d candidates", len(sample), len(candidates))
	return reranked
}

const rerankSystemPrompt = `You rank passages from company annual reports by their relevance to a question.
Respond with a JSON object of the form {"ranking": [...]} containing every passage id exactly once, ordered from most to least relevant.`

// buildPrompt numbers the sampled candidates 1..n with their text.
func (r *Reranker) buildPrompt(ctx context.Context, question string, sample []domain.Candidate) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", question)

	for i, c := range sample {
		cs, err := r.chunks.ChunkSet(ctx, c.ReportSHA1)
		if err != nil {
			return "", fmt.Errorf("load chunks for %s: %w", c.ReportSHA1, err)
		}
		if c.Ordinal < 0 || c.Ordinal >= len(cs.Chunks) {
			return "", fmt.Errorf("candidate ordinal %d out of range for report %s", c.Ordinal, c.ReportSHA1)
		}
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, cs.Chunks[c.Ordinal].Text)
	}
	return b.String(), nil
}

// parseRanking validates that the model returned a permutation of the
// sampled ids 1..n: complete, no duplicates, no foreign ids.
func parseRanking(raw string, n int) ([]int, error) {
	var resp rerankResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parse ranking: %w", err)
	}
	if len(resp.Ranking) != n {
		return nil, fmt.Errorf("ranking has %d ids, expected %d", len(resp.Ranking), n)
	}

	seen := make(map[int]bool, n)
	for _, id := range resp.Ranking {
		if id < 1 || id > n {
			return nil, fmt.Errorf("unknown candidate id %d", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate candidate id %d", id)
		}
		seen[id] = true
	}
	return resp.Ranking, nil
}
