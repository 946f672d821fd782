package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/index/dense"
	"github.com/custodia-labs/finqa-cli/internal/index/sparse"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// DefaultTopN is the default size of the fused candidate list.
const DefaultTopN = 10

// candidateKey identifies a chunk across source lists during fusion.
type candidateKey struct {
	sha1    string
	ordinal int
}

// Retriever performs hybrid retrieval over per-report indexes.
// Loaded indexes are cached; they are immutable after construction
// and safely shared across concurrent queries.
type Retriever struct {
	store    driven.IndexStore
	embedder driven.EmbeddingService

	mu          sync.RWMutex
	denseCache  map[string]*dense.Index
	sparseCache map[string]*sparse.Index
	chunkCache  map[string]*domain.ChunkSet
}

// NewRetriever creates a retriever. The embedder is optional: when
// nil, dense retrieval is unavailable and requests for it degrade to
// sparse-only with a warning.
func NewRetriever(store driven.IndexStore, embedder driven.EmbeddingService) *Retriever {
	return &Retriever{
		store:       store,
		embedder:    embedder,
		denseCache:  make(map[string]*dense.Index),
		sparseCache: make(map[string]*sparse.Index),
		chunkCache:  make(map[string]*domain.ChunkSet),
	}
}

// Retrieve queries the indexes of every target report and merges the
// per-report hit lists into one ranked candidate list of at most
// opts.TopN entries. A target with a missing or empty index
// contributes nothing and never errors the batch.
func (r *Retriever) Retrieve(
	ctx context.Context, question string, targets []string, opts domain.RetrievalOptions,
) ([]domain.Candidate, error) {
	logger.Section("Retrieval")
	logger.Debug("Question: %q, targets: %v", question, targets)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no target reports", domain.ErrInvalidInput)
	}

	opts = r.effectiveOptions(opts)
	logger.Debug("Options: topN=%d dense=%t sparse=%t weight=%.2f",
		opts.TopN, opts.Dense, opts.Sparse, opts.DenseWeight)

	var denseHits, sparseHits []domain.Candidate

	if opts.Dense {
		hits, err := r.denseRetrieve(ctx, question, targets, opts.TopN)
		if err != nil {
			return nil, fmt.Errorf("dense retrieval: %w", err)
		}
		denseHits = hits
	}
	if opts.Sparse {
		sparseHits = r.sparseRetrieve(ctx, question, targets, opts.TopN)
	}

	merged := fuse(denseHits, sparseHits, opts)
	logger.Debug("Fused %d dense + %d sparse into %d candidates",
		len(denseHits), len(sparseHits), len(merged))

	if len(merged) > opts.TopN {
		merged = merged[:opts.TopN]
	}
	return merged, nil
}

// ChunkSet returns the cached chunked form of a report, loading it on
// first use.
func (r *Retriever) ChunkSet(ctx context.Context, sha1 string) (*domain.ChunkSet, error) {
	r.mu.RLock()
	cs, ok := r.chunkCache[sha1]
	r.mu.RUnlock()
	if ok {
		return cs, nil
	}

	cs, err := r.store.LoadChunkSet(ctx, sha1)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.chunkCache[sha1] = cs
	r.mu.Unlock()
	return cs, nil
}

// FullContext bypasses retrieval: it returns every chunk of the
// target reports as candidates ordered by page.
func (r *Retriever) FullContext(ctx context.Context, targets []string) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	for _, sha1 := range targets {
		cs, err := r.ChunkSet(ctx, sha1)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Report %s not ingested, skipping", sha1)
				continue
			}
			return nil, err
		}
		for _, c := range cs.Chunks {
			candidates = append(candidates, domain.Candidate{
				ReportSHA1: c.ReportSHA1,
				Ordinal:    c.Ordinal,
				Source:     domain.CandidateSourceFused,
			})
		}
	}
	return candidates, nil
}

// effectiveOptions applies defaults and degrades dense retrieval when
// no embedding service is available.
func (r *Retriever) effectiveOptions(opts domain.RetrievalOptions) domain.RetrievalOptions {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if !opts.Dense && !opts.Sparse {
		opts.Dense = true
	}
	if opts.Dense && r.embedder == nil {
		logger.Warn("Dense retrieval requested but no embedding service configured, using sparse only")
		opts.Dense = false
		opts.Sparse = true
	}
	if opts.DenseWeight <= 0 || opts.DenseWeight >= 1 {
		opts.DenseWeight = 0.5
	}
	return opts
}

// denseRetrieve embeds the question once and queries every target
// report's dense index.
func (r *Retriever) denseRetrieve(
	ctx context.Context, question string, targets []string, k int,
) ([]domain.Candidate, error) {
	query, err := r.embedder.Embed(ctx, TruncateForEmbedding(question))
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	var candidates []domain.Candidate
	for _, sha1 := range targets {
		idx, err := r.denseIndex(ctx, sha1)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("No dense index for report %s, skipping", sha1)
				continue
			}
			return nil, err
		}

		hits, err := idx.Search(query, k)
		if err != nil {
			return nil, fmt.Errorf("search report %s: %w", sha1, err)
		}
		for _, h := range hits {
			candidates = append(candidates, domain.Candidate{
				ReportSHA1: sha1,
				Ordinal:    h.Ordinal,
				Score:      h.Score,
				Source:     domain.CandidateSourceDense,
			})
		}
	}
	return candidates, nil
}

// sparseRetrieve tokenizes the question and queries every target
// report's sparse index. Sparse retrieval never fails the batch: a
// report with a broken or missing index is logged and skipped.
func (r *Retriever) sparseRetrieve(
	ctx context.Context, question string, targets []string, k int,
) []domain.Candidate {
	tokens := sparse.Tokenize(question)

	var candidates []domain.Candidate
	for _, sha1 := range targets {
		idx, err := r.sparseIndex(ctx, sha1)
		if err != nil {
			logger.Warn("No sparse index for report %s, skipping: %v", sha1, err)
			continue
		}
		for _, h := range idx.Search(tokens, k) {
			candidates = append(candidates, domain.Candidate{
				ReportSHA1: sha1,
				Ordinal:    h.Ordinal,
				Score:      h.Score,
				Source:     domain.CandidateSourceSparse,
			})
		}
	}
	return candidates
}

// fuse merges the dense and sparse candidate lists. Scores are
// min-max normalised per source within the batch so neither source
// dominates purely from score scale, then weighted by the blend
// weight. A chunk found by both sources is kept once with its
// higher-confidence score and tagged fused.
func fuse(denseHits, sparseHits []domain.Candidate, opts domain.RetrievalOptions) []domain.Candidate {
	both := len(denseHits) > 0 && len(sparseHits) > 0

	if both {
		normalize(denseHits, opts.DenseWeight)
		normalize(sparseHits, 1-opts.DenseWeight)
	}

	seen := make(map[candidateKey]int)
	merged := make([]domain.Candidate, 0, len(denseHits)+len(sparseHits))

	for _, lists := range [][]domain.Candidate{denseHits, sparseHits} {
		for _, c := range lists {
			key := candidateKey{sha1: c.ReportSHA1, ordinal: c.Ordinal}
			if i, ok := seen[key]; ok {
				if c.Score > merged[i].Score {
					merged[i].Score = c.Score
				}
				merged[i].Source = domain.CandidateSourceFused
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].ReportSHA1 != merged[j].ReportSHA1 {
			return merged[i].ReportSHA1 < merged[j].ReportSHA1
		}
		return merged[i].Ordinal < merged[j].Ordinal
	})

	return merged
}

// normalize rescales scores to [0,1] within the list and applies the
// blend weight in place.
func normalize(candidates []domain.Candidate, weight float64) {
	if len(candidates) == 0 {
		return
	}
	lo, hi := candidates[0].Score, candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score < lo {
			lo = c.Score
		}
		if c.Score > hi {
			hi = c.Score
		}
	}
	for i := range candidates {
		if hi > lo {
			candidates[i].Score = (candidates[i].Score - lo) / (hi - lo)
		} else {
			candidates[i].Score = 1
		}
		candidates[i].Score *= weight
	}
}

// denseIndex returns the cached dense index for a report.
func (r *Retriever) denseIndex(ctx context.Context, sha1 string) (*dense.Index, error) {
	r.mu.RLock()
	idx, ok := r.denseCache[sha1]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	idx, err := r.store.LoadDense(ctx, sha1)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.denseCache[sha1] = idx
	r.mu.Unlock()
	return idx, nil
}

// sparseIndex returns the cached sparse index for a report.
func (r *Retriever) sparseIndex(ctx context.Context, sha1 string) (*sparse.Index, error) {
	r.mu.RLock()
	idx, ok := r.sparseCache[sha1]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	idx, err := r.store.LoadSparse(ctx, sha1)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sparseCache[sha1] = idx
	r.mu.Unlock()
	return idx, nil
}
