package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/finqa-cli/internal/chunker"
	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/finqa-cli/internal/index/dense"
	"github.com/custodia-labs/finqa-cli/internal/index/sparse"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// embedCharLimit caps chunk text sent for embedding. Longer text is
// truncated, a deliberate lossy trade to keep embedding cost bounded.
const embedCharLimit = 2048

// DefaultIngestParallelism bounds concurrent report builds.
const DefaultIngestParallelism = 4

// Ingestor chunks reports and builds their dense and sparse indexes.
type Ingestor struct {
	splitter    *chunker.Splitter
	embedder    driven.EmbeddingService
	store       driven.IndexStore
	catalog     driven.ReportCatalog
	parallelism int
}

// IngestorOption configures the ingestor.
type IngestorOption func(*Ingestor)

// WithParallelism bounds the number of reports indexed concurrently.
func WithParallelism(n int) IngestorOption {
	return func(s *Ingestor) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// NewIngestor creates an ingest service. The embedder is optional:
// when nil, dense index builds are skipped and only sparse indexes
// are produced.
func NewIngestor(
	splitter *chunker.Splitter,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
	catalog driven.ReportCatalog,
	opts ...IngestorOption,
) *Ingestor {
	s := &Ingestor{
		splitter:    splitter,
		embedder:    embedder,
		store:       store,
		catalog:     catalog,
		parallelism: DefaultIngestParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestReports indexes each report with bounded parallelism.
// A failed report is recorded in its result and never aborts or
// invalidates the builds of sibling reports.
func (s *Ingestor) IngestReports(ctx context.Context, reports []domain.Report) []driving.IngestResult {
	logger.Section("Report Ingestion")
	logger.Info("Ingesting %d reports (parallelism %d)", len(reports), s.parallelism)

	results := make([]driving.IngestResult, len(reports))
	sem := make(chan struct{}, s.parallelism)
	var wg sync.WaitGroup

	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = s.ingestOne(ctx, reports[i])
			if results[i].Err != nil {
				logger.Warn("Report %s failed: %v", reports[i].SHA1, results[i].Err)
			}
		}(i)
	}
	wg.Wait()

	return results
}

// ingestOne builds and persists everything for a single report.
func (s *Ingestor) ingestOne(ctx context.Context, report domain.Report) driving.IngestResult {
	result := driving.IngestResult{ReportSHA1: report.SHA1}

	if report.SHA1 == "" {
		result.Err = fmt.Errorf("%w: report has no content hash", domain.ErrInvalidInput)
		return result
	}

	chunks := s.splitter.Split(report)
	result.Chunks = len(chunks)
	logger.Debug("Report %s: %d chunks from %d pages", report.SHA1, len(chunks), len(report.Pages))

	if err := s.catalog.Put(ctx, report.Meta()); err != nil {
		result.Err = fmt.Errorf("catalog: %w", err)
		return result
	}

	cs := domain.ChunkSet{
		ReportSHA1:  report.SHA1,
		CompanyName: report.CompanyName,
		Pages:       report.Pages,
		Chunks:      chunks,
	}
	if err := s.store.SaveChunkSet(ctx, cs); err != nil {
		result.Err = fmt.Errorf("save chunk set: %w", err)
		return result
	}

	if err := s.buildSparse(ctx, report.SHA1, chunks); err != nil {
		result.Err = fmt.Errorf("sparse index: %w", err)
		return result
	}

	if s.embedder != nil {
		if err := s.buildDense(ctx, report.SHA1, chunks); err != nil {
			result.Err = fmt.Errorf("dense index: %w", err)
			return result
		}
	}

	return result
}

// buildSparse tokenizes the chunks and persists a BM25 index.
func (s *Ingestor) buildSparse(ctx context.Context, sha1 string, chunks []domain.Chunk) error {
	tokenLists := make([][]string, len(chunks))
	for i, c := range chunks {
		tokenLists[i] = sparse.Tokenize(c.Text)
	}
	return s.store.SaveSparse(ctx, sha1, sparse.Build(tokenLists))
}

// buildDense embeds the chunk texts and persists an inner-product
// index. A report with zero chunks still produces a valid empty index
// of the configured dimension.
func (s *Ingestor) buildDense(ctx context.Context, sha1 string, chunks []domain.Chunk) error {
	idx, err := dense.New(s.embedder.Dimensions())
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		logger.Warn("Report %s has no chunks, writing empty dense index", sha1)
		return s.store.SaveDense(ctx, sha1, idx)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = TruncateForEmbedding(c.Text)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if err := idx.Add(vectors); err != nil {
		return err
	}
	return s.store.SaveDense(ctx, sha1, idx)
}

// TruncateForEmbedding caps text at the embedding character limit.
// The limit counts runes, so multi-byte text is never cut mid-rune.
func TruncateForEmbedding(text string) string {
	if len(text) <= embedCharLimit {
		return text
	}
	runes := 0
	for i := range text {
		if runes == embedCharLimit {
			return text[:i]
		}
		runes++
	}
	return text
}
