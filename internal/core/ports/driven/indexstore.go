package driven

import (
	"context"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/index/dense"
	"github.com/custodia-labs/finqa-cli/internal/index/sparse"
)

// IndexStore persists per-report retrieval state: one chunk-set file,
// one dense index file and one sparse index file per report, all
// keyed by the report's sha1 content hash.
type IndexStore interface {
	// SaveChunkSet writes the report's chunked form (pages + chunks).
	SaveChunkSet(ctx context.Context, cs domain.ChunkSet) error

	// LoadChunkSet reads the report's chunked form.
	// Returns domain.ErrNotFound when the report was never ingested.
	LoadChunkSet(ctx context.Context, sha1 string) (*domain.ChunkSet, error)

	// SaveDense writes the report's dense index.
	SaveDense(ctx context.Context, sha1 string, idx *dense.Index) error

	// LoadDense reads the report's dense index.
	LoadDense(ctx context.Context, sha1 string) (*dense.Index, error)

	// SaveSparse writes the report's sparse index.
	SaveSparse(ctx context.Context, sha1 string, idx *sparse.Index) error

	// LoadSparse reads the report's sparse index.
	LoadSparse(ctx context.Context, sha1 string) (*sparse.Index, error)
}
