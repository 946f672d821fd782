package driven

import (
	"context"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
)

// ReportCatalog stores report metadata and resolves a question's
// company scope to target report ids.
type ReportCatalog interface {
	// Put inserts or updates a catalog entry.
	Put(ctx context.Context, meta domain.ReportMeta) error

	// Get returns the entry for a report sha1.
	// Returns domain.ErrNotFound when the report is unknown.
	Get(ctx context.Context, sha1 string) (*domain.ReportMeta, error)

	// ResolveCompany returns all reports for the named company
	// (case-insensitive exact match).
	// Returns domain.ErrNotFound when the company is unknown.
	ResolveCompany(ctx context.Context, company string) ([]domain.ReportMeta, error)

	// List returns all catalog entries.
	List(ctx context.Context) ([]domain.ReportMeta, error)

	// Close releases resources.
	Close() error
}
