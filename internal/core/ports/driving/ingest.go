package driving

import (
	"context"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
)

// IngestResult reports the outcome of indexing one report.
// A failed report carries its error here; it never aborts siblings.
type IngestResult struct {
	// ReportSHA1 identifies the report.
	ReportSHA1 string

	// Chunks is the number of chunks produced.
	Chunks int

	// Err is the per-report failure, nil on success.
	Err error
}

// IngestService chunks and indexes parsed reports.
type IngestService interface {
	// IngestReports chunks each report, builds its dense and sparse
	// indexes and persists them. Reports are processed with bounded
	// parallelism; one report's failure does not block the others.
	// The returned slice has one entry per input report, in order.
	IngestReports(ctx context.Context, reports []domain.Report) []IngestResult
}
