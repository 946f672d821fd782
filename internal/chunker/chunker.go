// Package chunker splits a report's page text into overlapping
// fixed-size chunks, the unit of indexing and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// DefaultChunkSize is the default number of characters per chunk,
// roughly 300 tokens of report prose.
const DefaultChunkSize = 1200

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks of the same page.
const DefaultChunkOverlap = 200

// Splitter cuts page text into chunks. Splitting is purely
// positional: no semantic unit is guaranteed unbroken, recall is
// preserved through the overlap.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split cuts every page of the report into chunks. Each chunk records
// its originating page for citation and carries the report's company
// name for quick filtering. A report with no extractable text yields
// an empty sequence, not an error.
func (s *Splitter) Split(report domain.Report) []domain.Chunk {
	var chunks []domain.Chunk
	ordinal := 0

	for _, page := range report.Pages {
		// Sizes are in characters, not bytes, so multi-byte text is
		// never cut mid-rune.
		text := []rune(strings.TrimSpace(page.Text))
		if len(text) == 0 {
			continue
		}

		sequence := 0
		start := 0
		for start < len(text) {
			end := start + s.chunkSize
			if end > len(text) {
				end = len(text)
			}

			chunkText := string(text[start:end])
			chunks = append(chunks, domain.Chunk{
				ReportSHA1:  report.SHA1,
				Page:        page.Number,
				Sequence:    sequence,
				Ordinal:     ordinal,
				Text:        chunkText,
				TokenCount:  estimateTokens(chunkText),
				CompanyName: report.CompanyName,
			})
			sequence++
			ordinal++

			start += s.chunkSize - s.overlap
		}
	}

	if len(chunks) == 0 {
		logger.Warn("Report %s (%s) has no extractable text, skipping", report.SHA1, report.FileName)
	}

	return chunks
}

// estimateTokens approximates the token length of a text.
// Four characters per token is a close enough heuristic for the
// mixed prose and figures of annual reports.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
