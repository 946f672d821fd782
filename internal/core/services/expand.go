package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// pageKey deduplicates context blocks per report page.
type pageKey struct {
	sha1 string
	page int
}

// ChunkBlocks converts candidates into chunk-level context blocks.
func ChunkBlocks(ctx context.Context, chunks ChunkSource, candidates []domain.Candidate) ([]domain.ContextBlock, error) {
	blocks := make([]domain.ContextBlock, 0, len(candidates))
	for _, c := range candidates {
		cs, err := chunks.ChunkSet(ctx, c.ReportSHA1)
		if err != nil {
			return nil, fmt.Errorf("load chunks for %s: %w", c.ReportSHA1, err)
		}
		if c.Ordinal < 0 || c.Ordinal >= len(cs.Chunks) {
			return nil, fmt.Errorf("%w: ordinal %d out of range for report %s",
				domain.ErrInvalidInput, c.Ordinal, c.ReportSHA1)
		}
		chunk := cs.Chunks[c.Ordinal]
		blocks = append(blocks, domain.ContextBlock{
			ReportSHA1:  c.ReportSHA1,
			CompanyName: cs.CompanyName,
			Page:        chunk.Page,
			Text:        chunk.Text,
			Score:       c.Score,
		})
	}
	return blocks, nil
}

// ExpandParents replaces each chunk-level candidate with the full
// text of its owning page (widened to pageWindow pages centred on
// it). Chunk boundaries can sever an answer-bearing sentence;
// expanding trades prompt size for completeness.
//
// Two candidates expanding to the same page yield exactly one block,
// keeping the earlier (higher-ranked) candidate's position and score.
func ExpandParents(
	ctx context.Context, chunks ChunkSource, candidates []domain.Candidate, pageWindow int,
) ([]domain.ContextBlock, error) {
	if pageWindow < 1 {
		pageWindow = 1
	}

	seen := make(map[pageKey]bool)
	var blocks []domain.ContextBlock

	for _, c := range candidates {
		cs, err := chunks.ChunkSet(ctx, c.ReportSHA1)
		if err != nil {
			return nil, fmt.Errorf("load chunks for %s: %w", c.ReportSHA1, err)
		}
		if c.Ordinal < 0 || c.Ordinal >= len(cs.Chunks) {
			return nil, fmt.Errorf("%w: ordinal %d out of range for report %s",
				domain.ErrInvalidInput, c.Ordinal, c.ReportSHA1)
		}

		page := cs.Chunks[c.Ordinal].Page
		key := pageKey{sha1: c.ReportSHA1, page: page}
		if seen[key] {
			continue
		}
		seen[key] = true

		blocks = append(blocks, domain.ContextBlock{
			ReportSHA1:  c.ReportSHA1,
			CompanyName: cs.CompanyName,
			Page:        page,
			Text:        pageWindowText(cs, page, pageWindow),
			Score:       c.Score,
		})
	}

	logger.Debug("Expanded %d candidates into %d page blocks", len(candidates), len(blocks))
	return blocks, nil
}

// pageWindowText joins the text of the pages in a window centred on
// the owning page. Window 1 is just the page itself.
func pageWindowText(cs *domain.ChunkSet, page, window int) string {
	half := (window - 1) / 2

	var parts []string
	for n := page - half; n <= page+half; n++ {
		if text, ok := cs.PageText(n); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
