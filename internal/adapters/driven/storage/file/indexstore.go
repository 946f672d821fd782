// Package file persists per-report retrieval state on disk: one
// chunk-set file, one dense index file and one sparse index file per
// report, all named by the report's sha1 content hash.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/index/dense"
	"github.com/custodia-labs/finqa-cli/internal/index/sparse"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// maxNameLen bounds the sanitized filename token.
const maxNameLen = 30

var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

// IndexStore stores indexes and chunk sets under a root directory:
//
//	<root>/chunks/<token>.chunks.json
//	<root>/dense/<token>.dense
//	<root>/sparse/<token>.sparse
type IndexStore struct {
	root string
}

// NewIndexStore creates the store, ensuring its directories exist.
func NewIndexStore(root string) (*IndexStore, error) {
	for _, sub := range []string{"chunks", "dense", "sparse"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return &IndexStore{root: root}, nil
}

// SanitizeName converts a report identifier into a bounded-length,
// filesystem-safe token. Every character outside [A-Za-z0-9_-.] maps
// to an underscore and the result is capped at 30 characters.
func SanitizeName(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	s = strings.Trim(s, "_")
	if s == "" {
		return "report"
	}
	return s
}

// SaveChunkSet writes the report's chunked form as JSON.
func (s *IndexStore) SaveChunkSet(_ context.Context, cs domain.ChunkSet) error {
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunk set: %w", err)
	}
	path := s.path("chunks", cs.ReportSHA1, ".chunks.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write chunk set: %w", err)
	}
	return nil
}

// LoadChunkSet reads the report's chunked form.
func (s *IndexStore) LoadChunkSet(_ context.Context, sha1 string) (*domain.ChunkSet, error) {
	data, err := os.ReadFile(s.path("chunks", sha1, ".chunks.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("chunk set for %s: %w", sha1, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read chunk set: %w", err)
	}
	var cs domain.ChunkSet
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("unmarshal chunk set: %w", err)
	}
	return &cs, nil
}

// SaveDense writes the report's dense index.
func (s *IndexStore) SaveDense(_ context.Context, sha1 string, idx *dense.Index) error {
	return s.saveFile(s.path("dense", sha1, ".dense"), idx.Save)
}

// LoadDense reads the report's dense index.
func (s *IndexStore) LoadDense(_ context.Context, sha1 string) (*dense.Index, error) {
	f, err := os.Open(s.path("dense", sha1, ".dense"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dense index for %s: %w", sha1, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open dense index: %w", err)
	}
	defer f.Close()
	return dense.Load(f)
}

// SaveSparse writes the report's sparse index.
func (s *IndexStore) SaveSparse(_ context.Context, sha1 string, idx *sparse.Index) error {
	return s.saveFile(s.path("sparse", sha1, ".sparse"), idx.Save)
}

// LoadSparse reads the report's sparse index.
func (s *IndexStore) LoadSparse(_ context.Context, sha1 string) (*sparse.Index, error) {
	f, err := os.Open(s.path("sparse", sha1, ".sparse"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("sparse index for %s: %w", sha1, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open sparse index: %w", err)
	}
	defer f.Close()
	return sparse.Load(f)
}

// saveFile writes via a temp file and rename so a crash mid-write
// never leaves a truncated index behind.
func (s *IndexStore) saveFile(path string, save func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// path builds the on-disk location for a report's file.
func (s *IndexStore) path(sub, sha1, ext string) string {
	return filepath.Join(s.root, sub, SanitizeName(sha1)+ext)
}
