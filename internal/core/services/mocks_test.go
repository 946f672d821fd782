package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/index/dense"
	"github.com/custodia-labs/finqa-cli/internal/index/sparse"
)

// mockEmbedder is an in-memory EmbeddingService. Each text embeds to
// a fixed vector unless embedFn overrides it.
type mockEmbedder struct {
	mu      sync.Mutex
	dims    int
	embedFn func(text string) ([]float32, error)
	batches [][]string
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) embedOne(text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	v := make([]float32, m.dims)
	for i := 0; i < m.dims && i < len(text); i++ {
		v[i] = float32(text[i]) / 255
	}
	return v, nil
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return m.embedOne(text)
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, texts)
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.embedOne(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return "mock-embedder" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM is an LLMService returning canned completions.
type mockLLM struct {
	mu     sync.Mutex
	chatFn func(messages []driven.ChatMessage, opts driven.ChatOptions) (string, error)
	calls  [][]driven.ChatMessage
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	if m.chatFn != nil {
		return m.chatFn(messages, opts)
	}
	return "", fmt.Errorf("mockLLM: no chatFn configured")
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// memStore is an in-memory IndexStore.
type memStore struct {
	mu     sync.Mutex
	chunks map[string]*domain.ChunkSet
	dense  map[string]*dense.Index
	sparse map[string]*sparse.Index
}

var _ driven.IndexStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		chunks: make(map[string]*domain.ChunkSet),
		dense:  make(map[string]*dense.Index),
		sparse: make(map[string]*sparse.Index),
	}
}

func (s *memStore) SaveChunkSet(_ context.Context, cs domain.ChunkSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[cs.ReportSHA1] = &cs
	return nil
}

func (s *memStore) LoadChunkSet(_ context.Context, sha1 string) (*domain.ChunkSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.chunks[sha1]
	if !ok {
		return nil, fmt.Errorf("chunk set for %s: %w", sha1, domain.ErrNotFound)
	}
	return cs, nil
}

func (s *memStore) SaveDense(_ context.Context, sha1 string, idx *dense.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dense[sha1] = idx
	return nil
}

func (s *memStore) LoadDense(_ context.Context, sha1 string) (*dense.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.dense[sha1]
	if !ok {
		return nil, fmt.Errorf("dense index for %s: %w", sha1, domain.ErrNotFound)
	}
	return idx, nil
}

func (s *memStore) SaveSparse(_ context.Context, sha1 string, idx *sparse.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sparse[sha1] = idx
	return nil
}

func (s *memStore) LoadSparse(_ context.Context, sha1 string) (*sparse.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.sparse[sha1]
	if !ok {
		return nil, fmt.Errorf("sparse index for %s: %w", sha1, domain.ErrNotFound)
	}
	return idx, nil
}

// memCatalog is an in-memory ReportCatalog keyed case-insensitively
// by company name.
type memCatalog struct {
	mu    sync.Mutex
	metas map[string]domain.ReportMeta
}

var _ driven.ReportCatalog = (*memCatalog)(nil)

func newMemCatalog() *memCatalog {
	return &memCatalog{metas: make(map[string]domain.ReportMeta)}
}

func (c *memCatalog) Put(_ context.Context, meta domain.ReportMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.SHA1] = meta
	return nil
}

func (c *memCatalog) Get(_ context.Context, sha1 string) (*domain.ReportMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[sha1]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", sha1, domain.ErrNotFound)
	}
	return &meta, nil
}

func (c *memCatalog) ResolveCompany(_ context.Context, company string) ([]domain.ReportMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var metas []domain.ReportMeta
	for _, meta := range c.metas {
		if strings.EqualFold(meta.CompanyName, company) {
			metas = append(metas, meta)
		}
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("company %q: %w", company, domain.ErrNotFound)
	}
	return metas, nil
}

func (c *memCatalog) List(_ context.Context) ([]domain.ReportMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	metas := make([]domain.ReportMeta, 0, len(c.metas))
	for _, meta := range c.metas {
		metas = append(metas, meta)
	}
	return metas, nil
}

func (c *memCatalog) Close() error { return nil }

// denseIndexFromVectors builds a dense index directly from vectors.
func denseIndexFromVectors(dims int, vectors [][]float32) (*dense.Index, error) {
	idx, err := dense.New(dims)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}
	return idx, nil
}
