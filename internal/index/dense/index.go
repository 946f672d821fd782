// Package dense provides an exact inner-product nearest-neighbour
// index over one report's chunk embedding vectors.
//
// Vectors are stored in insertion order, so the position of a vector
// is the chunk ordinal it was built from. The index is immutable once
// built and safe for concurrent searches.
package dense

import (
	"encoding/gob"
	"fmt"
	"io"
	"sort"
)

// Hit is a similarity search result.
type Hit struct {
	// Ordinal is the matched chunk ordinal.
	Ordinal int

	// Score is the inner-product similarity to the query.
	Score float64
}

// Index is a flat (exhaustive) inner-product index.
type Index struct {
	dims    int
	vectors [][]float32
}

// New creates an empty index of the given dimension.
// An empty index is valid: it answers every search with no hits.
func New(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dense: invalid dimension %d", dims)
	}
	return &Index{dims: dims}, nil
}

// Add appends vectors to the index in order.
func (x *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dims {
			return fmt.Errorf("dense: vector %d has dimension %d, index expects %d", i, len(v), x.dims)
		}
	}
	x.vectors = append(x.vectors, vectors...)
	return nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	return len(x.vectors)
}

// Dimensions returns the configured vector dimension.
func (x *Index) Dimensions() int {
	return x.dims
}

// Search returns the k nearest vectors to the query by inner product,
// highest first. Ties break on the lower ordinal so results are
// deterministic.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dims {
		return nil, fmt.Errorf("dense: query has dimension %d, index expects %d", len(query), x.dims)
	}
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		var dot float64
		for j := range v {
			dot += float64(v[j]) * float64(query[j])
		}
		hits[i] = Hit{Ordinal: i, Score: dot}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// payload is the gob wire form of the index.
type payload struct {
	Dims    int
	Vectors [][]float32
}

// Save writes the index to w in gob format.
func (x *Index) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(payload{Dims: x.dims, Vectors: x.vectors}); err != nil {
		return fmt.Errorf("dense: encode index: %w", err)
	}
	return nil
}

// Load reads an index previously written by Save.
func Load(r io.Reader) (*Index, error) {
	var p payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("dense: decode index: %w", err)
	}
	if p.Dims <= 0 {
		return nil, fmt.Errorf("dense: decoded index has invalid dimension %d", p.Dims)
	}
	return &Index{dims: p.Dims, vectors: p.Vectors}, nil
}
