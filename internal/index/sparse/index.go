// Package sparse provides a BM25 (Okapi) lexical index over one
// report's chunk token lists.
//
// Tokenization is whitespace-based and language-agnostic: no
// stemming, no stopword removal. The index is pure in-memory state,
// deterministic, immutable once built, and safe for concurrent
// searches.
package sparse

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75
)

// Hit is a lexical search result.
type Hit struct {
	// Ordinal is the matched chunk ordinal.
	Ordinal int

	// Score is the BM25 score of the chunk for the query.
	Score float64
}

// posting records a term's frequency in one chunk.
type posting struct {
	Doc int
	TF  int
}

// Index is a BM25 term-frequency index addressed by chunk ordinal.
type Index struct {
	postings map[string][]posting
	docLens  []int
	avgLen   float64
}

// Tokenize splits text into whitespace-separated lowercase tokens.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Build constructs an index from per-chunk token lists, where the
// slice position is the chunk ordinal. An empty input yields a valid
// empty index.
func Build(tokenLists [][]string) *Index {
	x := &Index{
		postings: make(map[string][]posting),
		docLens:  make([]int, len(tokenLists)),
	}

	var total int
	for doc, tokens := range tokenLists {
		x.docLens[doc] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, n := range tf {
			x.postings[term] = append(x.postings[term], posting{Doc: doc, TF: n})
		}
	}
	if len(tokenLists) > 0 {
		x.avgLen = float64(total) / float64(len(tokenLists))
	}
	return x
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	return len(x.docLens)
}

// Search scores every chunk against the query tokens and returns the
// top k by BM25, highest first. Ties break on the lower ordinal.
// Uses the smoothed IDF variant log(1 + (N-df+0.5)/(df+0.5)) so terms
// appearing in most chunks never score negatively.
func (x *Index) Search(queryTokens []string, k int) []Hit {
	if k <= 0 || len(x.docLens) == 0 || len(queryTokens) == 0 {
		return nil
	}

	n := float64(len(x.docLens))
	scores := make(map[int]float64)

	for _, term := range queryTokens {
		plist, ok := x.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(len(plist))+0.5)/(float64(len(plist))+0.5))
		for _, p := range plist {
			tf := float64(p.TF)
			norm := 1 - b + b*float64(x.docLens[p.Doc])/x.avgLen
			scores[p.Doc] += idf * tf * (k1 + 1) / (tf + k1*norm)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		hits = append(hits, Hit{Ordinal: doc, Score: score})
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
	return hits[:k]
}

// payload is the gob wire form of the index.
type payload struct {
	Postings map[string][]posting
	DocLens  []int
	AvgLen   float64
}

// Save writes the index to w in gob format.
func (x *Index) Save(w io.Writer) error {
	p := payload{Postings: x.postings, DocLens: x.docLens, AvgLen: x.avgLen}
	if err := gob.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("sparse: encode index: %w", err)
	}
	return nil
}

// Load reads an index previously written by Save.
func Load(r io.Reader) (*Index, error) {
	var p payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("sparse: decode index: %w", err)
	}
	x := &Index{postings: p.Postings, docLens: p.DocLens, avgLen: p.AvgLen}
	if x.postings == nil {
		x.postings = make(map[string][]posting)
	}
	return x, nil
}
