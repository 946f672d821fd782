package domain

// CandidateSource records which retrieval path produced a candidate.
type CandidateSource string

// Candidate sources.
const (
	CandidateSourceDense    CandidateSource = "dense"
	CandidateSourceSparse   CandidateSource = "sparse"
	CandidateSourceFused    CandidateSource = "fused"
	CandidateSourceReranked CandidateSource = "reranked"
)

// Candidate is a scored chunk reference. Candidates are constructed
// per query and never persisted.
type Candidate struct {
	// ReportSHA1 identifies the report the chunk belongs to.
	ReportSHA1 string

	// Ordinal is the chunk ordinal within the report's chunk set.
	Ordinal int

	// Score is the candidate's relevance score. Its scale depends on
	// Source: native similarity for dense, BM25 for sparse, and a
	// batch-normalised blend for fused.
	Score float64

	// Source is the retrieval path that produced the candidate.
	Source CandidateSource
}

// RetrievalOptions configures a retrieval pass.
type RetrievalOptions struct {
	// TopN is the maximum number of candidates returned (default 10).
	TopN int

	// Dense enables vector retrieval.
	Dense bool

	// Sparse enables lexical retrieval.
	Sparse bool

	// FullContext bypasses retrieval entirely: the consumer receives
	// every chunk of the target reports ordered by page.
	FullContext bool

	// DenseWeight is the fusion blend weight given to the dense
	// score; the sparse score receives 1-DenseWeight. The exact
	// blend is a tunable; 0.5 treats both sources equally.
	DenseWeight float64
}

// ContextBlock is a unit of text placed into the generation prompt.
// It is either a single chunk or, after parent expansion, the full
// text of the chunk's owning page.
type ContextBlock struct {
	// ReportSHA1 identifies the report.
	ReportSHA1 string

	// CompanyName is the report's company, for prompt labelling.
	CompanyName string

	// Page is the 1-based page number of the block.
	Page int

	// Text is the block content.
	Text string

	// Score is the retrieval score of the candidate that selected
	// the block.
	Score float64
}
