package domain

// Report represents one parsed annual report.
// Identity is the sha1 content hash assigned by the upstream parser.
// Reports are created once at ingestion and never mutated.
type Report struct {
	// SHA1 is the content hash identifying the report.
	SHA1 string

	// CompanyName is the company the report belongs to.
	CompanyName string

	// FileName is the original document file name.
	FileName string

	// Pages is the ordered page-scoped text of the report.
	Pages []Page
}

// ReportMeta is the catalog entry for a report: everything except
// the page text. Used to resolve a question's company scope to
// target report ids without loading page content.
type ReportMeta struct {
	// SHA1 is the content hash identifying the report.
	SHA1 string

	// CompanyName is the company the report belongs to.
	CompanyName string

	// FileName is the original document file name.
	FileName string

	// PageCount is the number of parsed pages.
	PageCount int
}

// Meta returns the catalog entry for the report.
func (r *Report) Meta() ReportMeta {
	return ReportMeta{
		SHA1:        r.SHA1,
		CompanyName: r.CompanyName,
		FileName:    r.FileName,
		PageCount:   len(r.Pages),
	}
}

// Page holds the extracted plain text of a single report page.
// Tables, when present, have been pre-serialized to text upstream.
type Page struct {
	// Number is the 1-based page number.
	Number int `json:"number"`

	// Text is the normalised page text.
	Text string `json:"text"`
}

// PageText returns the text of the page with the given number,
// or false when the report has no such page.
func (r *Report) PageText(number int) (string, bool) {
	for i := range r.Pages {
		if r.Pages[i].Number == number {
			return r.Pages[i].Text, true
		}
	}
	return "", false
}

// ChunkSet is the persisted chunked form of one report: the page
// text (kept for parent expansion and full-context mode) plus the
// ordered chunk sequence both indexers are built from.
type ChunkSet struct {
	// ReportSHA1 identifies the report.
	ReportSHA1 string `json:"report_sha1"`

	// CompanyName is copied from report metadata.
	CompanyName string `json:"company_name"`

	// Pages is the report's page-scoped text.
	Pages []Page `json:"pages"`

	// Chunks is the ordered chunk sequence; slice position equals
	// chunk ordinal.
	Chunks []Chunk `json:"chunks"`
}

// PageText returns the text of the page with the given number.
func (cs *ChunkSet) PageText(number int) (string, bool) {
	for i := range cs.Pages {
		if cs.Pages[i].Number == number {
			return cs.Pages[i].Text, true
		}
	}
	return "", false
}

// Chunk is a contiguous slice of a page's text.
// Chunks are produced once per report and never mutated; they are
// the unit of indexing and retrieval. The Ordinal is the chunk's
// position within the report's full chunk sequence and is the key
// used by both the dense and sparse indexes.
type Chunk struct {
	// ReportSHA1 links to the owning Report.
	ReportSHA1 string `json:"report_sha1"`

	// Page is the 1-based page number the chunk was cut from.
	Page int `json:"page"`

	// Sequence is the chunk's position within its page.
	Sequence int `json:"sequence"`

	// Ordinal is the chunk's position within the report's chunk set.
	Ordinal int `json:"ordinal"`

	// Text is the raw chunk text.
	Text string `json:"text"`

	// TokenCount is an estimate of the chunk's token length.
	TokenCount int `json:"token_count"`

	// CompanyName is copied from report metadata for quick filtering.
	CompanyName string `json:"company_name,omitempty"`
}
