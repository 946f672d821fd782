package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerKind is the requested type of the final answer value.
type AnswerKind string

// Supported answer kinds.
const (
	AnswerKindText    AnswerKind = "text"
	AnswerKindNumber  AnswerKind = "number"
	AnswerKindBoolean AnswerKind = "boolean"
	AnswerKindNames   AnswerKind = "names"
)

// ParseAnswerKind converts a string into an AnswerKind.
// It accepts the aliases used by older question files.
func ParseAnswerKind(s string) (AnswerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "":
		return AnswerKindText, nil
	case "number", "numeric":
		return AnswerKindNumber, nil
	case "boolean", "bool":
		return AnswerKindBoolean, nil
	case "names", "name_list":
		return AnswerKindNames, nil
	default:
		return "", fmt.Errorf("%w: unknown answer kind %q", ErrInvalidInput, s)
	}
}

// Question is a single natural-language question scoped to one or
// more companies whose reports should be searched.
type Question struct {
	// Text is the question itself.
	Text string `json:"text"`

	// Kind is the requested answer kind.
	Kind AnswerKind `json:"kind"`

	// Companies scopes retrieval to the named companies' reports.
	Companies []string `json:"companies"`
}

// ParseTier records which stage of the completion parse chain
// produced an AnswerRecord.
type ParseTier int

// Parse tiers, from richest to most degraded.
const (
	// ParseTierSchema means the raw completion was schema-valid JSON.
	ParseTierSchema ParseTier = iota

	// ParseTierFenced means JSON was recovered after stripping a
	// fenced code block wrapper.
	ParseTierFenced

	// ParseTierLiteral means the completion was treated as the
	// literal final answer with placeholder fields.
	ParseTierLiteral
)

// String returns a short label for the parse tier.
func (t ParseTier) String() string {
	switch t {
	case ParseTierSchema:
		return "schema"
	case ParseTierFenced:
		return "fenced"
	case ParseTierLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// AnswerValue is the typed final answer. It is a tagged union over
// a raw-text fallback and the structured kinds, resolved once at the
// parse boundary so downstream consumers see one canonical shape.
type AnswerValue struct {
	// Kind selects which of the value fields is meaningful.
	Kind AnswerKind

	// Text holds the value for AnswerKindText, and the raw-text
	// fallback for any kind when the model output could not be
	// coerced to the requested type.
	Text string

	// Number holds the value for AnswerKindNumber.
	Number float64

	// Boolean holds the value for AnswerKindBoolean.
	Boolean bool

	// Names holds the value for AnswerKindNames.
	Names []string

	// Raw marks a value that fell back to Text regardless of Kind.
	Raw bool
}

// MarshalJSON emits the typed value only.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.Raw {
		return json.Marshal(v.Text)
	}
	switch v.Kind {
	case AnswerKindNumber:
		return json.Marshal(v.Number)
	case AnswerKindBoolean:
		return json.Marshal(v.Boolean)
	case AnswerKindNames:
		if v.Names == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.Names)
	default:
		return json.Marshal(v.Text)
	}
}

// SourceRef points at a report page that contributed to an answer.
type SourceRef struct {
	// ReportSHA1 identifies the report.
	ReportSHA1 string `json:"report_sha1"`

	// Page is the 1-based page number.
	Page int `json:"page"`
}

// AnswerRecord is the validated structured answer for one question.
// It is produced once per question and always carries all fields,
// degrading in richness rather than failing on malformed model output.
type AnswerRecord struct {
	// Question is the question text the record answers.
	Question string `json:"question"`

	// Kind is the requested answer kind.
	Kind AnswerKind `json:"kind"`

	// StepByStepAnalysis is the model's reasoning trace.
	StepByStepAnalysis string `json:"step_by_step_analysis"`

	// ReasoningSummary is a short summary of the reasoning.
	ReasoningSummary string `json:"reasoning_summary"`

	// RelevantPages lists the page numbers the model reported using.
	RelevantPages []int `json:"relevant_pages"`

	// FinalAnswer is the typed final answer value.
	FinalAnswer AnswerValue `json:"final_answer"`

	// Sources is the relevance-ranked list of pages placed into the
	// generation context.
	Sources []SourceRef `json:"sources,omitempty"`

	// Tier records which parse tier produced the record.
	Tier ParseTier `json:"-"`
}
