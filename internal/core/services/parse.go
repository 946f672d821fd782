package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// placeholder fills required answer fields the model failed to supply.
const placeholder = "-"

// completionSchema is the object shape requested from the model.
type completionSchema struct {
	StepByStepAnalysis string          `json:"step_by_step_analysis"`
	ReasoningSummary   string          `json:"reasoning_summary"`
	RelevantPages      []int           `json:"relevant_pages"`
	FinalAnswer        json.RawMessage `json:"final_answer"`
}

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeFence removes a single leading/trailing fenced code block
// wrapper, optionally tagged json, from a completion.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// ParseCompletion turns a raw model completion into a complete,
// schema-conformant AnswerRecord. It never fails:
//
//  1. A completion that is already schema-valid JSON is used directly.
//  2. Otherwise one fenced code block wrapper is stripped and the
//     parse retried.
//  3. Otherwise the whole completion becomes the literal final answer
//     with placeholder values for the remaining fields.
//
// The record's Tier reports which stage succeeded.
func ParseCompletion(raw string, kind domain.AnswerKind) *domain.AnswerRecord {
	if record, ok := parseSchema(raw, kind); ok {
		record.Tier = domain.ParseTierSchema
		return record
	}

	if stripped := stripCodeFence(raw); stripped != raw {
		if record, ok := parseSchema(stripped, kind); ok {
			record.Tier = domain.ParseTierFenced
			return record
		}
	}

	logger.Warn("Completion is not valid JSON, falling back to literal answer")
	return &domain.AnswerRecord{
		StepByStepAnalysis: placeholder,
		ReasoningSummary:   placeholder,
		RelevantPages:      []int{},
		FinalAnswer: domain.AnswerValue{
			Kind: kind,
			Text: strings.TrimSpace(raw),
			Raw:  true,
		},
		Kind: kind,
		Tier: domain.ParseTierLiteral,
	}
}

// parseSchema attempts a strict parse of one completion string.
func parseSchema(raw string, kind domain.AnswerKind) (*domain.AnswerRecord, bool) {
	var schema completionSchema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, false
	}
	if len(schema.FinalAnswer) == 0 {
		return nil, false
	}

	record := &domain.AnswerRecord{
		StepByStepAnalysis: schema.StepByStepAnalysis,
		ReasoningSummary:   schema.ReasoningSummary,
		RelevantPages:      schema.RelevantPages,
		FinalAnswer:        coerceAnswer(schema.FinalAnswer, kind),
		Kind:               kind,
	}
	if record.StepByStepAnalysis == "" {
		record.StepByStepAnalysis = placeholder
	}
	if record.ReasoningSummary == "" {
		record.ReasoningSummary = placeholder
	}
	if record.RelevantPages == nil {
		record.RelevantPages = []int{}
	}
	return record, true
}

// coerceAnswer resolves the raw final answer into the typed value for
// the requested kind. Values that cannot be coerced fall back to
// their raw text rather than failing the question.
func coerceAnswer(raw json.RawMessage, kind domain.AnswerKind) domain.AnswerValue {
	switch kind {
	case domain.AnswerKindNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return domain.AnswerValue{Kind: kind, Number: n}
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if n, ok := parseNumeric(s); ok {
				return domain.AnswerValue{Kind: kind, Number: n}
			}
			return domain.AnswerValue{Kind: kind, Text: s, Raw: true}
		}

	case domain.AnswerKindBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return domain.AnswerValue{Kind: kind, Boolean: b}
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "yes":
				return domain.AnswerValue{Kind: kind, Boolean: true}
			case "false", "no":
				return domain.AnswerValue{Kind: kind, Boolean: false}
			}
			return domain.AnswerValue{Kind: kind, Text: s, Raw: true}
		}

	case domain.AnswerKindNames:
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			return domain.AnswerValue{Kind: kind, Names: names}
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return domain.AnswerValue{Kind: kind, Names: []string{s}}
		}

	default:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return domain.AnswerValue{Kind: kind, Text: s}
		}
	}

	// Whatever the model sent, keep it verbatim.
	return domain.AnswerValue{Kind: kind, Text: string(raw), Raw: true}
}

var numericCruft = strings.NewReplacer(",", "", "$", "", "%", "", " ", "")

// parseNumeric extracts a float from formatted figures like
// "1,234.5", "$42" or "12.3%".
func parseNumeric(s string) (float64, bool) {
	cleaned := numericCruft.Replace(strings.TrimSpace(s))
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
