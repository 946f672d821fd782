package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswerKind(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    AnswerKind
		wantErr bool
	}{
		{name: "text", in: "text", want: AnswerKindText},
		{name: "string alias", in: "string", want: AnswerKindText},
		{name: "empty defaults to text", in: "", want: AnswerKindText},
		{name: "number", in: "number", want: AnswerKindNumber},
		{name: "numeric alias", in: "NUMERIC", want: AnswerKindNumber},
		{name: "boolean", in: "boolean", want: AnswerKindBoolean},
		{name: "bool alias", in: "bool", want: AnswerKindBoolean},
		{name: "names", in: "names", want: AnswerKindNames},
		{name: "name_list alias", in: "name_list", want: AnswerKindNames},
		{name: "whitespace tolerated", in: "  number ", want: AnswerKindNumber},
		{name: "unknown", in: "date", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAnswerKind(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTier_String(t *testing.T) {
	assert.Equal(t, "schema", ParseTierSchema.String())
	assert.Equal(t, "fenced", ParseTierFenced.String())
	assert.Equal(t, "literal", ParseTierLiteral.String())
	assert.Equal(t, "unknown", ParseTier(99).String())
}

func TestAnswerValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		value AnswerValue
		want  string
	}{
		{
			name:  "number",
			value: AnswerValue{Kind: AnswerKindNumber, Number: 1234.5},
			want:  `1234.5`,
		},
		{
			name:  "boolean",
			value: AnswerValue{Kind: AnswerKindBoolean, Boolean: true},
			want:  `true`,
		},
		{
			name:  "names",
			value: AnswerValue{Kind: AnswerKindNames, Names: []string{"Jane Doe"}},
			want:  `["Jane Doe"]`,
		},
		{
			name:  "nil names become empty array",
			value: AnswerValue{Kind: AnswerKindNames},
			want:  `[]`,
		},
		{
			name:  "text",
			value: AnswerValue{Kind: AnswerKindText, Text: "Berlin"},
			want:  `"Berlin"`,
		},
		{
			name:  "raw fallback wins over kind",
			value: AnswerValue{Kind: AnswerKindNumber, Text: "N/A", Raw: true},
			want:  `"N/A"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestAnswerRecord_MarshalShape(t *testing.T) {
	record := AnswerRecord{
		Question:           "What was the revenue?",
		Kind:               AnswerKindNumber,
		StepByStepAnalysis: "analysis",
		ReasoningSummary:   "summary",
		RelevantPages:      []int{3},
		FinalAnswer:        AnswerValue{Kind: AnswerKindNumber, Number: 42},
		Sources:            []SourceRef{{ReportSHA1: "r1", Page: 3}},
		Tier:               ParseTierSchema,
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(42), out["final_answer"])
	assert.Contains(t, out, "step_by_step_analysis")

	// The parse tier is internal bookkeeping, not output.
	assert.NotContains(t, out, "tier")
}

func TestReport_Meta(t *testing.T) {
	r := Report{
		SHA1:        "abc",
		CompanyName: "Acme",
		FileName:    "acme.pdf",
		Pages:       []Page{{Number: 1}, {Number: 2}},
	}

	meta := r.Meta()
	assert.Equal(t, "abc", meta.SHA1)
	assert.Equal(t, 2, meta.PageCount)
}

func TestChunkSet_PageText(t *testing.T) {
	cs := ChunkSet{Pages: []Page{{Number: 1, Text: "one"}, {Number: 3, Text: "three"}}}

	text, ok := cs.PageText(3)
	require.True(t, ok)
	assert.Equal(t, "three", text)

	_, ok = cs.PageText(2)
	assert.False(t, ok)
}
