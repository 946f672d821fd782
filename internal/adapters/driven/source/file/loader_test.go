package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
)

const sampleReport = `{
	"metainfo": {
		"sha1": "abc123",
		"company_name": "Acme Corp",
		"file_name": "acme_2024.pdf"
	},
	"content": {
		"pages": [
			{"page": 2, "text": "second page"},
			{"page": 1, "text": "first page"}
		]
	}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadReport(t *testing.T) {
	path := writeFile(t, t.TempDir(), "report.json", sampleReport)

	report, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", report.SHA1)
	assert.Equal(t, "Acme Corp", report.CompanyName)
	assert.Equal(t, "acme_2024.pdf", report.FileName)

	// Pages come back sorted by number.
	require.Len(t, report.Pages, 2)
	assert.Equal(t, 1, report.Pages[0].Number)
	assert.Equal(t, "first page", report.Pages[0].Text)
	assert.Equal(t, 2, report.Pages[1].Number)
}

func TestLoadReport_LegacySHA1Name(t *testing.T) {
	path := writeFile(t, t.TempDir(), "report.json", `{
		"metainfo": {"sha1_name": "legacy99", "company_name": "Acme"},
		"content": {"pages": [{"page": 1, "text": "content"}]}
	}`)

	report, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "legacy99", report.SHA1)
}

func TestLoadReport_MissingHash(t *testing.T) {
	path := writeFile(t, t.TempDir(), "report.json", `{
		"metainfo": {"company_name": "Acme"},
		"content": {"pages": []}
	}`)

	_, err := LoadReport(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadReport_NotFound(t *testing.T) {
	_, err := LoadReport(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadReport_MalformedJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "report.json", "{not json")
	_, err := LoadReport(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadReportsDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", sampleReport)
	writeFile(t, dir, "broken.json", "{oops")
	writeFile(t, dir, "notes.txt", "not a report")

	reports, err := LoadReportsDir(dir)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "abc123", reports[0].SHA1)
}

func TestLoadReportsDir_Empty(t *testing.T) {
	_, err := LoadReportsDir(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadReportsDir_Missing(t *testing.T) {
	_, err := LoadReportsDir(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadQuestions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "questions.json", `[
		{"text": "What was the revenue of \"Acme Corp\"?", "kind": "number"},
		{"text": "Who is the CEO?", "kind": "names", "companies": ["Globex"]},
		{"text": "Did profit grow?", "kind": "boolean", "companies": ["Acme Corp"]}
	]`)

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	// Scope extracted from the quoted name when not explicit.
	assert.Equal(t, domain.AnswerKindNumber, questions[0].Kind)
	assert.Equal(t, []string{"Acme Corp"}, questions[0].Companies)

	assert.Equal(t, []string{"Globex"}, questions[1].Companies)
	assert.Equal(t, domain.AnswerKindBoolean, questions[2].Kind)
}

func TestLoadQuestions_KindAliases(t *testing.T) {
	path := writeFile(t, t.TempDir(), "questions.json", `[
		{"text": "q1", "kind": "string", "companies": ["A"]},
		{"text": "q2", "kind": "", "companies": ["A"]}
	]`)

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerKindText, questions[0].Kind)
	assert.Equal(t, domain.AnswerKindText, questions[1].Kind)
}

func TestLoadQuestions_UnknownKind(t *testing.T) {
	path := writeFile(t, t.TempDir(), "questions.json", `[
		{"text": "q", "kind": "date", "companies": ["A"]}
	]`)

	_, err := LoadQuestions(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadQuestions_NotFound(t *testing.T) {
	_, err := LoadQuestions(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtractCompanies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "straight quotes",
			text: `What was the revenue of "Acme Corp" in 2024?`,
			want: []string{"Acme Corp"},
		},
		{
			name: "curly quotes",
			text: "Compare “Acme” and “Globex” margins.",
			want: []string{"Acme", "Globex"},
		},
		{
			name: "no quotes",
			text: "What was the revenue?",
			want: nil,
		},
		{
			name: "whitespace trimmed",
			text: `Report of " Acme "`,
			want: []string{"Acme"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractCompanies(tc.text))
		})
	}
}
