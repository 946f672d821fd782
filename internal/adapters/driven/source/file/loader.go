// Package file loads parsed reports and question batches from the
// JSON files produced by the upstream document-parsing step.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

// parsedReport mirrors the parsing collaborator's JSON layout: a
// metainfo header keyed by content hash plus page-ordered text.
type parsedReport struct {
	Metainfo struct {
		SHA1        string `json:"sha1"`
		SHA1Name    string `json:"sha1_name"`
		CompanyName string `json:"company_name"`
		FileName    string `json:"file_name"`
	} `json:"metainfo"`
	Content struct {
		Pages []struct {
			Page int    `json:"page"`
			Text string `json:"text"`
		} `json:"pages"`
	} `json:"content"`
}

// LoadReport reads one parsed report file.
func LoadReport(path string) (*domain.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: report file %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	var parsed parsedReport
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse report %s: %v", domain.ErrInvalidInput, path, err)
	}

	sha1 := parsed.Metainfo.SHA1
	if sha1 == "" {
		// Older parser versions put the hash in sha1_name.
		sha1 = parsed.Metainfo.SHA1Name
	}
	if sha1 == "" {
		return nil, fmt.Errorf("%w: report %s has no content hash", domain.ErrInvalidInput, path)
	}

	report := &domain.Report{
		SHA1:        sha1,
		CompanyName: parsed.Metainfo.CompanyName,
		FileName:    parsed.Metainfo.FileName,
		Pages:       make([]domain.Page, 0, len(parsed.Content.Pages)),
	}
	for _, p := range parsed.Content.Pages {
		report.Pages = append(report.Pages, domain.Page{Number: p.Page, Text: p.Text})
	}
	sort.Slice(report.Pages, func(i, j int) bool {
		return report.Pages[i].Number < report.Pages[j].Number
	})
	return report, nil
}

// LoadReportsDir reads every .json file in dir as a parsed report.
// An unreadable file is logged and skipped so one bad report never
// blocks a corpus load.
func LoadReportsDir(dir string) ([]domain.Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: reports directory %s", domain.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("read reports directory %s: %w", dir, err)
	}

	var reports []domain.Report
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		report, err := LoadReport(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("Skipping report %s: %v", entry.Name(), err)
			continue
		}
		reports = append(reports, *report)
	}

	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: no parsed reports in %s", domain.ErrNotFound, dir)
	}
	return reports, nil
}

// questionEntry is one entry of a questions file.
type questionEntry struct {
	Text      string   `json:"text"`
	Kind      string   `json:"kind"`
	Companies []string `json:"companies"`
}

// LoadQuestions reads a batch questions file. Each entry carries the
// question text, the expected answer kind and, optionally, an
// explicit company scope. Without one, the scope is extracted from
// quoted company names in the question text.
func LoadQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: questions file %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read questions %s: %w", path, err)
	}

	var entries []questionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse questions %s: %v", domain.ErrInvalidInput, path, err)
	}

	questions := make([]domain.Question, 0, len(entries))
	for i, e := range entries {
		kind, err := domain.ParseAnswerKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		companies := e.Companies
		if len(companies) == 0 {
			companies = ExtractCompanies(e.Text)
		}
		questions = append(questions, domain.Question{
			Text:      e.Text,
			Kind:      kind,
			Companies: companies,
		})
	}
	return questions, nil
}

var quotedNameRe = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)

// ExtractCompanies pulls company names out of a question's quoted
// spans. Straight and curly double quotes are both recognised.
func ExtractCompanies(text string) []string {
	var names []string
	for _, m := range quotedNameRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
