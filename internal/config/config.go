// Package config loads the run configuration from a TOML file.
//
// Configuration is an explicit value handed to constructors. Nothing
// outside this package and the CLI wiring reads the environment.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Paths locates the corpus and the persisted state on disk.
type Paths struct {
	// ReportsDir holds the parsed report JSON files produced by the
	// upstream document parser.
	ReportsDir string `toml:"reports_dir"`

	// QuestionsFile is the default batch questions file.
	QuestionsFile string `toml:"questions_file"`

	// IndexRoot holds the per-report chunk sets and indexes.
	IndexRoot string `toml:"index_root"`

	// DataDir holds the report catalog database.
	DataDir string `toml:"data_dir"`

	// OutputDir is where batch answer files are written.
	OutputDir string `toml:"output_dir"`
}

// Embedding configures the embedding provider client.
type Embedding struct {
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	Dimensions        int    `toml:"dimensions"`
	BatchSize         int    `toml:"batch_size"`
	RequestsPerMinute int    `toml:"requests_per_minute"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// LLM configures the chat-completions provider client.
type LLM struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// Run holds the per-run pipeline options.
type Run struct {
	TopN              int     `toml:"top_n"`
	Dense             bool    `toml:"dense"`
	Sparse            bool    `toml:"sparse"`
	DenseWeight       float64 `toml:"dense_weight"`
	Rerank            bool    `toml:"rerank"`
	RerankSampleSize  int     `toml:"rerank_sample_size"`
	ParentRetrieval   bool    `toml:"parent_retrieval"`
	PageWindow        int     `toml:"page_window"`
	FullContext       bool    `toml:"full_context"`
	ParallelRequests  int     `toml:"parallel_requests"`
	IngestParallelism int     `toml:"ingest_parallelism"`
	PipelineDetails   string  `toml:"pipeline_details"`
}

// Config is the complete tool configuration.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Embedding Embedding `toml:"embedding"`
	LLM       LLM       `toml:"llm"`
	Run       Run       `toml:"run"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			ReportsDir:    "data/parsed_reports",
			QuestionsFile: "data/questions.json",
			IndexRoot:     "data/index",
			DataDir:       "data",
			OutputDir:     "data/answers",
		},
		Embedding: Embedding{
			Model:             "text-embedding-3-small",
			Dimensions:        1024,
			BatchSize:         25,
			RequestsPerMinute: 500,
			APIKeyEnv:         "OPENAI_API_KEY",
		},
		LLM: LLM{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Run: Run{
			TopN:              10,
			Dense:             true,
			Sparse:            true,
			DenseWeight:       0.5,
			RerankSampleSize:  30,
			PageWindow:        1,
			ParallelRequests:  1,
			IngestParallelism: 4,
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file
// is not an error when path is empty; an explicitly named file must
// exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = "config.toml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// EmbeddingAPIKey resolves the embedding provider key from the
// configured environment variable.
func (c Config) EmbeddingAPIKey() string {
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// LLMAPIKey resolves the chat provider key from the configured
// environment variable.
func (c Config) LLMAPIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}
