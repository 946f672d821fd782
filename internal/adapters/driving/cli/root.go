// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	embeddingopenai "github.com/custodia-labs/finqa-cli/internal/adapters/driven/embedding/openai"
	llmopenai "github.com/custodia-labs/finqa-cli/internal/adapters/driven/llm/openai"
	storagefile "github.com/custodia-labs/finqa-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/finqa-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/finqa-cli/internal/chunker"
	"github.com/custodia-labs/finqa-cli/internal/config"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/finqa-cli/internal/core/services"
	"github.com/custodia-labs/finqa-cli/internal/logger"
)

var version = "0.1.0"

var (
	verbose    bool
	configPath string

	cfg config.Config

	// Services are package-level so tests can swap in mocks.
	ingestService   driving.IngestService
	questionService driving.QuestionService
)

var rootCmd = &cobra.Command{
	Use:   "finqa",
	Short: "Question answering over company annual reports",
	Long: `finqa ingests parsed annual-report documents, builds hybrid
dense and sparse indexes per report, and answers natural-language
questions with structured, page-cited answers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		// Missing .env is fine; keys may come from the environment.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initServices builds the service graph from the loaded configuration.
// Commands call it lazily; tests bypass it by pre-setting the service
// variables.
func initServices() error {
	if ingestService != nil && questionService != nil {
		return nil
	}

	catalog, err := sqlite.NewCatalog(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("open report catalog: %w", err)
	}

	store, err := storagefile.NewIndexStore(cfg.Paths.IndexRoot)
	if err != nil {
		return fmt.Errorf("open index store: %w", err)
	}

	var embedder driven.EmbeddingService
	if key := cfg.EmbeddingAPIKey(); key != "" {
		svc, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey:            key,
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			BatchSize:         cfg.Embedding.BatchSize,
			RequestsPerMinute: cfg.Embedding.RequestsPerMinute,
		})
		if err != nil {
			return fmt.Errorf("embedding service: %w", err)
		}
		embedder = svc
	} else {
		logger.Warn("%s not set, dense indexing and retrieval disabled", cfg.Embedding.APIKeyEnv)
	}

	var llm driven.LLMService
	if key := cfg.LLMAPIKey(); key != "" {
		svc, err := llmopenai.NewLLMService(llmopenai.LLMConfig{
			APIKey:  key,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			return fmt.Errorf("llm service: %w", err)
		}
		llm = svc
	} else {
		logger.Warn("%s not set, reranking and answer synthesis disabled", cfg.LLM.APIKeyEnv)
	}

	ingestService = services.NewIngestor(
		chunker.New(),
		embedder,
		store,
		catalog,
		services.WithParallelism(cfg.Run.IngestParallelism),
	)

	retriever := services.NewRetriever(store, embedder)

	var reranker *services.Reranker
	if llm != nil {
		reranker = services.NewReranker(llm, retriever, cfg.Run.RerankSampleSize)
	}

	questionService = services.NewQuestionProcessor(
		retriever,
		reranker,
		services.NewSynthesizer(llm),
		catalog,
		services.ProcessorConfig{
			TopN:             cfg.Run.TopN,
			Dense:            cfg.Run.Dense,
			Sparse:           cfg.Run.Sparse,
			DenseWeight:      cfg.Run.DenseWeight,
			Rerank:           cfg.Run.Rerank,
			RerankSampleSize: cfg.Run.RerankSampleSize,
			ParentRetrieval:  cfg.Run.ParentRetrieval,
			PageWindow:       cfg.Run.PageWindow,
			FullContext:      cfg.Run.FullContext,
			ParallelRequests: cfg.Run.ParallelRequests,
			OutputDir:        cfg.Paths.OutputDir,
			PipelineDetails:  cfg.Run.PipelineDetails,
		},
	)

	return nil
}
