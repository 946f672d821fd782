package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	sourcefile "github.com/custodia-labs/finqa-cli/internal/adapters/driven/source/file"
	"github.com/custodia-labs/finqa-cli/internal/core/domain"
)

var (
	askKind      string
	askCompanies []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Runs the full retrieval and synthesis pipeline for one question
and prints the structured answer. The company scope comes from the
--company flag, or from quoted company names in the question text.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askKind, "kind", "k", "text", "answer kind (text, number, boolean, names)")
	askCmd.Flags().StringArrayVarP(&askCompanies, "company", "c", nil, "company to search (repeatable)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	kind, err := domain.ParseAnswerKind(askKind)
	if err != nil {
		return err
	}

	companies := askCompanies
	if len(companies) == 0 {
		companies = sourcefile.ExtractCompanies(args[0])
	}

	record, err := questionService.AnswerQuestion(context.Background(), domain.Question{
		Text:      args[0],
		Kind:      kind,
		Companies: companies,
	})
	if err != nil {
		return fmt.Errorf("answer question: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
