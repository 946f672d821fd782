package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sourcefile "github.com/custodia-labs/finqa-cli/internal/adapters/driven/source/file"
)

var processQuestionsFile string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Answer a batch of questions",
	Long: `Reads a questions file, answers every question with the
configured pipeline and parallelism, and writes one answer record per
question to a new answers file. A failed question is recorded in the
output, never aborts the batch.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processQuestionsFile, "questions", "q", "", "questions file (defaults to config)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	path := processQuestionsFile
	if path == "" {
		path = cfg.Paths.QuestionsFile
	}

	questions, err := sourcefile.LoadQuestions(path)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	summary, err := questionService.ProcessQuestions(context.Background(), questions)
	if err != nil {
		return fmt.Errorf("process questions: %w", err)
	}

	failed := 0
	for _, o := range summary.Outcomes {
		if o.Err != nil {
			failed++
		}
	}

	cmd.Printf("Run %s: %d/%d questions answered\n",
		summary.RunID, len(summary.Outcomes)-failed, len(summary.Outcomes))
	cmd.Printf("Answers saved to %s\n", summary.OutputPath)
	return nil
}
