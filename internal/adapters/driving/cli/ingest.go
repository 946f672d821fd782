package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sourcefile "github.com/custodia-labs/finqa-cli/internal/adapters/driven/source/file"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [reports-dir]",
	Short: "Index parsed reports",
	Long: `Loads parsed report JSON files from a directory, chunks each
report and builds its dense and sparse indexes. Reports that fail are
reported individually; siblings are unaffected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	dir := cfg.Paths.ReportsDir
	if len(args) == 1 {
		dir = args[0]
	}

	reports, err := sourcefile.LoadReportsDir(dir)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	results := ingestService.IngestReports(context.Background(), reports)

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			cmd.Printf("  [FAIL] %s (%s): %v\n", reports[i].FileName, r.ReportSHA1, r.Err)
			continue
		}
		cmd.Printf("  [ OK ] %s (%s): %d chunks\n", reports[i].FileName, r.ReportSHA1, r.Chunks)
	}
	cmd.Printf("\nIngested %d/%d reports\n", len(results)-failed, len(results))

	if failed == len(results) {
		return fmt.Errorf("all %d reports failed", failed)
	}
	return nil
}
