package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputFile   string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many inputs from a file in parallel",
	Long: `Batch analyzes every line of a file concurrently:
- One input per line, either bare content or "<type><TAB><content>"
- Bare links are typed url, everything else text
- Blank lines, '#' comments and duplicates are skipped
- Each record is stored and written as one JSON line

Example:
  veritas batch inputs.txt
  veritas batch inputs.txt --concurrency 8 --output records.jsonl
  veritas batch inputs.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.batch_workers)")
	batchCmd.Flags().StringVar(&outputFile, "output", "", "JSON lines output path (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.BatchWorkers = concurrency
	}
	logger := newLogger(false)

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	p, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %s with %d workers...\n", file, cfg.Concurrency.BatchWorkers)

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.BatchWorkers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	success, failures := writeBatchResults(out, os.Stderr, results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", success)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)

	if failures > 0 && success == 0 {
		return fmt.Errorf("all %d inputs failed", failures)
	}
	return nil
}

// writeBatchResults writes successful records as JSON lines to out and
// reports failures to log.
func writeBatchResults(out, log io.Writer, results []*worker.AnalysisResult) (success, failures int) {
	enc := json.NewEncoder(out)
	for _, r := range results {
		if r.Error != nil {
			failures++
			fmt.Fprintf(log, "✗ line %d: %v\n", r.Line, r.Error)
			continue
		}
		if err := enc.Encode(r.Record); err != nil {
			failures++
			fmt.Fprintf(log, "✗ line %d: %v\n", r.Line, err)
			continue
		}
		success++
		fmt.Fprintf(log, "✓ line %d: %d/100 (%s)\n", r.Line, r.Record.FinalScore, r.Record.Category)
	}
	return success, failures
}
