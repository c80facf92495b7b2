package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/pipeline"
	"github.com/ppiankov/clearview/internal/source"
	"github.com/ppiankov/clearview/internal/worker"
	"github.com/spf13/cobra"
)

var (
	batchFlags   pipelineFlags
	batchScore   scoreFlags
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple URLs from a file in parallel",
	Long: `Batch analyzes URLs concurrently:
- Read URLs from the input file (one per line, # comments allowed)
- Analyze them with a bounded worker pool
- Write a JSON and a Markdown report per URL

A failing URL is reported and never stops the others.

Example:
  clearview batch urls.txt
  clearview batch urls.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFlags.register(batchCmd)
	batchScore.register(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clearview-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 10*time.Minute, "total timeout for batch processing")
}

// pipelineAnalyzer adapts the pipeline to the worker's Analyzer
type pipelineAnalyzer struct {
	pipe    *pipeline.Pipeline
	opts    pipeline.AnalyzeOptions
	timeout time.Duration
}

func (a *pipelineAnalyzer) AnalyzeInput(ctx context.Context, input string) (model.ExtractionResult, *model.AnalysisResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	in := pipeline.Input{Text: input}
	if source.IsURL(input) {
		in = pipeline.Input{URL: input}
	}
	ext, res, err := a.pipe.Run(ctx, in, a.opts)
	if err != nil && !ext.OK() && ext.Error != "" {
		err = fmt.Errorf("%w: %s", err, ext.Error)
	}
	return ext, res, err
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := batchFlags.config()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Clearview Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  Reviewer:     %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, closer, err := batchFlags.build(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	analyzer := &pipelineAnalyzer{
		pipe:    p,
		opts:    batchScore.options(p, batchFlags.noLLM),
		timeout: batchFlags.timeout,
	}
	if err := analyzer.opts.Validate(); err != nil {
		return err
	}
	processor := worker.NewBatchProcessor(analyzer, cfg.Concurrency.Workers)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Failed() {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Input, result.Error)
			continue
		}

		slug := reportSlug(result.Index, result.Input)
		if err := writeBatchReport(filepath.Join(outputDir, slug), result.Analysis, cfg.Output.IncludeFooter); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Input, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (scam %.2f, subjectivity %.2f)\n",
			result.Input, result.Analysis.ScamProbability, result.Analysis.SubjectivityProbability)
	}

	summaryPath := filepath.Join(outputDir, "batch.json")
	if f, err := os.Create(summaryPath); err == nil {
		err = pipeline.WriteJSON(f, results)
		_ = f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ write %s: %v\n", summaryPath, err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d inputs failed", failureCount)
	}
	return nil
}

func writeBatchReport(base string, res *model.AnalysisResult, includeFooter bool) error {
	f, err := os.Create(base + ".json")
	if err != nil {
		return fmt.Errorf("create JSON: %w", err)
	}
	err = pipeline.WriteJSON(f, res)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return pipeline.WriteFile(base+".md", []byte(pipeline.Markdown(res, includeFooter)))
}

// reportSlug derives a stable file name from the host and input
func reportSlug(index int, input string) string {
	host := source.Host(input)
	if host == "" {
		host = "text"
	}
	host = strings.NewReplacer(".", "-", ":", "-").Replace(host)
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%03d_%s_%s", index+1, host, hex.EncodeToString(sum[:])[:8])
}
