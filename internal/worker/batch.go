package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/source"
)

// Analyzer runs extraction and analysis for one input line
type Analyzer interface {
	AnalyzeInput(ctx context.Context, input string) (model.ExtractionResult, *model.AnalysisResult, error)
}

// BatchResult is the outcome for one input
type BatchResult struct {
	Index      int                    `json:"index"`
	Input      string                 `json:"input"`
	Extraction model.ExtractionResult `json:"extraction"`
	Analysis   *model.AnalysisResult  `json:"analysis,omitempty"`
	Error      error                  `json:"-"`
	ErrorText  string                 `json:"error,omitempty"`
}

// Failed reports whether the input produced no analysis
func (r *BatchResult) Failed() bool {
	return r.Error != nil
}

// BatchProcessor analyzes many inputs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessInputs analyzes inputs concurrently. Results keep input order and
// one failing input never affects the others.
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*BatchResult {
	if len(inputs) == 0 {
		return []*BatchResult{}
	}

	type job struct {
		index int
		input string
	}

	pool := NewPool(ctx, b.concurrency,
		func(ctx context.Context, j job) *BatchResult {
			ext, res, err := b.analyzer.AnalyzeInput(ctx, j.input)
			return newBatchResult(j.index, j.input, ext, res, err)
		},
		func(j job, recovered interface{}) *BatchResult {
			err := fmt.Errorf("panic: %v", recovered)
			return failedResult(j.index, j.input, err)
		},
	)
	pool.Start()

	for i, input := range inputs {
		if !pool.Submit(job{index: i, input: input}) {
			break
		}
	}

	results := pool.Wait()

	// Inputs dropped by cancellation still get a result
	if len(results) < len(inputs) {
		done := make(map[int]bool, len(results))
		for _, r := range results {
			done[r.Index] = true
		}
		out := make([]*BatchResult, 0, len(inputs))
		next := 0
		for i, input := range inputs {
			if done[i] {
				out = append(out, results[next])
				next++
				continue
			}
			err := fmt.Errorf("not processed: %w", context.Cause(ctx))
			out = append(out, failedResult(i, input, err))
		}
		results = out
	}

	return results
}

func newBatchResult(index int, input string, ext model.ExtractionResult, res *model.AnalysisResult, err error) *BatchResult {
	r := &BatchResult{Index: index, Input: input, Extraction: ext, Analysis: res, Error: err}
	if err != nil {
		r.ErrorText = err.Error()
	}
	return r
}

// failedResult records an input that never produced an extraction
func failedResult(index int, input string, err error) *BatchResult {
	kind := model.InputText
	if source.IsURL(input) {
		kind = model.InputURL
	}
	return newBatchResult(index, input, model.FailedExtraction(input, kind, "", err.Error()), nil, err)
}

// ProcessFile reads inputs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads one URL per line, skipping blanks, # comments
// and duplicates
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
