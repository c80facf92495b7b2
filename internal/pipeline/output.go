package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// WriteJSON writes the result as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// Markdown renders an analysis result as a Markdown report
func Markdown(res *model.AnalysisResult, includeFooter bool) string {
	ext := res.Extraction
	var b strings.Builder

	title := ext.Title
	if title == "" {
		title = "Clearview Report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Source:** %s  \n", ext.Source)
	if len(ext.Authors) > 0 {
		fmt.Fprintf(&b, "**Authors:** %s  \n", strings.Join(ext.Authors, ", "))
	}
	fmt.Fprintf(&b, "**Words:** %d  \n", ext.WordCount)
	fmt.Fprintf(&b, "**Method:** %s\n\n", ext.Method)

	if res.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n_(%s)_\n\n", res.Summary, res.SummaryMethod)
	}

	b.WriteString("## Scores\n\n")
	b.WriteString("| Section | Probability | Band | Flagged | Source |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "| %s | %.2f | %s | %t | %s |\n", f.Section.DisplayName(), f.Probability, f.Band, f.Flagged, f.Source)
	}
	b.WriteString("\n")

	for _, f := range res.Findings {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", f.Section.DisplayName(), f.Message)
	}

	b.WriteString("## Bias Categories\n\n")
	for _, cs := range res.BiasScores.Sorted() {
		marker := ""
		if contains(res.CategoriesAboveCutoff, cs.Category) {
			marker = " **(above cutoff)**"
		}
		fmt.Fprintf(&b, "- %s: %.2f%s\n", cs.Category, cs.Score, marker)
	}
	b.WriteString("\n")

	if len(res.Notes) > 0 || len(res.Errors) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range res.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
		components := make([]string, 0, len(res.Errors))
		for c := range res.Errors {
			components = append(components, c)
		}
		sort.Strings(components)
		for _, c := range components {
			fmt.Fprintf(&b, "- %s failed: %s\n", c, res.Errors[c])
		}
		b.WriteString("\n")
	}

	if includeFooter {
		fmt.Fprintf(&b, "---\n_Generated by clearview at %s. Scores are heuristic estimates, not verdicts._\n",
			res.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

// WriteFile writes data, creating parent directories
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// NewRecord builds the persistence row for a rendered report
func NewRecord(res *model.AnalysisResult, blob []byte) (*model.Record, error) {
	meta, err := json.Marshal(map[string]interface{}{
		"method":                     res.Extraction.Method,
		"scam_probability":           res.ScamProbability,
		"subjectivity_probability":   res.SubjectivityProbability,
		"categories_above_threshold": res.CategoriesAboveCutoff,
		"summary_method":             res.SummaryMethod,
		"notes":                      res.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode record metadata: %w", err)
	}
	return &model.Record{
		Kind:      model.RecordKindReport,
		Title:     res.Extraction.Title,
		Source:    res.Extraction.Source,
		WordCount: res.Extraction.WordCount,
		Metadata:  string(meta),
		Blob:      blob,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
