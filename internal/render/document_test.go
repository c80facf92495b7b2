package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/clearview/internal/model"
)

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  string
	}{
		{0, "1 min read"},
		{225, "1 min read"},
		{226, "2 min read"},
		{1000, "5 min read"},
	}
	for _, tt := range tests {
		if got := ReadingTime(tt.words); got != tt.want {
			t.Errorf("ReadingTime(%d) = %q, expected %q", tt.words, got, tt.want)
		}
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	doc := Document{
		Title:     "Quarterly “results” – a review",
		Authors:   []string{"Jane Doe"},
		Content:   strings.Repeat("Revenue grew in every region this quarter. ", 40),
		Source:    "https://example.com/q3",
		WordCount: 280,
		Method:    model.MethodStatic,
		Summary:   "Revenue grew everywhere.",
		Findings: []model.Finding{
			{Section: model.SectionScam, Probability: 0.05, Band: model.BandConfidentNegative, Message: "No scam indicators."},
			{Section: model.SectionBias, Probability: 0.8, Band: model.BandConfidentPositive, Flagged: true, Message: "Clear bias detected."},
		},
		FlaggedCategories: []string{"corporate bias"},
		Notes:             []string{model.NoteHeuristicOnly},
	}

	out, err := NewPDFRenderer(true).Render(doc)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("Expected PDF header, got %q", out[:min(len(out), 8)])
	}
}

func TestPDFRenderer_EmptyDocument(t *testing.T) {
	out, err := NewPDFRenderer(false).Render(Document{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) == 0 {
		t.Error("Expected non-empty output")
	}
}

func TestLatin1(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"“quoted” – dash…", `"quoted" - dash...`},
		{"café", "caf\xe9"},
		{"emoji 😀", "emoji ?"},
	}
	for _, tt := range tests {
		if got := latin1(tt.in); got != tt.want {
			t.Errorf("latin1(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestFromAnalysis(t *testing.T) {
	ext := model.NewExtraction("Some content here", "Title", []string{"A"}, "raw_text", model.InputText, model.MethodRawText)
	res := &model.AnalysisResult{
		Extraction:            ext,
		Summary:               "Sum.",
		CategoriesAboveCutoff: []string{"political bias"},
	}
	doc := FromAnalysis(res)
	if doc.Title != "Title" || doc.WordCount != 3 || doc.Summary != "Sum." {
		t.Errorf("Unexpected document %+v", doc)
	}
	if len(doc.FlaggedCategories) != 1 {
		t.Errorf("Expected flagged categories carried over, got %v", doc.FlaggedCategories)
	}
}
