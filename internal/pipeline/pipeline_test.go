package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/clearview/internal/classify"
	"github.com/ppiankov/clearview/internal/extract/adapters"
	"github.com/ppiankov/clearview/internal/llm"
	"github.com/ppiankov/clearview/internal/model"
)

type countingFetcher struct {
	pages map[string]string
	calls int
}

func (f *countingFetcher) Fetch(_ context.Context, rawURL string, _ adapters.FetchOptions) (*model.Page, error) {
	f.calls++
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("HTTP 404")
	}
	return &model.Page{URL: rawURL, FinalURL: rawURL, Body: []byte(body)}, nil
}

type fixedRenderer struct {
	markup string
	calls  int
}

func (r *fixedRenderer) Render(context.Context, string) (string, error) {
	r.calls++
	return r.markup, nil
}

type fakeAdvisor struct {
	sections map[model.Section]string
	err      error
	calls    int
}

func (a *fakeAdvisor) Name() string { return "fake" }

func (a *fakeAdvisor) Advise(context.Context, llm.AdviceRequest) (*llm.AdviceResponse, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &llm.AdviceResponse{Sections: a.sections}, nil
}

type fakeClassifier struct {
	scores classify.Scores
	err    error
}

func (c *fakeClassifier) Classify(context.Context, string) (classify.Scores, error) {
	return c.scores, c.err
}

func repeatWords(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func articleMarkup(bodyWords int) string {
	return "<html><head><title>Story</title></head><body>" +
		"<nav>" + repeatWords(150, "menu") + "</nav>" +
		"<article><p>" + repeatWords(bodyWords, "word") + "</p></article></body></html>"
}

const sampleText = "The city council approved the new budget on Tuesday. " +
	"The plan allocates funds to road repairs and public libraries. " +
	"Officials said the changes take effect next month. " +
	"Residents can review the full document on the city website."

const scamText = "URGENT final notice from the IRS! Your account suspended. " +
	"Act now and pay with a gift card or wire transfer immediately! " +
	"Click here to verify your identity and provide your social security number."

func TestExtract_RawTextBypassesAdapters(t *testing.T) {
	fetcher := &countingFetcher{}
	renderer := &fixedRenderer{}
	p := New(model.DefaultConfig(), Deps{Fetcher: fetcher, Renderer: renderer})

	res, err := p.Extract(context.Background(), Input{Text: "Short pasted note with a handful of words."})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Method != model.MethodRawText || res.Source != model.SourceRawText {
		t.Errorf("Expected raw_text method and source, got %s / %s", res.Method, res.Source)
	}
	if fetcher.calls != 0 || renderer.calls != 0 {
		t.Errorf("Expected no network access, got %d fetches and %d renders", fetcher.calls, renderer.calls)
	}
}

func TestExtract_StaticThinFallsBackToRender(t *testing.T) {
	url := "https://example.com/article"
	fetcher := &countingFetcher{pages: map[string]string{url: articleMarkup(30)}}
	renderer := &fixedRenderer{markup: articleMarkup(200)}
	p := New(model.DefaultConfig(), Deps{Fetcher: fetcher, Renderer: renderer})

	res, err := p.Extract(context.Background(), Input{URL: url})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Method != model.MethodRendered {
		t.Errorf("Expected method rendered, got %s", res.Method)
	}
	if res.WordCount != 200 {
		t.Errorf("Expected word_count 200, got %d", res.WordCount)
	}
}

func TestExtract_CleansURLBeforeRouting(t *testing.T) {
	clean := "https://example.com/article?id=7"
	fetcher := &countingFetcher{pages: map[string]string{clean: articleMarkup(200)}}
	p := New(model.DefaultConfig(), Deps{Fetcher: fetcher})

	res, err := p.Extract(context.Background(), Input{URL: "example.com/article?utm_source=x&id=7&fbclid=y"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Expected success, got %q", res.Error)
	}
	if res.Source != clean {
		t.Errorf("Expected source %s, got %s", clean, res.Source)
	}
}

func TestExtract_PastedURLIsFetched(t *testing.T) {
	url := "https://example.com/a"
	fetcher := &countingFetcher{pages: map[string]string{url: articleMarkup(200)}}
	p := New(model.DefaultConfig(), Deps{Fetcher: fetcher})

	res, _ := p.Extract(context.Background(), Input{Text: "  " + url + "  "})
	if res.InputKind != model.InputURL || fetcher.calls != 1 {
		t.Errorf("Expected pasted URL to be fetched, got kind %s with %d fetches", res.InputKind, fetcher.calls)
	}
}

func TestExtract_InputErrors(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Analysis.MaxTextLength = 100
	p := New(cfg, Deps{Fetcher: &countingFetcher{}})

	tests := []struct {
		name string
		in   Input
	}{
		{"empty", Input{}},
		{"whitespace", Input{Text: "   \n "}},
		{"both", Input{URL: "https://example.com", Text: "hello"}},
		{"too long", Input{Text: strings.Repeat("a ", 60)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Extract(context.Background(), tt.in)
			var inputErr *model.InputError
			if !errors.As(err, &inputErr) {
				t.Errorf("Expected InputError, got %v", err)
			}
		})
	}
}

func TestAnalyze_RefusesFailedExtraction(t *testing.T) {
	p := New(model.DefaultConfig(), Deps{})
	failed := model.FailedExtraction("https://example.com", model.InputURL, model.MethodStatic, "HTTP 404")

	_, err := p.Analyze(context.Background(), failed, p.DefaultAnalyzeOptions())
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Expected ErrExtractionFailed, got %v", err)
	}
}

func TestAnalyze_HeuristicOnly(t *testing.T) {
	p := New(model.DefaultConfig(), Deps{})
	ext := adapters.FromText(sampleText)

	res, err := p.Analyze(context.Background(), ext, p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SummaryMethod != SummaryExtractive || res.Summary == "" {
		t.Errorf("Expected extractive summary, got %q (%s)", res.Summary, res.SummaryMethod)
	}
	if len(res.Findings) != 3 {
		t.Errorf("Expected 3 findings, got %d", len(res.Findings))
	}
	if !containsNote(res.Notes, model.NoteHeuristicOnly) || !containsNote(res.Notes, model.NoteAdvisoryUnavailable) {
		t.Errorf("Expected heuristic-only and advisory-unavailable notes, got %v", res.Notes)
	}
	if len(res.BiasScores) != 5 {
		t.Errorf("Expected all 5 bias categories, got %d", len(res.BiasScores))
	}
	if len(res.AdvisoryText) != 0 {
		t.Errorf("Expected no advisory text, got %v", res.AdvisoryText)
	}
	if res.ScamProbability < 0 || res.ScamProbability > 1 || res.SubjectivityProbability < 0 || res.SubjectivityProbability > 1 {
		t.Errorf("Scores out of range: %f %f", res.ScamProbability, res.SubjectivityProbability)
	}
}

func TestAnalyze_AdvisorySupersedesFlaggedSection(t *testing.T) {
	advisor := &fakeAdvisor{sections: map[model.Section]string{
		model.SectionSummary: "A message pressuring the reader to pay.",
		model.SectionScam:    "This looks like a tax scam. Do not pay.",
	}}
	p := New(model.DefaultConfig(), Deps{Advisor: advisor})
	ext := adapters.FromText(scamText)

	opts := p.DefaultAnalyzeOptions()
	opts.ScamCutoff = 0.1
	res, err := p.Analyze(context.Background(), ext, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if advisor.calls != 1 {
		t.Errorf("Expected 1 advisory call, got %d", advisor.calls)
	}
	if res.SummaryMethod != SummaryAdvisory || res.Summary != "A message pressuring the reader to pay." {
		t.Errorf("Expected advisory summary, got %q (%s)", res.Summary, res.SummaryMethod)
	}
	for _, f := range res.Findings {
		if f.Section == model.SectionScam {
			if !f.Flagged || f.Source != model.FindingAdvisory {
				t.Errorf("Expected flagged advisory scam finding, got %+v", f)
			}
		}
	}
}

func TestAnalyze_AdvisoryFailureIsLocal(t *testing.T) {
	advisor := &fakeAdvisor{err: errors.New("quota exceeded")}
	p := New(model.DefaultConfig(), Deps{Advisor: advisor})

	res, err := p.Analyze(context.Background(), adapters.FromText(sampleText), p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !containsNote(res.Notes, model.NoteAdvisoryFailed) {
		t.Errorf("Expected advisory-failed note, got %v", res.Notes)
	}
	if res.Errors["advisory"] == "" {
		t.Error("Expected advisory error recorded")
	}
}

func TestAnalyze_SkipAdvisory(t *testing.T) {
	advisor := &fakeAdvisor{}
	p := New(model.DefaultConfig(), Deps{Advisor: advisor})

	opts := p.DefaultAnalyzeOptions()
	opts.SkipAdvisory = true
	if _, err := p.Analyze(context.Background(), adapters.FromText(sampleText), opts); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if advisor.calls != 0 {
		t.Errorf("Expected advisor not called, got %d", advisor.calls)
	}
}

func TestAnalyze_ClassifierOverridesBias(t *testing.T) {
	classifier := &fakeClassifier{scores: classify.Scores{"political": 0.91}}
	p := New(model.DefaultConfig(), Deps{Classifier: classifier})

	res, err := p.Analyze(context.Background(), adapters.FromText(sampleText), p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.BiasScores["political bias"] != 0.91 {
		t.Errorf("Expected classifier score for political bias, got %f", res.BiasScores["political bias"])
	}
	if len(res.CategoriesAboveCutoff) != 1 || res.CategoriesAboveCutoff[0] != "political bias" {
		t.Errorf("Expected political bias above cutoff, got %v", res.CategoriesAboveCutoff)
	}
}

func TestAnalyze_ClassifierFailureFallsBack(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("model loading")}
	p := New(model.DefaultConfig(), Deps{Classifier: classifier})

	res, err := p.Analyze(context.Background(), adapters.FromText(sampleText), p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !containsNote(res.Notes, model.NoteClassifierUnavailable) {
		t.Errorf("Expected classifier-unavailable note, got %v", res.Notes)
	}
	if len(res.BiasScores) != 5 {
		t.Errorf("Expected heuristic bias map, got %v", res.BiasScores)
	}
}

func TestAnalyze_SummaryFailureIsLocal(t *testing.T) {
	p := New(model.DefaultConfig(), Deps{})

	// No candidate sentence has four words
	res, err := p.Analyze(context.Background(), adapters.FromText("Hi there.\nOk."), p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Summary != "" {
		t.Errorf("Expected no summary, got %q", res.Summary)
	}
	if res.Errors["summarizer"] == "" {
		t.Error("Expected summarizer error recorded")
	}
}

func TestAnalyze_InvalidCutoff(t *testing.T) {
	p := New(model.DefaultConfig(), Deps{})
	opts := p.DefaultAnalyzeOptions()
	opts.BiasCutoff = 1.5

	_, err := p.Analyze(context.Background(), adapters.FromText(sampleText), opts)
	var inputErr *model.InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("Expected InputError, got %v", err)
	}
}

func TestRun_InvalidCutoffSkipsNetwork(t *testing.T) {
	url := "https://example.com/article"
	fetcher := &countingFetcher{pages: map[string]string{url: articleMarkup(200)}}
	renderer := &fixedRenderer{markup: articleMarkup(200)}
	p := New(model.DefaultConfig(), Deps{Fetcher: fetcher, Renderer: renderer})
	opts := p.DefaultAnalyzeOptions()
	opts.ScamCutoff = -0.1

	_, res, err := p.Run(context.Background(), Input{URL: url}, opts)
	var inputErr *model.InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("Expected InputError, got %v", err)
	}
	if res != nil {
		t.Error("Expected no analysis")
	}
	if fetcher.calls != 0 || renderer.calls != 0 {
		t.Errorf("Expected no network access, got %d fetches and %d renders", fetcher.calls, renderer.calls)
	}
}

func TestMarkdownAndRecord(t *testing.T) {
	p := New(model.DefaultConfig(), Deps{})
	res, err := p.Analyze(context.Background(), adapters.FromText(sampleText), p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	md := Markdown(res, true)
	for _, want := range []string{"## Scores", "Scam Analysis", "## Bias Categories", "heuristic-only"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	rec, err := NewRecord(res, []byte("%PDF-"))
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if rec.Kind != model.RecordKindReport || rec.Source != model.SourceRawText || !strings.Contains(rec.Metadata, "scam_probability") {
		t.Errorf("Unexpected record %+v", rec)
	}
}

func containsNote(notes []string, note string) bool {
	for _, n := range notes {
		if n == note {
			return true
		}
	}
	return false
}

func TestAnalyze_SourceTierSignal(t *testing.T) {
	url := "https://www.reuters.com/world/story"
	fetcher := &countingFetcher{pages: map[string]string{url: articleMarkup(200)}}
	p := New(model.DefaultConfig(), Deps{Fetcher: fetcher})

	_, res, err := p.Run(context.Background(), Input{URL: url}, p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	for _, sig := range res.Signals {
		if sig.Type == model.SignalSourceTier {
			found = true
			if sig.Data["tier"] != "secondary" {
				t.Errorf("Expected secondary tier, got %v", sig.Data["tier"])
			}
		}
	}
	if !found {
		t.Error("Expected a source tier signal for a URL input")
	}

	res, err = p.Analyze(context.Background(), adapters.FromText("Plain pasted words for the reader."), p.DefaultAnalyzeOptions())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for _, sig := range res.Signals {
		if sig.Type == model.SignalSourceTier {
			t.Error("Expected no source tier signal for pasted text")
		}
	}
}
