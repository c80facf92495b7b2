// Package pipeline routes input to an extractor and runs the analyses over
// the extracted text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/classify"
	"github.com/ppiankov/clearview/internal/escalate"
	"github.com/ppiankov/clearview/internal/extract/adapters"
	"github.com/ppiankov/clearview/internal/llm"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/score"
	"github.com/ppiankov/clearview/internal/source"
	"github.com/ppiankov/clearview/internal/summarize"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrExtractionFailed is returned by Analyze for results without content
var ErrExtractionFailed = errors.New("extraction failed")

// Summary methods
const (
	SummaryExtractive = "extractive"
	SummaryAdvisory   = "advisory"
)

// Input is one analysis request: exactly one of URL or Text
type Input struct {
	URL  string
	Text string
}

// Deps are the pipeline's collaborators. Nil Advisor and Classifier run
// the heuristics alone.
type Deps struct {
	Fetcher    adapters.Fetcher
	Renderer   adapters.PageRenderer
	Advisor    escalate.Advisor
	Classifier classify.Classifier
}

// Pipeline orchestrates extraction and analysis
type Pipeline struct {
	registry   *adapters.Registry
	scorer     *score.Scorer
	authority  *source.AuthorityClassifier
	classifier classify.Classifier
	engine     *escalate.Engine
	config     *model.Config
	now        func() time.Time
}

// New creates a pipeline with the given configuration
func New(cfg *model.Config, deps Deps) *Pipeline {
	high, low := cfg.Analysis.High, cfg.Analysis.Low
	bands := escalate.Thresholds{High: high, Low: low}

	return &Pipeline{
		registry:   adapters.NewRegistry(adapters.DepsFromConfig(cfg, deps.Fetcher, deps.Renderer)),
		scorer:     score.NewScorer(),
		authority:  source.NewAuthorityClassifier(cfg.Sources),
		classifier: deps.Classifier,
		engine: escalate.NewEngine(deps.Advisor, escalate.Options{
			Timeout:     cfg.LLM.Timeout,
			Scam:        bands,
			Objectivity: bands,
			Bias:        bands,
		}),
		config: cfg,
		now:    time.Now,
	}
}

// Registry exposes the adapter registry for custom registrations
func (p *Pipeline) Registry() *adapters.Registry {
	return p.registry
}

// Extract turns input into an ExtractionResult. Only input faults are
// returned as errors (*model.InputError); extraction failures are carried
// in the result. Raw text never reaches a network adapter.
func (p *Pipeline) Extract(ctx context.Context, in Input) (model.ExtractionResult, error) {
	rawURL := strings.TrimSpace(in.URL)
	text := in.Text

	switch {
	case rawURL != "" && strings.TrimSpace(text) != "":
		return model.ExtractionResult{}, model.NewInputError("input", "provide either a URL or text, not both")
	case rawURL == "" && strings.TrimSpace(text) == "":
		return model.ExtractionResult{}, model.NewInputError("input", "no URL or text provided")
	}

	if rawURL == "" {
		// Pasted input may itself be a URL
		if source.IsURL(text) {
			rawURL = strings.TrimSpace(text)
		} else {
			if max := p.maxTextLength(); len([]rune(text)) > max {
				return model.ExtractionResult{}, model.NewInputError("text", fmt.Sprintf("text exceeds %d characters", max))
			}
			return adapters.FromText(text), nil
		}
	}

	cleaned := source.CleanURL(rawURL)
	kind := source.Classify(cleaned)
	adapter := p.registry.FindAdapter(kind)

	start := p.now()
	res := adapter.Extract(ctx, cleaned)
	log.Info().
		Str("url", cleaned).
		Str("adapter", adapter.Name()).
		Str("method", res.Method).
		Int("words", res.WordCount).
		Dur("elapsed", p.now().Sub(start)).
		Bool("ok", res.OK()).
		Msg("extraction finished")
	return res, nil
}

func (p *Pipeline) maxTextLength() int {
	if p.config.Analysis.MaxTextLength > 0 {
		return p.config.Analysis.MaxTextLength
	}
	return 50_000
}

// AnalyzeOptions tunes one analysis
type AnalyzeOptions struct {
	SentenceCount      int
	ScamCutoff         float64
	SubjectivityCutoff float64
	BiasCutoff         float64
	SkipAdvisory       bool
}

// DefaultAnalyzeOptions returns the configured defaults
func (p *Pipeline) DefaultAnalyzeOptions() AnalyzeOptions {
	a := p.config.Analysis
	return AnalyzeOptions{
		SentenceCount:      a.SentenceCount,
		ScamCutoff:         a.ScamCutoff,
		SubjectivityCutoff: a.SubjectivityCutoff,
		BiasCutoff:         a.BiasCutoff,
	}
}

// Validate checks cutoffs are probabilities
func (o AnalyzeOptions) Validate() error {
	for name, v := range map[string]float64{
		"scam_cutoff":         o.ScamCutoff,
		"subjectivity_cutoff": o.SubjectivityCutoff,
		"bias_cutoff":         o.BiasCutoff,
	} {
		if v < 0 || v > 1 {
			return model.NewInputError(name, "must be between 0 and 1")
		}
	}
	return nil
}

// Analyze scores and summarizes an extraction, then reconciles the scores
// with the advisory reviewer. Component failures are recorded in Errors;
// only missing content fails the call.
func (p *Pipeline) Analyze(ctx context.Context, ext model.ExtractionResult, opts AnalyzeOptions) (*model.AnalysisResult, error) {
	if !ext.OK() {
		reason := ext.Error
		if reason == "" {
			reason = "no content"
		}
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, reason)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &model.AnalysisResult{
		Extraction:   ext,
		AnalyzedAt:   p.now().UTC(),
		BiasScores:   model.BiasScoreMap{},
		AdvisoryText: map[string]string{},
		Errors:       map[string]string{},
	}

	var (
		scores     score.Result
		extractive string
		scoreErr   error
		summaryErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		scoreErr = guard(func() error {
			scores = p.scorer.Score(ext.Content)
			return nil
		})
		return nil
	})
	g.Go(func() error {
		summaryErr = guard(func() error {
			var err error
			extractive, err = summarize.Extractive(ext.Content, opts.SentenceCount)
			return err
		})
		return nil
	})
	_ = g.Wait()

	if scoreErr != nil {
		log.Error().Err(scoreErr).Msg("scoring failed")
		result.Errors["scorer"] = scoreErr.Error()
		neutralBias, _ := score.BiasScores("")
		scores = score.Result{Subjectivity: score.NeutralSubjectivity, Bias: neutralBias}
	}
	if summaryErr != nil {
		log.Warn().Err(summaryErr).Msg("extractive summary unavailable")
		result.Errors["summarizer"] = summaryErr.Error()
	}

	bias := scores.Bias
	signals := scores.Signals
	if p.classifier != nil {
		merged, classifierSignals, err := p.classifyBias(ctx, ext.Content, bias)
		if err != nil {
			log.Warn().Err(err).Msg("classifier unavailable, using heuristic bias scores")
			result.Errors["classifier"] = err.Error()
			result.Notes = append(result.Notes, model.NoteClassifierUnavailable)
		} else {
			bias = merged
			signals = append(signals, classifierSignals...)
		}
	}

	result.ScamProbability = scores.Scam
	result.SubjectivityProbability = scores.Subjectivity
	result.BiasScores = bias
	result.CategoriesAboveCutoff = bias.AtOrAbove(opts.BiasCutoff)
	if ext.InputKind == model.InputURL {
		if sig, ok := p.authority.Signal(ext.Source); ok {
			signals = append(signals, sig)
		}
	}
	result.Signals = signals

	outcome := escalate.Unavailable("advisory review skipped")
	if !opts.SkipAdvisory {
		outcome = p.engine.Consult(ctx, llm.AdviceRequest{
			Text:                    ext.Content,
			SentenceCount:           summarize.ClampSentences(opts.SentenceCount),
			ScamProbability:         scores.Scam,
			SubjectivityProbability: scores.Subjectivity,
			BiasCategories:          bias.AtOrAbove(llm.BiasMidpoint),
		})
		if outcome.Status == escalate.StatusFailed {
			result.Errors["advisory"] = outcome.Reason
		}
	}

	rec := p.engine.Reconcile(escalate.Scores{
		Scam:               scores.Scam,
		Subjectivity:       scores.Subjectivity,
		Bias:               bias,
		ScamCutoff:         opts.ScamCutoff,
		SubjectivityCutoff: opts.SubjectivityCutoff,
		BiasCutoff:         opts.BiasCutoff,
	}, outcome)
	result.Findings = rec.Findings
	result.AdvisoryText = rec.AdvisoryText
	result.Notes = append(result.Notes, rec.Notes...)

	switch {
	case rec.Summary != "":
		result.Summary = rec.Summary
		result.SummaryMethod = SummaryAdvisory
	case extractive != "":
		result.Summary = extractive
		result.SummaryMethod = SummaryExtractive
	}

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// Run extracts and analyzes in one call. The extraction is returned even
// when analysis is refused.
func (p *Pipeline) Run(ctx context.Context, in Input, opts AnalyzeOptions) (model.ExtractionResult, *model.AnalysisResult, error) {
	if err := opts.Validate(); err != nil {
		return model.ExtractionResult{}, nil, err
	}
	ext, err := p.Extract(ctx, in)
	if err != nil {
		return ext, nil, err
	}
	res, err := p.Analyze(ctx, ext, opts)
	return ext, res, err
}

func (p *Pipeline) classifyBias(ctx context.Context, text string, heuristic model.BiasScoreMap) (_ model.BiasScoreMap, _ []model.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	scores, err := p.classifier.Classify(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	merged, signals := classify.MergeBias(heuristic, scores)
	return merged, signals, nil
}

// guard runs fn and converts a panic into an error
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
