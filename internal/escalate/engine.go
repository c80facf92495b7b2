package escalate

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/clearview/internal/llm"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds one advisory call
const DefaultTimeout = 20 * time.Second

// Advisor is the subset of llm.Provider the engine needs
type Advisor interface {
	Name() string
	Advise(ctx context.Context, req llm.AdviceRequest) (*llm.AdviceResponse, error)
}

// Status tags the result of an advisory consultation
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

// Outcome is the tagged result of Consult: OK carries sections,
// Unavailable and Failed carry a reason.
type Outcome struct {
	Status   Status
	Provider string
	Sections map[model.Section]string
	Reason   string
}

// Unavailable builds an outcome for a missing advisor
func Unavailable(reason string) Outcome {
	return Outcome{Status: StatusUnavailable, Reason: reason}
}

// Failed builds an outcome for an advisor error
func Failed(provider, reason string) Outcome {
	return Outcome{Status: StatusFailed, Provider: provider, Reason: reason}
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Timeout     time.Duration
	Scam        Thresholds
	Objectivity Thresholds
	Bias        Thresholds
}

// Engine consults the advisor and reconciles its sections with the bands
type Engine struct {
	advisor    Advisor
	timeout    time.Duration
	thresholds map[model.Section]Thresholds
}

// NewEngine creates an engine. A nil advisor yields heuristic-only results.
func NewEngine(advisor Advisor, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	orDefault := func(t Thresholds) Thresholds {
		if t == (Thresholds{}) || t.Validate() != nil {
			return DefaultThresholds()
		}
		return t
	}
	return &Engine{
		advisor: advisor,
		timeout: opts.Timeout,
		thresholds: map[model.Section]Thresholds{
			model.SectionScam:        orDefault(opts.Scam),
			model.SectionObjectivity: orDefault(opts.Objectivity),
			model.SectionBias:        orDefault(opts.Bias),
		},
	}
}

// Thresholds returns the thresholds in effect for a section
func (e *Engine) Thresholds(section model.Section) Thresholds {
	if t, ok := e.thresholds[section]; ok {
		return t
	}
	return DefaultThresholds()
}

// Consult calls the advisor under the engine's own deadline. It never
// panics and never returns an error; every failure becomes an Outcome.
func (e *Engine) Consult(ctx context.Context, req llm.AdviceRequest) Outcome {
	if e.advisor == nil {
		return Unavailable("no advisory provider configured")
	}
	name := e.advisor.Name()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		resp *llm.AdviceResponse
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("advisor panic: %v", r)}
			}
		}()
		resp, err := e.advisor.Advise(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		log.Warn().Str("provider", name).Dur("timeout", e.timeout).Msg("advisory call abandoned")
		return Failed(name, fmt.Sprintf("advisory call did not complete: %v", ctx.Err()))
	}

	if res.err != nil {
		log.Warn().Err(res.err).Str("provider", name).Msg("advisory call failed")
		return Failed(name, res.err.Error())
	}
	if res.resp == nil || len(res.resp.Sections) == 0 {
		log.Warn().Str("provider", name).Msg("advisory response had no usable sections")
		return Failed(name, "advisory response had no usable sections")
	}

	log.Debug().Str("provider", name).Int("sections", len(res.resp.Sections)).Int("tokens", res.resp.TokensUsed).Msg("advisory call succeeded")
	return Outcome{Status: StatusOK, Provider: name, Sections: res.resp.Sections}
}

// Scores are the heuristic inputs to Reconcile
type Scores struct {
	Scam         float64
	Subjectivity float64
	Bias         model.BiasScoreMap

	// Cutoffs decide which sections are flagged
	ScamCutoff         float64
	SubjectivityCutoff float64
	BiasCutoff         float64
}

// Reconciled is the engine's contribution to an AnalysisResult
type Reconciled struct {
	Findings     []model.Finding
	AdvisoryText map[string]string
	Notes        []string

	// Summary is the advisory summary, empty when none was returned
	Summary string
}

// Reconcile bands each section and lets advisory text supersede the
// template for flagged sections only.
func (e *Engine) Reconcile(s Scores, out Outcome) Reconciled {
	rec := Reconciled{AdvisoryText: map[string]string{}}

	advised := out.Status == StatusOK
	if advised {
		for section, text := range out.Sections {
			rec.AdvisoryText[section.DisplayName()] = text
		}
		rec.Summary = out.Sections[model.SectionSummary]
	}

	biasHigh := e.Thresholds(model.SectionBias).High
	sections := []struct {
		section model.Section
		p       float64
		flagged bool
	}{
		{model.SectionScam, s.Scam, s.Scam >= s.ScamCutoff},
		{model.SectionObjectivity, s.Subjectivity, s.Subjectivity >= s.SubjectivityCutoff},
		{model.SectionBias, s.Bias.Max(), len(s.Bias.AtOrAbove(s.BiasCutoff)) > 0},
	}

	heuristicOnly := false
	for _, sec := range sections {
		band := e.Thresholds(sec.section).Band(sec.p)
		f := model.Finding{
			Section:     sec.section,
			Probability: sec.p,
			Band:        band,
			Flagged:     sec.flagged,
			Message:     Template(sec.section, band, s.Bias.AtOrAbove(biasHigh)),
			Source:      model.FindingHeuristic,
		}
		if text, ok := out.Sections[sec.section]; advised && ok && sec.flagged {
			f.Message = text
			f.Source = model.FindingAdvisory
		} else {
			heuristicOnly = true
		}
		rec.Findings = append(rec.Findings, f)
	}

	if heuristicOnly {
		rec.Notes = append(rec.Notes, model.NoteHeuristicOnly)
	}
	switch out.Status {
	case StatusUnavailable:
		rec.Notes = append(rec.Notes, model.NoteAdvisoryUnavailable)
	case StatusFailed:
		rec.Notes = append(rec.Notes, model.NoteAdvisoryFailed)
	}
	return rec
}
