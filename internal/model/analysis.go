package model

import (
	"sort"
	"time"
)

// AnalysisResult aggregates every analysis run against one extraction
type AnalysisResult struct {
	Extraction ExtractionResult `json:"extraction"`
	AnalyzedAt time.Time        `json:"analyzed_at"`

	Summary       string `json:"summary,omitempty"`
	SummaryMethod string `json:"summary_method,omitempty"` // extractive, advisory

	ScamProbability         float64      `json:"scam_probability"`
	SubjectivityProbability float64      `json:"subjectivity_probability"`
	BiasScores              BiasScoreMap `json:"bias_scores"`
	CategoriesAboveCutoff   []string     `json:"categories_above_threshold"` // sorted, no duplicates

	Findings     []Finding         `json:"findings"`
	AdvisoryText map[string]string `json:"advisory_text"` // section display name -> text
	Signals      []Signal          `json:"signals,omitempty"`

	Notes  []string          `json:"notes,omitempty"`  // degraded-mode annotations
	Errors map[string]string `json:"errors,omitempty"` // component -> local failure
}

// Finding is the banded narrative for one analysis section
type Finding struct {
	Section     Section   `json:"section"`
	Probability float64   `json:"probability"`
	Band        ScoreBand `json:"band"`
	Flagged     bool      `json:"flagged"`
	Message     string    `json:"message"`
	Source      string    `json:"source"` // heuristic, advisory
}

// Section names an analysis dimension
type Section string

const (
	SectionSummary     Section = "summary"
	SectionScam        Section = "scam"
	SectionObjectivity Section = "objectivity"
	SectionBias        Section = "bias"
)

// DisplayName returns the human-readable section title
func (s Section) DisplayName() string {
	switch s {
	case SectionSummary:
		return "Summary"
	case SectionScam:
		return "Scam Analysis"
	case SectionObjectivity:
		return "Objectivity"
	case SectionBias:
		return "Bias"
	}
	return string(s)
}

// ScoreBand is derived from a probability against the HIGH/LOW thresholds
type ScoreBand string

const (
	BandConfidentPositive ScoreBand = "confident_positive"
	BandConfidentNegative ScoreBand = "confident_negative"
	BandIndeterminate     ScoreBand = "indeterminate"
)

// Finding sources
const (
	FindingHeuristic = "heuristic"
	FindingAdvisory  = "advisory"
)

// Note values attached to results produced without an external reviewer
const (
	NoteHeuristicOnly         = "heuristic-only"
	NoteAdvisoryUnavailable   = "advisory-unavailable"
	NoteAdvisoryFailed        = "advisory-failed"
	NoteClassifierUnavailable = "classifier-unavailable"
)

// BiasScoreMap maps every bias category to a score in [0,1]
type BiasScoreMap map[string]float64

// CategoryScore is one entry of a sorted BiasScoreMap
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Sorted returns categories by descending score, ties broken by name
func (m BiasScoreMap) Sorted() []CategoryScore {
	out := make([]CategoryScore, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryScore{Category: k, Score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Max returns the highest category score
func (m BiasScoreMap) Max() float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

// AtOrAbove returns the sorted category names scoring at or above cutoff
func (m BiasScoreMap) AtOrAbove(cutoff float64) []string {
	out := []string{}
	for k, v := range m {
		if v >= cutoff {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	FromCache    bool              `json:"from_cache,omitempty"`
}

// Signal explains one contribution to a heuristic score
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalScamCategory    SignalType = "scam_category"
	SignalShouting        SignalType = "all_caps"
	SignalExclamation     SignalType = "exclamation_density"
	SignalSubjective      SignalType = "subjective_phrases"
	SignalFirstPerson     SignalType = "first_person"
	SignalEmotional       SignalType = "emotional_language"
	SignalObjective       SignalType = "objective_phrases"
	SignalBiasCategory    SignalType = "bias_category"
	SignalClassifierScore SignalType = "classifier_score"
	SignalSourceTier      SignalType = "source_tier"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
