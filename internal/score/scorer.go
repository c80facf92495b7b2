package score

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/clearview/internal/model"
)

// NeutralSubjectivity is returned for text with no word tokens
const NeutralSubjectivity = 0.5

var wordToken = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Result holds every heuristic score for one text
type Result struct {
	Scam         float64
	Subjectivity float64
	Bias         model.BiasScoreMap
	Signals      []model.Signal
}

// Scorer computes heuristic scam, subjectivity and bias scores.
// It holds no state and is safe for concurrent use.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score runs all three scorers on the text
func (s *Scorer) Score(text string) Result {
	scam, scamSignals := ScamScore(text)
	subj, subjSignals := SubjectivityScore(text)
	bias, biasSignals := BiasScores(text)

	signals := make([]model.Signal, 0, len(scamSignals)+len(subjSignals)+len(biasSignals))
	signals = append(signals, scamSignals...)
	signals = append(signals, subjSignals...)
	signals = append(signals, biasSignals...)

	return Result{
		Scam:         scam,
		Subjectivity: subj,
		Bias:         bias,
		Signals:      signals,
	}
}

// Flagged reports whether a score is at or above the cutoff
func Flagged(score, cutoff float64) bool {
	return score >= cutoff
}

// ScamScore returns the scam likelihood in [0,1]. Empty text scores 0.
func ScamScore(text string) (float64, []model.Signal) {
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	var signals []model.Signal

	total := 0.0
	for _, c := range scamCategories {
		hits := c.phrases.Matches(lower)
		contribution := math.Min(float64(len(hits))/3.0, 1.0) * c.weight
		total += contribution
		if len(hits) > 0 {
			signals = append(signals, model.Signal{
				Type:        model.SignalScamCategory,
				Severity:    severityFor(contribution / c.weight),
				Description: fmt.Sprintf("Scam signal %s: %d phrase(s)", c.name, len(hits)),
				Data: map[string]interface{}{
					"category":     c.name,
					"hits":         len(hits),
					"matched":      hits,
					"weight":       c.weight,
					"contribution": contribution,
					"formula":      "min(hits / 3, 1) * weight",
				},
			})
		}
	}

	if len(words) > 0 {
		caps := 0
		for _, w := range words {
			if utf8.RuneCountInString(w) > 2 && isUpperWord(w) {
				caps++
			}
		}
		ratio := float64(caps) / float64(len(words))
		contribution := math.Min(ratio*5, 1.0) * 0.5
		total += contribution
		if caps > 0 {
			signals = append(signals, model.Signal{
				Type:        model.SignalShouting,
				Severity:    severityFor(contribution / 0.5),
				Description: fmt.Sprintf("ALL-CAPS words: %d of %d", caps, len(words)),
				Data: map[string]interface{}{
					"caps_words":   caps,
					"words":        len(words),
					"ratio":        ratio,
					"contribution": contribution,
					"formula":      "min(caps_ratio * 5, 1) * 0.5",
				},
			})
		}
	}

	exclaims := strings.Count(text, "!")
	if exclaims > 0 {
		density := float64(exclaims) / float64(maxInt(len(words), 1))
		contribution := math.Min(density*10, 1.0) * 0.5
		total += contribution
		signals = append(signals, model.Signal{
			Type:        model.SignalExclamation,
			Severity:    severityFor(contribution / 0.5),
			Description: fmt.Sprintf("Exclamation marks: %d", exclaims),
			Data: map[string]interface{}{
				"count":        exclaims,
				"density":      density,
				"contribution": contribution,
				"formula":      "min(count / words * 10, 1) * 0.5",
			},
		})
	}

	return round4(clamp01(total / (scamTotalWeight + 1.0))), signals
}

// SubjectivityScore returns how opinion-based the text is, in [0,1].
// Text without word tokens returns NeutralSubjectivity.
func SubjectivityScore(text string) (float64, []model.Signal) {
	lower := strings.ToLower(text)
	words := wordToken.FindAllString(lower, -1)
	if len(words) == 0 {
		return NeutralSubjectivity, nil
	}

	subjHits := subjectivePhrases.Matches(lower)
	objHits := objectivePhrases.Matches(lower)

	firstPerson, emotional := 0, 0
	for _, w := range words {
		if firstPersonWords[w] {
			firstPerson++
		}
		if emotionalWords[w] {
			emotional++
		}
	}
	n := float64(len(words))
	fpDensity := float64(firstPerson) / n
	emoDensity := float64(emotional) / n

	subjTerm := math.Min(float64(len(subjHits))/5.0, 1.0) * 0.35
	fpTerm := math.Min(fpDensity*20, 1.0) * 0.30
	emoTerm := math.Min(emoDensity*50, 1.0) * 0.20
	objTerm := (1.0 - math.Min(float64(len(objHits))/5.0, 1.0)) * 0.15

	signals := []model.Signal{
		{
			Type:        model.SignalSubjective,
			Severity:    severityFor(subjTerm / 0.35),
			Description: fmt.Sprintf("Subjective phrases: %d", len(subjHits)),
			Data: map[string]interface{}{
				"hits": len(subjHits), "matched": subjHits, "contribution": subjTerm,
				"formula": "min(hits / 5, 1) * 0.35",
			},
		},
		{
			Type:        model.SignalFirstPerson,
			Severity:    severityFor(fpTerm / 0.30),
			Description: fmt.Sprintf("First-person pronouns: %d of %d words", firstPerson, len(words)),
			Data: map[string]interface{}{
				"count": firstPerson, "density": fpDensity, "contribution": fpTerm,
				"formula": "min(density * 20, 1) * 0.30",
			},
		},
		{
			Type:        model.SignalEmotional,
			Severity:    severityFor(emoTerm / 0.20),
			Description: fmt.Sprintf("Emotionally charged words: %d", emotional),
			Data: map[string]interface{}{
				"count": emotional, "density": emoDensity, "contribution": emoTerm,
				"formula": "min(density * 50, 1) * 0.20",
			},
		},
		{
			Type:        model.SignalObjective,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("Objective phrases: %d", len(objHits)),
			Data: map[string]interface{}{
				"hits": len(objHits), "matched": objHits, "contribution": objTerm,
				"formula": "(1 - min(hits / 5, 1)) * 0.15",
			},
		},
	}

	return round4(clamp01(subjTerm + fpTerm + emoTerm + objTerm)), signals
}

// BiasScores returns a score for every bias category. Short texts are
// scaled down by min(words/200, 1) so they are not judged on a few hits.
func BiasScores(text string) (model.BiasScoreMap, []model.Signal) {
	lower := strings.ToLower(text)
	wordCount := maxInt(len(wordToken.FindAllString(lower, -1)), 1)
	lengthFactor := math.Min(float64(wordCount)/200.0, 1.0)

	scores := make(model.BiasScoreMap, len(biasCategories))
	var signals []model.Signal
	for _, c := range biasCategories {
		hits := c.phrases.Matches(lower)
		score := round4(clamp01(math.Min(float64(len(hits))/biasSaturation, 1.0) * lengthFactor))
		scores[c.name] = score
		if len(hits) > 0 {
			signals = append(signals, model.Signal{
				Type:        model.SignalBiasCategory,
				Severity:    severityFor(score),
				Description: fmt.Sprintf("Bias signal %s: %d phrase(s)", c.name, len(hits)),
				Data: map[string]interface{}{
					"category":      c.name,
					"hits":          len(hits),
					"matched":       hits,
					"length_factor": lengthFactor,
					"score":         score,
					"formula":       "min(hits / 3, 1) * min(words / 200, 1)",
				},
			})
		}
	}
	return scores, signals
}

// isUpperWord matches str.isupper: at least one cased letter, none lowercase
func isUpperWord(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func severityFor(fraction float64) model.SignalSeverity {
	switch {
	case fraction >= 0.7:
		return model.SeverityCritical
	case fraction >= 0.3:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
