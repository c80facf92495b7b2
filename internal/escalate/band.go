// Package escalate turns heuristic probabilities into banded findings and
// reconciles them with an optional external advisory review.
package escalate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// Default band thresholds
const (
	DefaultHigh = 0.70
	DefaultLow  = 0.20
)

// Thresholds bound the confident bands for one section
type Thresholds struct {
	High float64 `yaml:"high" mapstructure:"high"`
	Low  float64 `yaml:"low" mapstructure:"low"`
}

// DefaultThresholds returns HIGH=0.70, LOW=0.20
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHigh, Low: DefaultLow}
}

// Validate requires 0 <= Low < High <= 1
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 || t.Low >= t.High {
		return fmt.Errorf("invalid thresholds: low=%.2f high=%.2f (need 0 <= low < high <= 1)", t.Low, t.High)
	}
	return nil
}

// Band selects the narrative band for p
func (t Thresholds) Band(p float64) model.ScoreBand {
	switch {
	case p >= t.High:
		return model.BandConfidentPositive
	case p <= t.Low:
		return model.BandConfidentNegative
	default:
		return model.BandIndeterminate
	}
}

// Template returns the fixed message for a section band. For the bias
// section, categories lists the names at or above the high threshold.
func Template(section model.Section, band model.ScoreBand, categories []string) string {
	switch section {
	case model.SectionScam:
		switch band {
		case model.BandConfidentPositive:
			return "This content shows clear signs of a scam attempt. " +
				"Do not click links, share personal information, or make payments " +
				"without verifying the source independently."
		case model.BandConfidentNegative:
			return "No significant scam signals were detected in this content."
		}
		return "No confident conclusion could be reached about the scam risk of this content. " +
			"Treat it with caution and verify before acting."

	case model.SectionObjectivity:
		switch band {
		case model.BandConfidentPositive:
			return "This text shows clear signs of being opinion-based rather than factual. " +
				"Consider consulting additional sources for a balanced view."
		case model.BandConfidentNegative:
			return "This text appears largely objective and fact-based."
		}
		return "No confident conclusion could be reached about the objectivity of this content. " +
			"Seek multiple perspectives before drawing conclusions."

	case model.SectionBias:
		switch band {
		case model.BandConfidentPositive:
			return fmt.Sprintf("Clear bias detected: %s. "+
				"This content may present information in a one-sided way, so seek additional sources.",
				strings.Join(categories, ", "))
		case model.BandConfidentNegative:
			return "No significant bias patterns were detected in this content."
		}
		return "No confident conclusion could be reached about the level of bias in this content. " +
			"Seek additional perspectives before forming conclusions."
	}
	return ""
}
