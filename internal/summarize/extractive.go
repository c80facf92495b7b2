// Package summarize builds order-preserving extractive summaries.
package summarize

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/clearview/internal/score"
)

// Sentence count bounds
const (
	DefaultSentences = 5
	MinSentences     = 1
	MaxSentences     = 20
	minSentenceWords = 4
)

var (
	// ErrNoSentences is returned when no candidate has enough words
	ErrNoSentences = errors.New("no sentence candidates")

	// ErrNoVocabulary is returned when every word is a stop word
	ErrNoVocabulary = errors.New("empty word-frequency table")
)

var (
	lineBreaks   = regexp.MustCompile(`\n+`)
	terminalMark = regexp.MustCompile(`[.!?]["']?\s*$`)
	lowerWord    = regexp.MustCompile(`\b[a-z]+\b`)
)

type candidate struct {
	index int
	text  string
	score float64
}

// ClampSentences bounds a requested sentence count to [1,20]
func ClampSentences(n int) int {
	if n < MinSentences {
		return MinSentences
	}
	if n > MaxSentences {
		return MaxSentences
	}
	return n
}

// Extractive returns the n highest-scoring sentences in document order
func Extractive(text string, n int) (string, error) {
	n = ClampSentences(n)

	candidates := splitCandidates(text)
	if len(candidates) == 0 {
		return "", ErrNoSentences
	}

	freq := make(map[string]int)
	maxFreq := 0
	for _, w := range lowerWord.FindAllString(strings.ToLower(text), -1) {
		if score.StopWords[w] {
			continue
		}
		freq[w]++
		if freq[w] > maxFreq {
			maxFreq = freq[w]
		}
	}
	if maxFreq == 0 {
		return "", ErrNoVocabulary
	}

	for i := range candidates {
		for _, w := range lowerWord.FindAllString(strings.ToLower(candidates[i].text), -1) {
			candidates[i].score += float64(freq[w]) / float64(maxFreq)
		}
	}

	ranked := make([]candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	selected := ranked[:n]

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].index < selected[j].index
	})

	parts := make([]string, len(selected))
	for i, c := range selected {
		parts[i] = c.text
	}
	return strings.Join(parts, " "), nil
}

// splitCandidates splits on line breaks, then on terminal punctuation followed
// by whitespace and a capital letter or quote. Short and duplicate sentences
// are dropped; sentences without terminal punctuation get a period.
func splitCandidates(text string) []candidate {
	var out []candidate
	seen := make(map[string]bool)

	for _, line := range lineBreaks.Split(strings.TrimSpace(text), -1) {
		for _, s := range splitSentences(line) {
			s = strings.TrimSpace(s)
			if len(strings.Fields(s)) < minSentenceWords {
				continue
			}
			if !terminalMark.MatchString(s) {
				s += "."
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, candidate{index: len(out), text: s})
		}
	}
	return out
}

func splitSentences(line string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i
		if end < len(line) && (line[end] == '"' || line[end] == '\'') {
			end++
		}

		j := end
		for j < len(line) {
			ws, wsize := utf8.DecodeRuneInString(line[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsize
		}
		if j == end || j >= len(line) {
			continue
		}

		next, _ := utf8.DecodeRuneInString(line[j:])
		if unicode.IsUpper(next) || next == '"' || next == '\'' {
			sentences = append(sentences, line[start:end])
			start = j
			i = j
		}
	}

	if start < len(line) {
		sentences = append(sentences, line[start:])
	}
	return sentences
}
