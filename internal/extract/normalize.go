package extract

import (
	"regexp"
	"strings"
)

var (
	multiSpace   = regexp.MustCompile(` {2,}`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes line endings, whitespace and blank-line runs.
// It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// WordCount returns the whitespace-delimited token count
func WordCount(text string) int {
	return len(strings.Fields(text))
}
