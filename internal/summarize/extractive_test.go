package summarize

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractive_DocumentOrder(t *testing.T) {
	sentences := []string{
		"Apples grow near rivers quickly.",
		"Zebras roam wide open plains.",
		"Bakers knead dough before sunrise.",
		"Cyclists climb steep mountain passes.",
		"Researchers tracked zebras across savannas.",
		"Drivers honk during morning traffic.",
		"Engineers design bridges using steel.",
		"Farmers harvest wheat every autumn.",
		"Photographers love zebras striped coats.",
		"Gardeners prune roses each spring.",
	}
	text := strings.Join(sentences, " ")

	got, err := Extractive(text, 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := sentences[1] + " " + sentences[4] + " " + sentences[8]
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestExtractive_AppendsPeriod(t *testing.T) {
	text := "First line without punctuation here\nSecond line also has no end mark"

	got, err := Extractive(text, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := "First line without punctuation here. Second line also has no end mark."
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestExtractive_QuotedBoundary(t *testing.T) {
	text := `He said "we will win the match." The team then trained for weeks.`

	got, err := Extractive(text, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.Contains(got, "said") && strings.Contains(got, "trained") {
		t.Errorf("Expected a single sentence, got %q", got)
	}
}

func TestExtractive_NoCandidates(t *testing.T) {
	_, err := Extractive("Too short. Also short.", 3)
	if !errors.Is(err, ErrNoSentences) {
		t.Errorf("Expected ErrNoSentences, got %v", err)
	}

	_, err = Extractive("   ", 3)
	if !errors.Is(err, ErrNoSentences) {
		t.Errorf("Expected ErrNoSentences for blank text, got %v", err)
	}
}

func TestExtractive_NoVocabulary(t *testing.T) {
	_, err := Extractive("it is what it is and that is all.", 3)
	if !errors.Is(err, ErrNoVocabulary) {
		t.Errorf("Expected ErrNoVocabulary, got %v", err)
	}
}

func TestExtractive_FewerSentencesThanRequested(t *testing.T) {
	text := "Only one reasonable sentence lives here."

	got, err := Extractive(text, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != text {
		t.Errorf("Expected %q, got %q", text, got)
	}
}

func TestClampSentences(t *testing.T) {
	tests := map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 20: 20, 99: 20}
	for in, want := range tests {
		if got := ClampSentences(in); got != want {
			t.Errorf("ClampSentences(%d) = %d, expected %d", in, got, want)
		}
	}
}
