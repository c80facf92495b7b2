package model

import (
	"fmt"
	"strings"
)

// InputKind identifies how content entered the system
type InputKind string

const (
	InputURL  InputKind = "url"
	InputText InputKind = "text"
	InputFile InputKind = "file"
)

// Source sentinels for non-URL input
const (
	SourceRawText      = "raw_text"
	SourceUploadPrefix = "upload:"
)

// Extraction method names (which adapter or tier produced the content)
const (
	MethodSocialJSON = "reddit_json"
	MethodDocument   = "pdf_url"
	MethodStatic     = "static"
	MethodRendered   = "rendered"
	MethodRawText    = "raw_text"
	MethodUpload     = "upload"
)

// ExtractionResult is the canonical output of the extraction stage.
// Exactly one of Content or Error is non-empty.
type ExtractionResult struct {
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Authors   []string  `json:"authors"`
	Source    string    `json:"source"`
	InputKind InputKind `json:"input_kind"`
	WordCount int       `json:"word_count"` // len(strings.Fields(Content))
	Method    string    `json:"method"`
	Error     string    `json:"error,omitempty"`
}

// NewExtraction builds a successful result. Empty content is converted to a
// failure so the content/error invariant always holds.
func NewExtraction(content, title string, authors []string, source string, kind InputKind, method string) ExtractionResult {
	if strings.TrimSpace(content) == "" {
		return FailedExtraction(source, kind, method, "Extracted content is empty.")
	}
	if authors == nil {
		authors = []string{}
	}
	return ExtractionResult{
		Content:   content,
		Title:     strings.TrimSpace(title),
		Authors:   authors,
		Source:    source,
		InputKind: kind,
		WordCount: len(strings.Fields(content)),
		Method:    method,
	}
}

// FailedExtraction builds a result carrying only a failure reason
func FailedExtraction(source string, kind InputKind, method, reason string) ExtractionResult {
	if reason == "" {
		reason = "extraction failed"
	}
	return ExtractionResult{
		Authors:   []string{},
		Source:    source,
		InputKind: kind,
		Method:    method,
		Error:     reason,
	}
}

// OK reports whether the extraction produced content
func (r ExtractionResult) OK() bool {
	return r.Error == "" && r.Content != ""
}

// InputError is a client-input fault (empty input, conflicting fields,
// oversized text). It is never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewInputError creates an InputError
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// Page is a fetched HTTP resource
type Page struct {
	URL      string    `json:"url"`
	FinalURL string    `json:"final_url"`
	Body     []byte    `json:"-"`
	Meta     FetchMeta `json:"meta"`
}
