package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/source"
)

type stubFetcher struct {
	pages map[string][]byte
	err   error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string, _ FetchOptions) (*model.Page, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("HTTP 404")
	}
	return &model.Page{URL: rawURL, FinalURL: rawURL, Body: body}, nil
}

type stubRenderer struct {
	markup string
	err    error
	panics bool
	calls  int
}

func (r *stubRenderer) Render(ctx context.Context, _ string) (string, error) {
	r.calls++
	if r.panics {
		panic("browser crashed")
	}
	return r.markup, r.err
}

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

// page builds markup whose article holds bodyWords words, padded with
// navigation so the raw markup clears the quality gate
func page(bodyWords int) string {
	return "<html><head><title>Test Page</title></head><body>" +
		"<nav>" + words(150, "menu") + "</nav>" +
		"<article><p>" + words(bodyWords, "content") + "</p></article>" +
		"</body></html>"
}

func TestGenericStaticSufficient(t *testing.T) {
	url := "https://example.com/story"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte(page(200))}}
	renderer := &stubRenderer{markup: page(400)}
	a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})

	res := a.Extract(context.Background(), url)
	if !res.OK() {
		t.Fatalf("Expected success, got error %q", res.Error)
	}
	if res.Method != model.MethodStatic {
		t.Errorf("Expected method static, got %s", res.Method)
	}
	if res.WordCount != 200 {
		t.Errorf("Expected 200 words, got %d", res.WordCount)
	}
	if renderer.calls != 0 {
		t.Errorf("Expected renderer not to be called, got %d calls", renderer.calls)
	}
	if res.Title != "Test Page" {
		t.Errorf("Expected title 'Test Page', got %q", res.Title)
	}
}

func TestGenericFallsBackToRender(t *testing.T) {
	url := "https://example.com/spa"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte(page(30))}}
	renderer := &stubRenderer{markup: page(200)}
	a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})

	res := a.Extract(context.Background(), url)
	if !res.OK() {
		t.Fatalf("Expected success, got error %q", res.Error)
	}
	if res.Method != model.MethodRendered {
		t.Errorf("Expected method rendered, got %s", res.Method)
	}
	if res.WordCount != 200 {
		t.Errorf("Expected 200 words, got %d", res.WordCount)
	}
}

func TestGenericKeepsStaticWhenRenderIsNotLonger(t *testing.T) {
	url := "https://example.com/thin"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte(page(100))}}
	renderer := &stubRenderer{markup: page(100)}
	a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})

	res := a.Extract(context.Background(), url)
	if res.Method != model.MethodStatic {
		t.Errorf("Expected static to win a tie, got %s", res.Method)
	}
	if renderer.calls != 1 {
		t.Errorf("Expected one render attempt, got %d", renderer.calls)
	}
}

func TestGenericRenderFailureKeepsStatic(t *testing.T) {
	url := "https://example.com/thin"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte(page(80))}}

	for name, renderer := range map[string]*stubRenderer{
		"error": {err: context.DeadlineExceeded},
		"panic": {panics: true},
	} {
		t.Run(name, func(t *testing.T) {
			a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})
			res := a.Extract(context.Background(), url)
			if !res.OK() || res.Method != model.MethodStatic {
				t.Errorf("Expected static success, got method %s error %q", res.Method, res.Error)
			}
		})
	}
}

func TestGenericStaticErrorRenders(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	renderer := &stubRenderer{markup: page(120)}
	a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})

	res := a.Extract(context.Background(), "https://example.com/x")
	if res.Method != model.MethodRendered || !res.OK() {
		t.Errorf("Expected rendered success, got method %s error %q", res.Method, res.Error)
	}
}

func TestGenericBelowFloorFails(t *testing.T) {
	url := "https://example.com/empty"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte(page(20))}}
	a := NewGenericAdapter(Deps{Fetcher: fetcher})

	res := a.Extract(context.Background(), url)
	if res.OK() {
		t.Fatal("Expected failure below the content floor")
	}
	if res.Error != noContentMessage {
		t.Errorf("Expected floor message, got %q", res.Error)
	}
	if res.Content != "" {
		t.Errorf("Expected empty content, got %q", res.Content)
	}
}

func TestGenericPaywallDomainSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{}
	renderer := &stubRenderer{markup: page(500)}
	a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})

	res := a.Extract(context.Background(), "https://www.nytimes.com/2024/01/01/story.html")
	if res.OK() {
		t.Fatal("Expected paywall rejection")
	}
	if len(fetcher.calls) != 0 || renderer.calls != 0 {
		t.Errorf("Expected no fetch or render, got %d fetches and %d renders", len(fetcher.calls), renderer.calls)
	}
}

func TestGenericGateRejectsWithoutRender(t *testing.T) {
	url := "https://example.com/members"
	markup := "<html><body><p>Subscribe to continue reading this article.</p>" + words(200, "x") + "</body></html>"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte(markup)}}
	renderer := &stubRenderer{markup: page(500)}
	a := NewGenericAdapter(Deps{Fetcher: fetcher, Renderer: renderer})

	res := a.Extract(context.Background(), url)
	if res.OK() {
		t.Fatal("Expected gate rejection")
	}
	if renderer.calls != 0 {
		t.Errorf("Expected gated page not to be rendered, got %d renders", renderer.calls)
	}
}

func TestSocialExtract(t *testing.T) {
	post := "https://www.reddit.com/r/golang/comments/abc123/some_title/"
	listing := `[{"data":{"children":[{"data":{"title":"Some title","selftext":"Body   text here.","author":"gopher"}}]}}]`
	fetcher := &stubFetcher{pages: map[string][]byte{
		"https://old.reddit.com/r/golang/comments/abc123/some_title.json": []byte(listing),
	}}
	a := NewSocialAdapter(fetcher, time.Second)

	res := a.Extract(context.Background(), post)
	if !res.OK() {
		t.Fatalf("Expected success, got error %q", res.Error)
	}
	if res.Content != "Some title\n\nBody text here." {
		t.Errorf("Unexpected content %q", res.Content)
	}
	if len(res.Authors) != 1 || res.Authors[0] != "gopher" {
		t.Errorf("Expected author gopher, got %v", res.Authors)
	}
	if res.Method != model.MethodSocialJSON {
		t.Errorf("Expected method %s, got %s", model.MethodSocialJSON, res.Method)
	}
}

func TestSocialDeletedBodyUsesTitle(t *testing.T) {
	post := "https://reddit.com/r/x/comments/1/t"
	listing := `[{"data":{"children":[{"data":{"title":"Only title","selftext":"[removed]","author":"[deleted]"}}]}}]`
	fetcher := &stubFetcher{pages: map[string][]byte{"https://old.reddit.com/r/x/comments/1/t.json": []byte(listing)}}

	res := NewSocialAdapter(fetcher, 0).Extract(context.Background(), post)
	if res.Content != "Only title" {
		t.Errorf("Expected title-only content, got %q", res.Content)
	}
	if len(res.Authors) != 0 {
		t.Errorf("Expected no authors, got %v", res.Authors)
	}
}

func TestSocialFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("HTTP 429")}
	res := NewSocialAdapter(fetcher, 0).Extract(context.Background(), "https://reddit.com/r/x/comments/1/t")
	if res.OK() {
		t.Fatal("Expected failure")
	}
	if !strings.HasPrefix(res.Error, "Could not extract Reddit post") {
		t.Errorf("Unexpected error %q", res.Error)
	}
}

func makePDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		doc.AddPage()
		doc.Cell(0, 10, line)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("Failed to build PDF: %v", err)
	}
	return buf.Bytes()
}

func TestDocumentExtract(t *testing.T) {
	url := "https://example.com/paper.pdf"
	fetcher := &stubFetcher{pages: map[string][]byte{
		url: makePDF(t, "Findings on coastal erosion", "Second page text"),
	}}

	res := NewDocumentAdapter(fetcher, 0, 0).Extract(context.Background(), url)
	if !res.OK() {
		t.Fatalf("Expected success, got error %q", res.Error)
	}
	if !strings.Contains(res.Content, "coastal erosion") || !strings.Contains(res.Content, "Second page") {
		t.Errorf("Expected both pages in content, got %q", res.Content)
	}
	if res.Method != model.MethodDocument {
		t.Errorf("Expected method %s, got %s", model.MethodDocument, res.Method)
	}
}

func TestDocumentCorrupt(t *testing.T) {
	url := "https://example.com/broken.pdf"
	fetcher := &stubFetcher{pages: map[string][]byte{url: []byte("not a pdf")}}

	res := NewDocumentAdapter(fetcher, 0, 0).Extract(context.Background(), url)
	if res.OK() {
		t.Fatal("Expected failure for corrupt PDF")
	}
	if !strings.HasPrefix(res.Error, "Could not download or extract PDF") {
		t.Errorf("Unexpected error %q", res.Error)
	}
}

func TestDocumentTitle(t *testing.T) {
	content := "short\nhttp://example.com/a-long-url\nTHIS IS A VERY LONG ALL CAPS BANNER THAT SHOULD BE SKIPPED OK\nA Reasonable Title\nbody"
	if got := DocumentTitle(content); got != "A Reasonable Title" {
		t.Errorf("Expected 'A Reasonable Title', got %q", got)
	}
}

func TestRegistryRouting(t *testing.T) {
	r := NewRegistry(Deps{Fetcher: &stubFetcher{}})

	tests := []struct {
		kind source.Kind
		want string
	}{
		{source.KindSocial, "social"},
		{source.KindDocument, "document"},
		{source.KindGeneric, "generic"},
	}
	for _, tt := range tests {
		if got := r.FindAdapter(tt.kind).Name(); got != tt.want {
			t.Errorf("FindAdapter(%s) = %s, expected %s", tt.kind, got, tt.want)
		}
	}
}

func TestFromText(t *testing.T) {
	res := FromText("  Hello\r\n\r\n\r\nworld  ")
	if res.Content != "Hello\n\nworld" {
		t.Errorf("Unexpected content %q", res.Content)
	}
	if res.Source != model.SourceRawText || res.Method != model.MethodRawText {
		t.Errorf("Unexpected source/method %s/%s", res.Source, res.Method)
	}
}

func TestFromUpload(t *testing.T) {
	res, err := FromUpload("notes.md", "", []byte("# Heading\n\nSome notes."), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Source != "upload:notes.md" {
		t.Errorf("Expected source upload:notes.md, got %s", res.Source)
	}

	res, err = FromUpload("page.html", "text/html", []byte("<p>Fish &amp; chips</p><script>x()</script>"), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Content != "Fish & chips" {
		t.Errorf("Expected tags stripped, got %q", res.Content)
	}

	res, err = FromUpload("README", "text/plain; charset=utf-8", []byte("Plain notes without an extension."), 0)
	if err != nil {
		t.Fatalf("Expected text type to admit a file without extension, got %v", err)
	}
	if res.Content != "Plain notes without an extension." {
		t.Errorf("Unexpected content %q", res.Content)
	}
}

func TestFromUploadRejects(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		max         int64
	}{
		{"binary type", "image.png", "application/octet-stream", []byte("x"), 0},
		{"text type on executable", "payload.exe", "text/plain", []byte("MZ plain words"), 0},
		{"no extension binary type", "README", "application/octet-stream", []byte("words"), 0},
		{"too large", "a.txt", "application/octet-stream", []byte("0123456789"), 5},
		{"invalid utf8", "a.txt", "application/octet-stream", []byte{0xff, 0xfe, 0xfd}, 0},
		{"empty", "a.txt", "application/octet-stream", []byte("   \n  "), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromUpload(tt.filename, tt.contentType, tt.data, tt.max)
			var inputErr *model.InputError
			if !errors.As(err, &inputErr) {
				t.Errorf("Expected InputError, got %v", err)
			}
		})
	}
}
