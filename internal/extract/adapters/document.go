package adapters

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/ppiankov/clearview/internal/extract"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/source"
	"github.com/rs/zerolog/log"
)

const noTextLayerMessage = "PDF contains no extractable text. It may be a scanned image PDF."

// DocumentAdapter extracts the text layer of PDF documents
type DocumentAdapter struct {
	fetcher  Fetcher
	timeout  time.Duration
	maxBytes int64
}

// NewDocumentAdapter creates a new document adapter
func NewDocumentAdapter(fetcher Fetcher, timeout time.Duration, maxBytes int64) *DocumentAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DocumentAdapter{fetcher: fetcher, timeout: timeout, maxBytes: maxBytes}
}

// Name returns the adapter name
func (a *DocumentAdapter) Name() string {
	return "document"
}

// CanHandle reports document URLs
func (a *DocumentAdapter) CanHandle(kind source.Kind) bool {
	return kind == source.KindDocument
}

// Extract downloads the PDF and joins its pages' text in page order
func (a *DocumentAdapter) Extract(ctx context.Context, rawURL string) model.ExtractionResult {
	return safeExtract(rawURL, model.MethodDocument, func() model.ExtractionResult {
		page, err := a.fetcher.Fetch(ctx, rawURL, FetchOptions{
			Timeout:  a.timeout,
			Accept:   "application/pdf,*/*;q=0.5",
			MaxBytes: a.maxBytes,
		})
		if err != nil {
			return a.fail(rawURL, err)
		}

		text, pages, err := DocumentText(page.Body)
		if err != nil {
			return a.fail(rawURL, err)
		}

		content := extract.Normalize(text)
		if content == "" {
			return model.FailedExtraction(rawURL, model.InputURL, model.MethodDocument, noTextLayerMessage)
		}

		log.Debug().Str("url", rawURL).Int("pages", pages).Int("words", extract.WordCount(content)).Msg("document extracted")
		return model.NewExtraction(content, DocumentTitle(content), nil, rawURL, model.InputURL, model.MethodDocument)
	})
}

func (a *DocumentAdapter) fail(rawURL string, err error) model.ExtractionResult {
	log.Warn().Err(err).Str("url", rawURL).Str("method", model.MethodDocument).Msg("document extraction failed")
	return model.FailedExtraction(rawURL, model.InputURL, model.MethodDocument,
		fmt.Sprintf("Could not download or extract PDF: %v", err))
}

// DocumentText returns each page's plain text joined by newlines, and the
// page count. Pages whose text cannot be read are skipped.
func DocumentText(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open PDF: %w", err)
	}

	pageCount := reader.NumPage()
	parts := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("skipping unreadable PDF page")
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), pageCount, nil
}

// DocumentTitle picks the first substantial line that is not a URL or a
// long all-caps banner
func DocumentTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 10 || len(line) >= 200 || strings.Contains(line, "http") {
			continue
		}
		if len(line) >= 50 && strings.ToUpper(line) == line && strings.ToLower(line) != line {
			continue
		}
		return line
	}
	return ""
}
