// Package render lays out analysis reports as PDF documents.
package render

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/ppiankov/clearview/internal/model"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	margin         = 20.0
	textWidth      = 170.0 // A4 width minus margins
	wordsPerMinute = 225
)

// Document is everything a report shows
type Document struct {
	Title             string
	Authors           []string
	Content           string
	Source            string
	WordCount         int
	Method            string
	Summary           string
	Findings          []model.Finding
	FlaggedCategories []string
	AdvisoryText      map[string]string
	Notes             []string
}

// DocumentRenderer turns a Document into file bytes
type DocumentRenderer interface {
	Render(doc Document) ([]byte, error)
}

// FromAnalysis builds a Document from an analysis result
func FromAnalysis(res *model.AnalysisResult) Document {
	ext := res.Extraction
	return Document{
		Title:             ext.Title,
		Authors:           ext.Authors,
		Content:           ext.Content,
		Source:            ext.Source,
		WordCount:         ext.WordCount,
		Method:            ext.Method,
		Summary:           res.Summary,
		Findings:          res.Findings,
		FlaggedCategories: res.CategoriesAboveCutoff,
		AdvisoryText:      res.AdvisoryText,
		Notes:             res.Notes,
	}
}

// PDFRenderer renders Documents with the core Helvetica font
type PDFRenderer struct {
	footer bool
}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer(includeFooter bool) *PDFRenderer {
	return &PDFRenderer{footer: includeFooter}
}

// ReadingTime formats the estimated reading time, at least one minute
func ReadingTime(words int) string {
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// Render lays out the document. A layout panic is returned as an error.
func (r *PDFRenderer) Render(doc Document) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("render pdf: %v", rec)
		}
	}()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	if r.footer {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-14)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.SetTextColor(170, 170, 170)
			pdf.CellFormat(0, 10, fmt.Sprintf("Clearview | Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
		})
	}
	pdf.AddPage()

	title := doc.Title
	if title == "" {
		title = "Untitled"
	}
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(15, 15, 15)
	pdf.MultiCell(textWidth, 10, latin1(title), "", "L", false)
	pdf.Ln(2)

	authors := "Unknown author"
	if len(doc.Authors) > 0 {
		authors = strings.Join(doc.Authors, ", ")
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(textWidth, 6, latin1(fmt.Sprintf("By %s  |  %s", authors, ReadingTime(doc.WordCount))), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	divider(pdf)

	if doc.Summary != "" {
		heading(pdf, "TLDR")
		body(pdf, doc.Summary)
	}

	for _, f := range doc.Findings {
		heading(pdf, f.Section.DisplayName())
		red, green, blue := bandColor(f.Band)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(red, green, blue)
		label := fmt.Sprintf("Score: %.0f/100", f.Probability*100)
		if f.Flagged {
			label += "  (flagged)"
		}
		pdf.CellFormat(textWidth, 6, label, "", 1, "L", false, 0, "")
		body(pdf, f.Message)
		if f.Section == model.SectionBias && len(doc.FlaggedCategories) > 0 {
			body(pdf, "Categories: "+strings.Join(doc.FlaggedCategories, ", "))
		}
	}

	if text := doc.AdvisoryText[model.SectionSummary.DisplayName()]; text != "" && text != doc.Summary {
		heading(pdf, "Reviewer summary")
		body(pdf, text)
	}

	divider(pdf)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(30, 30, 30)
	pdf.MultiCell(textWidth, 6, latin1(doc.Content), "", "L", false)
	pdf.Ln(6)
	divider(pdf)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(150, 150, 150)
	parts := []string{fmt.Sprintf("Words: %d", doc.WordCount)}
	if doc.Source != "" {
		parts = append(parts, "Source: "+doc.Source)
	}
	if doc.Method != "" {
		parts = append(parts, "Method: "+doc.Method)
	}
	if len(doc.Notes) > 0 {
		notes := append([]string(nil), doc.Notes...)
		sort.Strings(notes)
		parts = append(parts, "Notes: "+strings.Join(notes, ", "))
	}
	pdf.MultiCell(textWidth, 5, latin1(strings.Join(parts, "  |  ")), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(15, 15, 15)
	pdf.CellFormat(textWidth, 7, latin1(text), "", 1, "L", false, 0, "")
}

func body(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.MultiCell(textWidth, 5, latin1(text), "", "L", false)
	pdf.Ln(4)
}

func divider(pdf *gofpdf.Fpdf) {
	pdf.SetDrawColor(200, 200, 200)
	y := pdf.GetY()
	pdf.Line(margin, y, 210-margin, y)
	pdf.Ln(6)
}

func bandColor(band model.ScoreBand) (int, int, int) {
	switch band {
	case model.BandConfidentPositive:
		return 200, 30, 30
	case model.BandIndeterminate:
		return 210, 120, 0
	}
	return 34, 139, 34
}

// Typographic characters outside latin-1 that have a close ASCII form
var typography = strings.NewReplacer(
	"‘", "'", "’", "'", "“", `"`, "”", `"`,
	"\u2013", "-", "\u2014", "-", "\u2026", "...", "\u2022", "*",
	"\u00a0", " ",
)

// latin1 converts UTF-8 to the single-byte encoding of the core PDF fonts.
// Characters with no latin-1 form become "?".
func latin1(s string) string {
	s = typography.Replace(s)
	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).String(s)
	if err != nil {
		buf := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xff {
				r = '?'
			}
			buf = append(buf, byte(r))
		}
		return string(buf)
	}
	return strings.ReplaceAll(out, "\x1a", "?")
}
