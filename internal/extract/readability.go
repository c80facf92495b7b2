package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Article is the readable part of an HTML page
type Article struct {
	Title   string
	Authors []string
	Text    string // normalized
}

// Elements that never carry article prose
const boilerplateSelector = "script, style, noscript, iframe, svg, canvas, template, nav, footer, header, aside, form, " +
	".sidebar, #sidebar, .ad, .ads, .advertisement, .popup, .modal, .cookie-banner, .newsletter, .share, .related"

// Candidate containers for the main body, most specific first
var mainSelectors = []string{
	"article",
	"[itemprop='articleBody']",
	".article-body",
	".entry-content",
	".post-content",
	".post-body",
	"main",
	"[role='main']",
	"#content",
	".content",
}

const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre"

// Readable extracts title, authors and main body text from HTML markup
func Readable(markup string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	article := &Article{
		Title:   extractTitle(doc),
		Authors: extractAuthors(doc),
	}

	doc.Find(boilerplateSelector).Remove()

	// Densest container across all selectors; ties go to the more specific
	text, words := "", 0
	for _, selector := range mainSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			candidate := blockText(s)
			if n := WordCount(candidate); n > words {
				text, words = candidate, n
			}
		})
	}

	if text == "" {
		text = blockText(doc.Find("body"))
	}

	// Pages that keep prose in bare divs have no block elements at all
	if text == "" {
		if body := doc.Find("body"); len(body.Nodes) > 0 {
			text = visibleText(body.Nodes[0])
		}
	}

	article.Text = Normalize(text)
	return article, nil
}

// blockText joins the text of block elements, skipping blocks nested in other blocks
func blockText(s *goquery.Selection) string {
	var buf strings.Builder
	s.Find(blockSelector).Each(func(_ int, item *goquery.Selection) {
		if item.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(item.Text()), " ")
		if text == "" {
			return
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	})
	return strings.TrimSpace(buf.String())
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractAuthors(doc *goquery.Document) []string {
	authors := []string{}
	seen := make(map[string]bool)

	add := func(name string) {
		name = strings.Join(strings.Fields(name), " ")
		name = strings.TrimPrefix(name, "By ")
		name = strings.TrimPrefix(name, "by ")
		if name == "" || len(name) > 100 || strings.HasPrefix(name, "http") {
			return
		}
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			authors = append(authors, name)
		}
	}

	doc.Find("meta[name='author'], meta[property='article:author'], meta[name='byl']").Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			for _, part := range strings.Split(content, ",") {
				add(part)
			}
		}
	})

	if len(authors) == 0 {
		doc.Find("[rel='author'], [itemprop='author'], .byline-name, .author-name").Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}

	return authors
}

// visibleText collects text nodes, skipping non-rendered elements
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			case "div", "section", "br", "td", "tr":
				buf.WriteString("\n")
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
