package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/extract"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/source"
	"github.com/rs/zerolog/log"
)

const emptyPostMessage = "Post appears to be empty, deleted, or a link post with no body."

// SocialAdapter reads Reddit posts through the public .json listing
type SocialAdapter struct {
	fetcher Fetcher
	timeout time.Duration
}

// NewSocialAdapter creates a new social-post adapter
func NewSocialAdapter(fetcher Fetcher, timeout time.Duration) *SocialAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SocialAdapter{fetcher: fetcher, timeout: timeout}
}

// Name returns the adapter name
func (a *SocialAdapter) Name() string {
	return "social"
}

// CanHandle reports social-post URLs
func (a *SocialAdapter) CanHandle(kind source.Kind) bool {
	return kind == source.KindSocial
}

// listing is the subset of a Reddit post listing we read
type listing []struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Author   string `json:"author"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Extract fetches <url>.json from old.reddit.com and reads title and body
func (a *SocialAdapter) Extract(ctx context.Context, rawURL string) model.ExtractionResult {
	return safeExtract(rawURL, model.MethodSocialJSON, func() model.ExtractionResult {
		jsonURL, err := JSONURL(rawURL)
		if err != nil {
			return a.fail(rawURL, err)
		}

		page, err := a.fetcher.Fetch(ctx, jsonURL, FetchOptions{Timeout: a.timeout, Accept: "application/json"})
		if err != nil {
			return a.fail(rawURL, err)
		}

		var posts listing
		if err := json.Unmarshal(page.Body, &posts); err != nil {
			return a.fail(rawURL, fmt.Errorf("decode listing: %w", err))
		}
		if len(posts) == 0 || len(posts[0].Data.Children) == 0 {
			return a.fail(rawURL, fmt.Errorf("listing has no post"))
		}

		post := posts[0].Data.Children[0].Data
		title := strings.TrimSpace(post.Title)
		body := strings.TrimSpace(post.Selftext)
		if body == "[deleted]" || body == "[removed]" {
			body = ""
		}

		content := extract.Normalize(title + "\n\n" + body)
		if content == "" {
			return model.FailedExtraction(rawURL, model.InputURL, model.MethodSocialJSON, emptyPostMessage)
		}

		var authors []string
		if post.Author != "" && post.Author != "[deleted]" {
			authors = []string{post.Author}
		}

		log.Debug().Str("url", rawURL).Int("words", extract.WordCount(content)).Msg("social post extracted")
		return model.NewExtraction(content, title, authors, rawURL, model.InputURL, model.MethodSocialJSON)
	})
}

func (a *SocialAdapter) fail(rawURL string, err error) model.ExtractionResult {
	log.Warn().Err(err).Str("url", rawURL).Str("method", model.MethodSocialJSON).Msg("social extraction failed")
	return model.FailedExtraction(rawURL, model.InputURL, model.MethodSocialJSON,
		fmt.Sprintf("Could not extract Reddit post: %v", err))
}

// JSONURL rewrites a post URL to its old.reddit.com .json listing
func JSONURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	u.Host = "old.reddit.com"
	u.Scheme = "https"
	u.Path = strings.TrimSuffix(u.Path, "/") + ".json"
	u.RawPath = ""
	u.Fragment = ""
	return u.String(), nil
}
