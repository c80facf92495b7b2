// Package classify wraps a hosted text-classification model behind a small
// capability interface. The client is created once per process and shared.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/util"
	"github.com/rs/zerolog/log"
)

// Chunking limits for hosted inference
const (
	MaxChunkChars = 2500
	MaxChunks     = 12
	maxRespBytes  = 1 << 20
)

// ErrNotConfigured is returned by NewHTTPClassifier without an endpoint
var ErrNotConfigured = errors.New("classifier endpoint not configured")

// Scores maps normalized labels to a probability in [0,1]
type Scores map[string]float64

// Classifier scores text against a fixed label set
type Classifier interface {
	Classify(ctx context.Context, text string) (Scores, error)
}

// Config holds hosted classifier settings
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// HTTPClassifier calls an inference endpoint that accepts
// {"inputs": [...]} and answers with label/score lists.
type HTTPClassifier struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

type inferenceRequest struct {
	Inputs     []string            `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	TopK       *int `json:"top_k"`
	Truncation bool `json:"truncation"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHTTPClassifier creates the process-wide classifier client
func NewHTTPClassifier(cfg Config) (*HTTPClassifier, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClassifier{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
	}, nil
}

// Classify chunks the text, scores every chunk, and keeps the maximum
// score per label.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Scores, error) {
	chunks := Chunk(text, MaxChunkChars)
	if len(chunks) == 0 {
		return Scores{}, nil
	}

	body, err := json.Marshal(inferenceRequest{
		Inputs:     chunks,
		Parameters: inferenceParameters{Truncation: true},
		Options:    inferenceOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRespBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	batches, err := decodeBatches(raw)
	if err != nil {
		return nil, err
	}

	scores := Scores{}
	for _, batch := range batches {
		for _, item := range batch {
			label := NormalizeLabel(item.Label)
			if label == "" {
				continue
			}
			if item.Score > scores[label] {
				scores[label] = item.Score
			}
		}
	}
	for k, v := range scores {
		scores[k] = math.Round(v*10000) / 10000
	}

	log.Debug().Int("chunks", len(chunks)).Int("labels", len(scores)).Msg("classifier scored text")
	return scores, nil
}

// decodeBatches accepts both [[{label,score}]] and a flat [{label,score}]
func decodeBatches(raw []byte) ([][]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested, nil
	}
	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unmarshal classifier response: %w", err)
	}
	return [][]labelScore{flat}, nil
}

// NormalizeLabel lowercases a label and replaces underscores with spaces
func NormalizeLabel(label string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(label), "_", " "))
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Chunk packs sentences into chunks of at most maxChars, keeping at most
// MaxChunks. A single sentence longer than maxChars becomes its own chunk.
func Chunk(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, strings.TrimSpace(text[last:loc[0]+1]))
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[last:]))
	}

	var chunks []string
	current := ""
	for _, s := range sentences {
		if s == "" {
			continue
		}
		switch {
		case current == "":
			current = s
		case len(current)+len(s)+1 <= maxChars:
			current += " " + s
		default:
			chunks = append(chunks, current)
			current = s
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	if len(chunks) > MaxChunks {
		chunks = chunks[:MaxChunks]
	}
	return chunks
}

// MergeBias overlays classifier scores onto the heuristic bias map. A label
// matches a category when equal to it or to its name without " bias".
// Matched categories take the classifier score; the map stays total over
// the heuristic category set.
func MergeBias(heuristic model.BiasScoreMap, scores Scores) (model.BiasScoreMap, []model.Signal) {
	merged := make(model.BiasScoreMap, len(heuristic))
	for k, v := range heuristic {
		merged[k] = v
	}

	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var signals []model.Signal
	for _, label := range labels {
		category := matchCategory(heuristic, label)
		if category == "" {
			continue
		}
		score := math.Max(0, math.Min(1, scores[label]))
		signals = append(signals, model.Signal{
			Type:        model.SignalClassifierScore,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("Classifier scored %s at %.2f (heuristic %.2f)", category, score, heuristic[category]),
			Data: map[string]interface{}{
				"label":     label,
				"category":  category,
				"score":     score,
				"heuristic": heuristic[category],
			},
		})
		merged[category] = score
	}
	return merged, signals
}

func matchCategory(categories model.BiasScoreMap, label string) string {
	if _, ok := categories[label]; ok {
		return label
	}
	if _, ok := categories[label+" bias"]; ok {
		return label + " bias"
	}
	return ""
}
