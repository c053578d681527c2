// Package extract turns a raw video script into an ordered list of scenes
// with image generation prompts, using the Gemini API as the language model.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyboard/internal/domain"
	"storyboard/pkg/storyboard"
)

// Extractor is the contract the HTTP layer depends on for script analysis.
type Extractor interface {
	Extract(ctx context.Context, script string) ([]storyboard.Scene, error)
}

const geminiDefaultTimeout = 45 * time.Second

// GeminiOptions configures the Gemini-backed extractor.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	SceneCount int
	Preset     StylePreset
	HTTPClient *http.Client
}

// GeminiExtractor calls the Gemini generateContent REST endpoint and decodes
// the JSON scene list out of the model's response.
type GeminiExtractor struct {
	apiKey     string
	model      string
	baseURL    string
	sceneCount int
	preset     StylePreset
	client     *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiExtractor constructs the extractor with sane defaults.
func NewGeminiExtractor(opts GeminiOptions) (*GeminiExtractor, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("extract: %w: gemini api key", domain.ErrMissingCredential)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	sceneCount := opts.SceneCount
	if sceneCount <= 0 {
		sceneCount = 10
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiExtractor{
		apiKey:     opts.APIKey,
		model:      model,
		baseURL:    baseURL,
		sceneCount: sceneCount,
		preset:     opts.Preset,
		client:     client,
	}, nil
}

// Extract analyzes the script and returns exactly the configured number of
// scenes, validated for contiguous numbering. Any shape violation from the
// model is reported as domain.ErrBadExtraction.
func (g *GeminiExtractor) Extract(ctx context.Context, script string) ([]storyboard.Scene, error) {
	if strings.TrimSpace(script) == "" {
		return nil, errors.New("extract: script is empty")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildAnalysisPrompt(script, g.sceneCount, g.preset)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.5,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("extract: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("extract: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extract: call gemini: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extract: gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("extract: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("extract: %w: empty candidates", domain.ErrBadExtraction)
	}

	text := stripCodeFences(out.Candidates[0].Content.Parts[0].Text)
	var scenes []storyboard.Scene
	if err := json.Unmarshal([]byte(text), &scenes); err != nil {
		return nil, fmt.Errorf("extract: %w: %v", domain.ErrBadExtraction, err)
	}
	if err := validateScenes(scenes, g.sceneCount); err != nil {
		return nil, err
	}
	return scenes, nil
}

// stripCodeFences removes markdown ```json fences the model sometimes wraps
// around its JSON despite the response mime type.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// validateScenes checks the count, the contiguous 1-based numbering, and that
// every scene carries a usable prompt.
func validateScenes(scenes []storyboard.Scene, want int) error {
	if len(scenes) != want {
		return fmt.Errorf("extract: %w: got %d scenes, want %d", domain.ErrBadExtraction, len(scenes), want)
	}
	for i, scene := range scenes {
		if scene.SceneNumber != i+1 {
			return fmt.Errorf("extract: %w: scene %d numbered %d", domain.ErrBadExtraction, i+1, scene.SceneNumber)
		}
		if strings.TrimSpace(scene.ImagePrompt) == "" {
			return fmt.Errorf("extract: %w: scene %d has no image prompt", domain.ErrBadExtraction, scene.SceneNumber)
		}
	}
	return nil
}

var _ Extractor = (*GeminiExtractor)(nil)
