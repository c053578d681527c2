package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyboard/internal/domain"
)

// PollinationsOptions configures the keyless Pollinations.ai generator, a
// development-friendly alternative to Replicate.
type PollinationsOptions struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// PollinationsGenerator fetches images from the Pollinations prompt endpoint,
// which returns the image bytes directly in the response body.
type PollinationsGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewPollinationsGenerator constructs the generator with sane defaults.
func NewPollinationsGenerator(opts PollinationsOptions) *PollinationsGenerator {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "flux"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &PollinationsGenerator{baseURL: baseURL, model: model, httpClient: httpClient}
}

// Generate requests one image for the prompt and returns its bytes.
func (g *PollinationsGenerator) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	width, height := req.Width, req.Height
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	endpoint := fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		g.baseURL, url.PathEscape(req.Prompt), width, height, g.model, req.Seed)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("image: build pollinations request: %w", err)
	}
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image: %w: %v", domain.ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image: %w: pollinations status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image: read image bytes: %w", err)
	}
	// Tiny bodies are error pages, not images.
	if len(data) < 100 {
		return nil, fmt.Errorf("image: %w: response too small (%d bytes)", domain.ErrProviderFailure, len(data))
	}
	return data, nil
}

var _ Generator = (*PollinationsGenerator)(nil)
