package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storyboard/internal/domain"
	"storyboard/internal/infra"
)

// ReplicateOptions configures the Replicate text-to-image client.
type ReplicateOptions struct {
	APIToken     string
	Model        string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
}

// ReplicateGenerator performs HTTP calls to the Replicate predictions API and
// downloads the resulting image. The Prefer: wait header asks Replicate to
// block until the prediction settles; slower models fall back to polling.
type ReplicateGenerator struct {
	apiToken     string
	model        string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt           string `json:"prompt"`
	AspectRatio      string `json:"aspect_ratio,omitempty"`
	OutputFormat     string `json:"output_format,omitempty"`
	OutputQuality    int    `json:"output_quality,omitempty"`
	SafetyTolerance  int    `json:"safety_tolerance,omitempty"`
	PromptUpsampling bool   `json:"prompt_upsampling,omitempty"`
	Seed             int    `json:"seed,omitempty"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// NewReplicateGenerator constructs a client with sane defaults and injected
// dependencies. A missing token is an error here so misconfiguration is
// caught before any run starts.
func NewReplicateGenerator(opts ReplicateOptions) (*ReplicateGenerator, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, fmt.Errorf("image: %w: replicate api token", domain.ErrMissingCredential)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "black-forest-labs/flux-1.1-pro"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &ReplicateGenerator{
		apiToken:     strings.TrimSpace(opts.APIToken),
		model:        model,
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// Generate creates a prediction, waits for it to settle, and downloads the
// produced image bytes.
func (g *ReplicateGenerator) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	pred, err := g.createPrediction(ctx, req)
	if err != nil {
		return nil, err
	}
	pred, err = g.waitForPrediction(ctx, pred)
	if err != nil {
		return nil, err
	}

	imageURL, err := outputURL(pred.Output)
	if err != nil {
		return nil, fmt.Errorf("image: %w: %v", domain.ErrProviderFailure, err)
	}
	g.logger.Debug().Str("prediction_id", pred.ID).Str("url", imageURL).Msg("downloading generated image")
	return g.download(ctx, imageURL)
}

func (g *ReplicateGenerator) createPrediction(ctx context.Context, req GenerateRequest) (*prediction, error) {
	quality := req.Quality
	if quality <= 0 {
		quality = 100
	}
	payload := predictionRequest{Input: predictionInput{
		Prompt:           req.Prompt,
		AspectRatio:      req.AspectRatio,
		OutputFormat:     req.OutputFormat,
		OutputQuality:    quality,
		SafetyTolerance:  2,
		PromptUpsampling: true,
		Seed:             req.Seed,
	}}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("image: encode prediction request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s/predictions", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("image: build prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiToken)
	httpReq.Header.Set("Prefer", "wait")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image: %w: %v", domain.ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("image: %w: replicate status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("image: decode prediction: %w", err)
	}
	return &pred, nil
}

func (g *ReplicateGenerator) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			msg := pred.Error
			if msg == "" {
				msg = pred.Status
			}
			return nil, fmt.Errorf("image: %w: prediction %s: %s", domain.ErrProviderFailure, pred.ID, msg)
		}

		pollURL := pred.URLs.Get
		if pollURL == "" {
			pollURL = fmt.Sprintf("%s/predictions/%s", g.baseURL, pred.ID)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("image: %w: %v", domain.ErrProviderFailure, ctx.Err())
		case <-time.After(g.pollInterval):
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return nil, fmt.Errorf("image: build poll request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+g.apiToken)
		resp, err := g.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("image: %w: %v", domain.ErrProviderFailure, err)
		}
		var next prediction
		decodeErr := json.NewDecoder(resp.Body).Decode(&next)
		_ = resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("image: decode poll response: %w", decodeErr)
		}
		pred = &next
	}
}

func (g *ReplicateGenerator) download(ctx context.Context, imageURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("image: build download request: %w", err)
	}
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image: %w: download: %v", domain.ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image: %w: download status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image: read image bytes: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image: %w: empty image body", domain.ErrProviderFailure)
	}
	return data, nil
}

// outputURL extracts the image URL from the prediction output, which the API
// returns as a bare string, an array of strings, or an object with a url
// field depending on the model.
func outputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("prediction has no output")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0] != "" {
		return many[0], nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return obj.URL, nil
	}
	return "", fmt.Errorf("no image url in prediction output")
}

var _ Generator = (*ReplicateGenerator)(nil)
