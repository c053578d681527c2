package storyboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoImages indicates the server has nothing to bundle for download.
var ErrNoImages = errors.New("storyboard: no images available")

// Client talks to the storyboard service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the service at baseURL. A nil httpClient
// gets a default without an overall timeout, because the generation stream
// stays open for the whole run.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type analyzeRequest struct {
	Script string `json:"script"`
}

type analyzeResponse struct {
	Scenes []Scene `json:"scenes"`
}

type generateRequest struct {
	Scenes []Scene `json:"scenes"`
}

type listResponse struct {
	Images []ImageInfo `json:"images"`
}

type apiError struct {
	Error string `json:"error"`
}

// AnalyzeScript submits a script and returns the extracted scenes.
func (c *Client) AnalyzeScript(ctx context.Context, script string) ([]Scene, error) {
	body, err := json.Marshal(analyzeRequest{Script: script})
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, "/analyze-script", body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	return out.Scenes, nil
}

// GenerateImages starts a generation run and invokes onEvent for every frame
// of the progress stream, in emission order, until the stream ends. A non-2xx
// response means the run failed before emitting anything.
func (c *Client) GenerateImages(ctx context.Context, scenes []Scene, onEvent func(Event)) error {
	body, err := json.Marshal(generateRequest{Scenes: scenes})
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, "/generate-images", body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}
	dec := NewDecoder(resp.Body)
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event stream: %w", err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

// GenerateBoard runs GenerateImages and folds the stream onto a Board,
// returning the final per-scene state.
func (c *Client) GenerateBoard(ctx context.Context, scenes []Scene) (*Board, error) {
	board := NewBoard(scenes)
	if err := c.GenerateImages(ctx, scenes, board.Apply); err != nil {
		return nil, err
	}
	return board, nil
}

// ListImages fetches the saved-image listing.
func (c *Client) ListImages(ctx context.Context) ([]ImageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/images", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode image list: %w", err)
	}
	return out.Images, nil
}

// DownloadArchive streams the ZIP bundle of all saved images into w. It
// returns ErrNoImages when the server has nothing to bundle.
func (c *Client) DownloadArchive(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download-zip", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNoImages
	}
	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download archive: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) decodeError(resp *http.Response) error {
	var apiErr apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("storyboard: %s (status %d)", apiErr.Error, resp.StatusCode)
	}
	return fmt.Errorf("storyboard: unexpected status %d", resp.StatusCode)
}
