package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"storyboard/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiBody(t *testing.T, sceneJSON string) io.ReadCloser {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": sceneJSON}},
			},
		}},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal gemini body: %v", err)
	}
	return io.NopCloser(strings.NewReader(string(data)))
}

func sceneJSON(count int) string {
	var b strings.Builder
	b.WriteString("[")
	for i := 1; i <= count; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"scene_number":%d,"description":"scene %d","image_prompt":"A warm and realistic photo of scene %d","keywords":["k"]}`, i, i, i)
	}
	b.WriteString("]")
	return b.String()
}

func newTestExtractor(t *testing.T, sceneCount int, rt roundTripFunc) *GeminiExtractor {
	t.Helper()
	ex, err := NewGeminiExtractor(GeminiOptions{
		APIKey:     "dummy",
		SceneCount: sceneCount,
		Preset:     DefaultPreset(),
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewGeminiExtractor returned error: %v", err)
	}
	return ex
}

func TestGeminiExtractorParsesFencedJSON(t *testing.T) {
	fenced := "```json\n" + sceneJSON(3) + "\n```"
	ex := newTestExtractor(t, 3, func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("x-goog-api-key"); got != "dummy" {
			t.Fatalf("api key header = %q, want %q", got, "dummy")
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(t, fenced)}, nil
	})

	scenes, err := ex.Extract(context.Background(), "a long enough script")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("len(scenes) = %d, want 3", len(scenes))
	}
	if scenes[2].SceneNumber != 3 {
		t.Fatalf("scenes[2].SceneNumber = %d, want 3", scenes[2].SceneNumber)
	}
}

func TestGeminiExtractorRejectsWrongSceneCount(t *testing.T) {
	ex := newTestExtractor(t, 10, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(t, sceneJSON(9))}, nil
	})

	_, err := ex.Extract(context.Background(), "script")
	if !errors.Is(err, domain.ErrBadExtraction) {
		t.Fatalf("err = %v, want ErrBadExtraction", err)
	}
}

func TestGeminiExtractorRejectsNonContiguousNumbers(t *testing.T) {
	bad := `[{"scene_number":1,"description":"a","image_prompt":"p"},{"scene_number":3,"description":"b","image_prompt":"p"}]`
	ex := newTestExtractor(t, 2, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(t, bad)}, nil
	})

	_, err := ex.Extract(context.Background(), "script")
	if !errors.Is(err, domain.ErrBadExtraction) {
		t.Fatalf("err = %v, want ErrBadExtraction", err)
	}
}

func TestGeminiExtractorRejectsMalformedModelOutput(t *testing.T) {
	ex := newTestExtractor(t, 2, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(t, "not json at all")}, nil
	})

	_, err := ex.Extract(context.Background(), "script")
	if !errors.Is(err, domain.ErrBadExtraction) {
		t.Fatalf("err = %v, want ErrBadExtraction", err)
	}
}

func TestGeminiExtractorSurfacesHTTPFailure(t *testing.T) {
	ex := newTestExtractor(t, 2, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"quota"}}`)),
		}, nil
	})

	_, err := ex.Extract(context.Background(), "script")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want status 429 error", err)
	}
}

func TestGeminiExtractorRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiExtractor(GeminiOptions{})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}

func TestGeminiExtractorRejectsEmptyScript(t *testing.T) {
	ex := newTestExtractor(t, 2, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no HTTP call expected for empty script")
		return nil, errors.New("unreachable")
	})
	if _, err := ex.Extract(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty script")
	}
}
