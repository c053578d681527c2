package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"storyboard/internal/pipeline"
	"storyboard/internal/stream"
	"storyboard/pkg/storyboard"
)

type generateRequest struct {
	Scenes []storyboard.Scene `json:"scenes"`
}

// GenerateImages runs the generation pipeline for the posted scenes and
// streams progress events over the response. Everything that can be rejected
// is rejected before the first event: once streaming starts the response
// always ends with a complete event.
func (a *App) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Scenes) == 0 {
		a.error(w, http.StatusBadRequest, "scenes are required")
		return
	}
	for _, scene := range req.Scenes {
		if scene.SceneNumber <= 0 {
			a.error(w, http.StatusBadRequest, "scene numbers must be positive")
			return
		}
		if strings.TrimSpace(scene.ImagePrompt) == "" {
			a.error(w, http.StatusBadRequest, "every scene needs an image prompt")
			return
		}
	}

	provider, ok := a.ImageProviders[a.Config.ImageProvider]
	if !ok || provider == nil {
		a.error(w, http.StatusInternalServerError, "image provider credential is missing")
		return
	}

	width, height := a.Preset.Output.Dimensions()
	runner, err := pipeline.NewRunner(pipeline.Options{
		Provider: provider,
		Store:    a.Store,
		Logger:   a.Logger,
		Image: pipeline.ImageOptions{
			AspectRatio:  a.Preset.Output.AspectRatio,
			OutputFormat: a.Preset.Output.Format,
			Width:        width,
			Height:       height,
		},
		SceneDelay:  a.Config.SceneDelay,
		CallTimeout: a.Config.GenerateTimeout,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("pipeline setup failed")
		a.error(w, http.StatusInternalServerError, "generation pipeline unavailable")
		return
	}

	sw := stream.NewWriter(w)
	// The run is detached from the request context: a consumer that drops
	// mid-run stops receiving events, but the images still get generated.
	if _, err := runner.Run(context.WithoutCancel(r.Context()), req.Scenes, sw.Send); err != nil {
		a.Logger.Error().Err(err).Msg("generation run failed before start")
	}
}
