// Package pipeline drives one generation run: scenes in, one provider call
// per scene in strict input order, images persisted as they arrive, and a
// linear progress event stream out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"storyboard/internal/infra"
	"storyboard/internal/providers/image"
	"storyboard/internal/storage"
	"storyboard/pkg/storyboard"
)

// Status is the lifecycle position of one scene inside a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Result records the terminal state of one scene. A result moves through
// pending, generating, and exactly one of complete or error; it never
// regresses.
type Result struct {
	SceneNumber  int
	Status       Status
	ImagePath    string
	ErrorMessage string
}

// Summary is what a full run leaves behind for the caller.
type Summary struct {
	Results      []Result
	SuccessCount int
}

// EmitFunc delivers one progress event to the transport. A returned error
// means the transport is gone; the runner keeps generating but stops
// emitting.
type EmitFunc func(storyboard.Event) error

// ImageOptions are the provider parameters shared by every scene in a run.
type ImageOptions struct {
	AspectRatio  string
	OutputFormat string
	Quality      int
	Width        int
	Height       int
}

// Options wires a Runner.
type Options struct {
	Provider image.Generator
	Store    *storage.ImageStore
	Logger   *infra.Logger
	Image    ImageOptions

	// SceneDelay is an optional pause between provider calls to stay under
	// provider rate limits. It is policy, not correctness.
	SceneDelay time.Duration

	// CallTimeout bounds each individual provider call so one hung request
	// cannot stall the run forever.
	CallTimeout time.Duration
}

// Runner executes generation runs. Each Run call is a fresh, self-contained
// run; the Runner itself holds no per-run state.
type Runner struct {
	provider    image.Generator
	store       *storage.ImageStore
	logger      *infra.Logger
	imageOpts   ImageOptions
	sceneDelay  time.Duration
	callTimeout time.Duration
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Provider == nil {
		return nil, errors.New("pipeline: image provider is required")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline: image store is required")
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Runner{
		provider:    opts.Provider,
		store:       opts.Store,
		logger:      logger,
		imageOpts:   opts.Image,
		sceneDelay:  opts.SceneDelay,
		callTimeout: callTimeout,
	}, nil
}

// Run processes every scene in input order, strictly sequentially, emitting
// the event protocol as it goes:
//
//	info, then per scene (progress, then image_saved or error), then complete.
//
// A failing scene never aborts the run. Run only returns an error for
// pre-loop conditions, before any event has been emitted.
func (r *Runner) Run(ctx context.Context, scenes []storyboard.Scene, emit EmitFunc) (*Summary, error) {
	if len(scenes) == 0 {
		return nil, errors.New("pipeline: no scenes to generate")
	}
	if emit == nil {
		emit = func(storyboard.Event) error { return nil }
	}

	// Once the transport rejects a write the run carries on silently;
	// results still land on disk and in the summary.
	transportGone := false
	send := func(ev storyboard.Event) {
		if transportGone {
			return
		}
		if err := emit(ev); err != nil {
			transportGone = true
			r.logger.Warn().Err(err).Msg("progress transport lost, continuing run")
		}
	}

	total := len(scenes)
	summary := &Summary{Results: make([]Result, total)}
	for i, scene := range scenes {
		summary.Results[i] = Result{SceneNumber: scene.SceneNumber, Status: StatusPending}
	}

	send(storyboard.Event{
		Type:    storyboard.EventInfo,
		Message: fmt.Sprintf("Starting image generation for %d scenes", total),
	})

	for i := range scenes {
		scene := scenes[i]
		result := &summary.Results[i]

		send(storyboard.Event{
			Type:    storyboard.EventProgress,
			Current: i + 1,
			Total:   total,
			Scene:   scene.Description,
		})
		result.Status = StatusGenerating
		r.logger.Info().Int("scene", scene.SceneNumber).Int("total", total).Msg("generating scene image")

		filename, err := r.generateScene(ctx, scene)
		if err != nil {
			// A stale file from an earlier run must not pass for this
			// run's output.
			r.store.Discard(scene.SceneNumber)
			result.Status = StatusError
			result.ErrorMessage = err.Error()
			r.logger.Error().Err(err).Int("scene", scene.SceneNumber).Msg("scene generation failed")
			send(storyboard.Event{
				Type:        storyboard.EventError,
				SceneNumber: scene.SceneNumber,
				Message:     fmt.Sprintf("Scene %d failed: %v", scene.SceneNumber, err),
			})
		} else {
			result.Status = StatusComplete
			result.ImagePath = filename
			summary.SuccessCount++
			send(storyboard.Event{
				Type:        storyboard.EventImageSaved,
				SceneNumber: scene.SceneNumber,
				Path:        filename,
				Message:     fmt.Sprintf("Scene %d saved", scene.SceneNumber),
			})
		}

		if r.sceneDelay > 0 && i < total-1 {
			select {
			case <-ctx.Done():
			case <-time.After(r.sceneDelay):
			}
		}
	}

	send(storyboard.Event{
		Type:         storyboard.EventComplete,
		Message:      fmt.Sprintf("Generated %d of %d images", summary.SuccessCount, total),
		SuccessCount: summary.SuccessCount,
	})
	r.logger.Info().Int("success", summary.SuccessCount).Int("total", total).Msg("generation run finished")
	return summary, nil
}

// generateScene performs the bounded provider call for one scene and persists
// the result. It is the only place a scene can fail.
func (r *Runner) generateScene(ctx context.Context, scene storyboard.Scene) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	data, err := r.provider.Generate(callCtx, image.GenerateRequest{
		Prompt:       scene.ImagePrompt,
		AspectRatio:  r.imageOpts.AspectRatio,
		OutputFormat: r.imageOpts.OutputFormat,
		Quality:      r.imageOpts.Quality,
		Width:        r.imageOpts.Width,
		Height:       r.imageOpts.Height,
		// Deterministic per-scene seed keeps reruns reproducible on
		// providers that honor it.
		Seed: scene.SceneNumber*42 + 7,
	})
	if err != nil {
		return "", err
	}
	return r.store.Save(ctx, scene.SceneNumber, data)
}
