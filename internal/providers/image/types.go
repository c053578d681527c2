// Package image contains the provider adapters that turn one prompt into one
// image. Adapters are deliberately thin: no retry policy lives here, callers
// decide what a failure means.
package image

import "context"

// GenerateRequest describes a normalized request passed to any image provider.
type GenerateRequest struct {
	Prompt       string
	AspectRatio  string
	OutputFormat string
	Quality      int
	Width        int
	Height       int
	Seed         int
}

// Generator is the contract implemented by all image providers. A successful
// call returns the raw image bytes; callers own persistence.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}
