// Package storyboard holds the wire types shared between the generation
// service and its consumers: the scene shape produced by script analysis, the
// progress event protocol streamed during generation, and a client that
// decodes the stream into per-scene state.
package storyboard

// Scene is one unit of script content mapped to one target image. Scenes are
// produced by the analysis step with contiguous 1-based numbers and are
// immutable once handed to the generation pipeline.
type Scene struct {
	SceneNumber int      `json:"scene_number"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Description string   `json:"description"`
	ImagePrompt string   `json:"image_prompt"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Event type tags, in the order they appear within a run.
const (
	EventInfo       = "info"
	EventProgress   = "progress"
	EventImageSaved = "image_saved"
	EventError      = "error"
	EventComplete   = "complete"
)

// Event is one frame of the generation progress stream. The Type tag decides
// which of the remaining fields are meaningful:
//
//	info:        Message
//	progress:    Current, Total, Scene
//	image_saved: SceneNumber, Path, Message
//	error:       SceneNumber, Message
//	complete:    Message, SuccessCount
//
// Unknown tags must be tolerated by consumers so the protocol can grow.
type Event struct {
	Type         string `json:"type"`
	Message      string `json:"message,omitempty"`
	Current      int    `json:"current,omitempty"`
	Total        int    `json:"total,omitempty"`
	Scene        string `json:"scene,omitempty"`
	SceneNumber  int    `json:"scene_number,omitempty"`
	Path         string `json:"path,omitempty"`
	SuccessCount int    `json:"success_count,omitempty"`
}

// ImageInfo describes one saved image as reported by the listing endpoint.
type ImageInfo struct {
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	SceneNumber int    `json:"scene_number"`
}
