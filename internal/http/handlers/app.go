package handlers

import (
	"encoding/json"
	"net/http"

	"storyboard/internal/extract"
	"storyboard/internal/infra"
	"storyboard/internal/providers/image"
	"storyboard/internal/storage"
)

// App is the handler container: configuration plus the collaborators every
// endpoint needs.
type App struct {
	Config         *infra.Config
	Logger         *infra.Logger
	Extractor      extract.Extractor
	ImageProviders map[string]image.Generator
	Store          *storage.ImageStore
	Preset         extract.StylePreset
}

// NewApp wires the handler container.
func NewApp(cfg *infra.Config, logger *infra.Logger, extractor extract.Extractor, providers map[string]image.Generator, store *storage.ImageStore, preset extract.StylePreset) *App {
	return &App{
		Config:         cfg,
		Logger:         logger,
		Extractor:      extractor,
		ImageProviders: providers,
		Store:          store,
		Preset:         preset,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}
