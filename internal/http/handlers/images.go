package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storyboard/pkg/storyboard"
	"storyboard/pkg/zip"
)

// ListImages returns every saved image, sorted by filename. The listing is
// derived entirely from the output directory; there is no other state.
func (a *App) ListImages(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Store.List()
	if err != nil {
		a.Logger.Error().Err(err).Msg("listing images failed")
		a.error(w, http.StatusInternalServerError, "failed to list images")
		return
	}
	images := make([]storyboard.ImageInfo, 0, len(entries))
	for _, e := range entries {
		images = append(images, storyboard.ImageInfo{
			Filename:    e.Filename,
			Path:        "/images/" + e.Filename,
			SceneNumber: e.SceneNumber,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"images": images})
}

// ServeImage serves one saved image file by name.
func (a *App) ServeImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	full, err := a.Store.Resolve(filename)
	if err != nil {
		a.error(w, http.StatusNotFound, "image not found")
		return
	}
	http.ServeFile(w, r, full)
}

// DownloadZip streams an archive of every saved image. Compression happens
// entry by entry directly onto the response body.
func (a *App) DownloadZip(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Store.List()
	if err != nil {
		a.Logger.Error().Err(err).Msg("listing images for archive failed")
		a.error(w, http.StatusInternalServerError, "failed to list images")
		return
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "no images to download")
		return
	}

	files := make([]zip.File, 0, len(entries))
	for _, e := range entries {
		files = append(files, zip.File{Name: e.Filename, Path: e.FullPath})
	}

	archiveName := fmt.Sprintf("storyboard-images-%s.zip", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", archiveName))
	w.WriteHeader(http.StatusOK)

	if err := zip.Stream(w, files); err != nil {
		// Headers are gone; all we can do is log.
		a.Logger.Error().Err(err).Msg("archive streaming failed")
	}
	a.Logger.Info().Int("files", len(files)).Msg("archive download served")
}
