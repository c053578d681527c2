package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"storyboard/internal/domain"
)

type analyzeRequest struct {
	Script string `json:"script"`
}

// AnalyzeScript runs the script through scene extraction and returns the full
// scene list, or a single error response; it never produces a partial result.
func (a *App) AnalyzeScript(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		a.error(w, http.StatusBadRequest, "script is required")
		return
	}

	scenes, err := a.Extractor.Extract(r.Context(), req.Script)
	if err != nil {
		a.Logger.Error().Err(err).Msg("script analysis failed")
		switch {
		case errors.Is(err, domain.ErrBadExtraction):
			a.error(w, http.StatusBadGateway, "script analysis returned an unusable scene list")
		case errors.Is(err, domain.ErrMissingCredential):
			a.error(w, http.StatusInternalServerError, "language model credential is missing")
		default:
			a.error(w, http.StatusInternalServerError, "script analysis failed")
		}
		return
	}

	a.json(w, http.StatusOK, map[string]any{"scenes": scenes})
}
