package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storyboard/internal/http/handlers"
	"storyboard/internal/middleware"
)

// NewRouter assembles the HTTP surface of the service.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	if app.Logger != nil {
		r.Use(middleware.Logger(*app.Logger))
	}
	if app.Config != nil && len(app.Config.CORSAllowedOrigins) > 0 {
		r.Use(middleware.CORS(app.Config.CORSAllowedOrigins))
	}

	r.Get("/healthz", app.Health)

	r.Post("/analyze-script", app.AnalyzeScript)
	r.Post("/generate-images", app.GenerateImages)

	r.Route("/images", func(r chi.Router) {
		r.Get("/", app.ListImages)
		r.Get("/{filename}", app.ServeImage)
	})

	r.Get("/download-zip", app.DownloadZip)

	return r
}
