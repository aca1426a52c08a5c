package httpapi

import (
	"net/http"
	"time"

	"server/internal/http/handlers"
	"server/internal/infra"
	appmw "server/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface. staticDir, when set, exposes locally
// stored generated assets under /static/.
func NewRouter(app *handlers.App, logger infra.Logger, ratePerMin int, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		appmw.RequestID,
		appmw.Logger(logger),
		appmw.CORS,
		appmw.Locale,
	)
	if ratePerMin > 0 {
		r.Use(appmw.RateLimit(ratePerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/content", func(r chi.Router) {
		r.Post("/generate", app.GenerateContent)
		r.Get("/settings/models", app.Models)
		r.Get("/", app.ListContent)
		r.Get("/{id}", app.GetContent)
		r.Get("/{id}/scene/{sceneNumber}", app.GetScene)
		r.Put("/{id}/scene/{sceneNumber}", app.UpdateScene)
	})

	if staticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
