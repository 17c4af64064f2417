package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Daption-ciray/proapp/internal/extractor"
	"github.com/Daption-ciray/proapp/internal/service"
	"github.com/Daption-ciray/proapp/pkg/health"
	"github.com/Daption-ciray/proapp/pkg/middleware"
)

// RequestTimeout bounds every API request.
const RequestTimeout = 30 * time.Second

// Dependencies are the collaborators served by the router.
type Dependencies struct {
	Search      *service.SearchService
	Preferences *service.PreferenceService
	// Extractor resolves chat messages; nil searches the raw message.
	Extractor   extractor.Extractor
	Health      *health.Handler
	CORS        middleware.CORSConfig
	ServiceName string
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(deps.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(chimw.Compress(5))

	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	searchHandler := NewSearchHandler(deps.Search, extractor.NewResilient(deps.Extractor, logger), logger)
	prefHandler := NewPreferenceHandler(deps.Preferences, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(RequestTimeout))

		r.Route("/search", func(r chi.Router) {
			r.Get("/", searchHandler.SearchQuery)
			r.With(ContentTypeJSON).Post("/", searchHandler.Search)
			r.Get("/suggest", searchHandler.Suggest)
		})
		r.With(ContentTypeJSON).Post("/chat/search", searchHandler.ChatSearch)
		r.With(ContentTypeJSON).Post("/products/bulk", searchHandler.Import)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/preferences", prefHandler.Get)
			r.With(ContentTypeJSON).Put("/preferences", prefHandler.Update)
			r.Get("/preferences/analysis", prefHandler.Analyze)
			r.Get("/history", prefHandler.History)
		})
	})

	return r
}
