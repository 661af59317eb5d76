package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maximegiguere1one/garantiepro-sub004/api/controllers"
	"github.com/maximegiguere1one/garantiepro-sub004/api/middleware"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

// Deps are the services mounted by NewRouter. Redis and Metrics are
// optional.
type Deps struct {
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Engine    controllers.EngineWarmer
	Generator controllers.DocumentGenerator
	Statuses  controllers.StatusLister
	Documents controllers.DocumentReader
	Metrics   prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, controllers.ReadinessDeps{
			DB:     deps.DB,
			Redis:  deps.Redis,
			Engine: deps.Engine,
		}, logg))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/warranties/{warrantyID}/documents", func(r chi.Router) {
		r.Post("/", controllers.GenerateDocuments(deps.Generator, logg))
		r.Get("/status", controllers.DocumentStatuses(deps.Statuses, logg))
		r.Get("/{documentType}", controllers.DownloadDocument(deps.Documents, logg))
	})

	return r
}
