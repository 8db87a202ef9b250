package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/blazewatch/internal/api/alerts"
	"github.com/good-yellow-bee/blazewatch/internal/api/middleware"
	"github.com/good-yellow-bee/blazewatch/internal/api/response"
	"github.com/good-yellow-bee/blazewatch/internal/api/signals"
	"github.com/good-yellow-bee/blazewatch/pkg/config"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	signalHandler := signals.NewHandler(s.monitor, s.config.MaxBodyBytes)
	alertHandler := alerts.NewHandler(s.monitor.Alerts, s.monitor.Dispatcher, s.monitor.Browser, alerts.Options{
		MaxBodyBytes:      s.config.MaxBodyBytes,
		StreamMaxDuration: s.config.StreamMaxDuration,
		HeartbeatInterval: s.config.HeartbeatInterval,
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Ingestion is rate limited per client IP
		ingest := middleware.RateLimitByIP(s.ingestLimiter)

		r.With(ingest).Post("/performance", signalHandler.IngestPerformance)
		r.Get("/performance", signalHandler.Performance)
		r.With(ingest).Post("/events", signalHandler.IngestEvent)

		r.Route("/errors", func(r chi.Router) {
			r.With(ingest).Post("/", signalHandler.IngestError)
			r.Get("/", signalHandler.Errors)
			r.Get("/stats", signalHandler.ErrorStats)
			r.Put("/filter", signalHandler.SetErrorFilter)
			r.Delete("/filter", signalHandler.ClearErrorFilter)
			r.Delete("/{id}", signalHandler.RemoveError)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", signalHandler.Sessions)
			r.Post("/", signalHandler.StartSession)
			r.Delete("/current", signalHandler.EndSession)
		})

		r.Route("/behavior", func(r chi.Router) {
			r.Get("/stats", signalHandler.BehaviorStats)
			r.Get("/heatmap", signalHandler.Heatmap)
			r.Get("/popular", signalHandler.PopularElements)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", alertHandler.ListRules)
			r.Post("/", alertHandler.CreateRule)
			r.Put("/{id}", alertHandler.UpdateRule)
			r.Delete("/{id}", alertHandler.DeleteRule)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", alertHandler.ListNotifications)
			r.Delete("/", alertHandler.ClearNotifications)
			r.Post("/ack", alertHandler.AcknowledgeAll)
			r.Post("/{id}/ack", alertHandler.Acknowledge)
			r.Get("/stream", alertHandler.Stream)
			r.Get("/delivery", alertHandler.Delivery)
		})

		r.Get("/stats", alertHandler.SystemStats)
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, config.GetBuildInfo())
		})

		r.Route("/config", func(r chi.Router) {
			r.Patch("/performance", signalHandler.UpdatePerformanceConfig)
			r.Patch("/errors", signalHandler.UpdateErrorConfig)
			r.Patch("/behavior", signalHandler.UpdateBehaviorConfig)
			r.Get("/alerts", alertHandler.Config)
			r.Patch("/alerts", alertHandler.UpdateConfig)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.Fail(w, http.StatusNotFound, response.CodeNotFound, "no route for "+r.Method+" "+r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.Fail(w, http.StatusMethodNotAllowed, response.CodeMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
}
