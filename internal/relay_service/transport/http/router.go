package http

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Service        RelayService
	Validate       *validator.Validate
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
	Static         fs.FS // browser test console; nil disables it
}

// NewRouter wires the relay API, /health, /metrics and the test console.
func NewRouter(cfg RouterConfig) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(PrometheusMetricsMiddleware)
	r.Use(JSONRecoverer(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(RequestDeadline(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	relayHandler := NewRelayHandler(cfg.Service, cfg.Validate, cfg.Logger)
	r.Route("/api", func(apiRouter chi.Router) {
		relayHandler.RegisterRoutes(apiRouter)
	})

	if cfg.Static != nil {
		r.Handle("/*", staticHandler(cfg.Static))
	}

	return r
}
