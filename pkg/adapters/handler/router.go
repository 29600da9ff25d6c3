package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(logger logrus.FieldLogger, links ports.LinkService, clicks ports.ClickService, analytics ports.AnalyticsService) http.Handler {
	h := NewHTTPHandler(links, clicks, analytics, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})

	mux.HandleFunc("POST /api/v1/links", h.Create)
	mux.HandleFunc("GET /api/v1/links", h.List)
	mux.HandleFunc("GET /api/v1/links/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/links/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/links/{id}/analytics/summary", h.Summary)
	mux.HandleFunc("GET /api/v1/links/{id}/analytics/daily", h.Daily)
	mux.HandleFunc("GET /api/v1/links/{id}/analytics/browsers", h.Browsers)

	mux.HandleFunc("GET /{slug}", h.Redirect)

	var handler http.Handler = mux
	handler = middleware.Recoverer(handler)
	handler = RequestLogger(logger)(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)
	return handler
}
