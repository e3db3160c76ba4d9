package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/handlers"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/middleware"
)

// NewRouter constructs a ServeMux with the ingestion API routes registered.
func NewRouter(h *handlers.IngestHandler) http.Handler {
	mux := http.NewServeMux()

	// Subscription delivery endpoint
	mux.HandleFunc("/api/waf/ingest", h.HandleIngest)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
