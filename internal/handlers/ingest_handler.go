package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/attribution"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/decoder"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/logging"
	"github.com/rafaesapata/AWS-EVO-sub012/internal/pipeline"
)

// IngestRequest is the inbound delivery body from the log subscription.
type IngestRequest struct {
	EncodedPayload string `json:"encodedPayload"`
}

// IngestHandler receives subscription deliveries and runs the pipeline.
type IngestHandler struct {
	pipeline *pipeline.Pipeline
	logger   *logging.Logger
	ready    func() bool
}

// NewIngestHandler creates the handler. ready reports whether downstream
// stores are reachable; it backs the readiness endpoint.
func NewIngestHandler(p *pipeline.Pipeline, logger *logging.Logger, ready func() bool) *IngestHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if ready == nil {
		ready = func() bool { return true }
	}
	return &IngestHandler{pipeline: p, logger: logger, ready: ready}
}

// HandleIngest processes one batch delivery. The response body is always
// the batch result; the status code signals the upstream retry policy:
// 200 for success, 400 for an undecodable frame, 422 for an unattributable
// batch, 500 for partial failure (safe to retry, writes are idempotent).
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EncodedPayload == "" {
		http.Error(w, "encodedPayload is required", http.StatusBadRequest)
		return
	}

	result, err := h.pipeline.Run(r.Context(), req.EncodedPayload)

	status := http.StatusOK
	switch {
	case err != nil:
		var decodeErr *decoder.DecodeError
		var unattributed *attribution.UnattributedBatchError
		var ambiguous *attribution.AmbiguousTenantError
		switch {
		case errors.As(err, &decodeErr):
			status = http.StatusBadRequest
		case errors.As(err, &unattributed), errors.As(err, &ambiguous):
			status = http.StatusUnprocessableEntity
		default:
			status = http.StatusInternalServerError
		}
	case !result.Success:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, result)
}

// Health is a liveness probe.
func (h *IngestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the service can reach its stores.
func (h *IngestHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
