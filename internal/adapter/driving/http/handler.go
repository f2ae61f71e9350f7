// Package httphandler is the HTTP driving adapter serving the local JSON
// API consumed by presentation frontends (menubar scripts, curl).
package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
)

// CodeProvider is the scheduler surface the API needs: current snapshots,
// manual refresh, and orchestrator status.
type CodeProvider interface {
	Snapshots() []model.CodeSnapshot
	RequestManualRefresh()
	Status() model.OrchestratorStatus
}

// Handler serves the REST API.
type Handler struct {
	provider CodeProvider
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(provider CodeProvider, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/codes", h.ListCodes)
	mux.HandleFunc("GET /api/v1/status", h.GetStatus)
	mux.HandleFunc("POST /api/v1/refresh", h.RequestRefresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListCodes returns the current code snapshot per account in store order.
// Secrets never leave the process; only derived codes are exposed.
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	snapshots := h.provider.Snapshots()

	resp := make([]CodeResponse, 0, len(snapshots))
	for _, snap := range snapshots {
		resp = append(resp, toCodeResponse(snap))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetStatus returns the orchestrator's current phase.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.provider.Status()))
}

// RequestRefresh triggers a new automation session. The request is accepted
// and processed asynchronously; it is a no-op when a session is already
// active.
func (h *Handler) RequestRefresh(w http.ResponseWriter, r *http.Request) {
	h.provider.RequestManualRefresh()
	writeJSON(w, http.StatusAccepted, RefreshResponse{Status: "refresh requested"})
}

// Health is a liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
