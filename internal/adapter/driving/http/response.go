package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CodeResponse is the JSON representation of one account's current code.
type CodeResponse struct {
	Label            string `json:"label"`
	Issuer           string `json:"issuer,omitempty"`
	Code             string `json:"code"`
	WindowStart      string `json:"window_start"`
	WindowEnd        string `json:"window_end"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

// StatusResponse is the JSON representation of the orchestrator status.
type StatusResponse struct {
	Phase  string `json:"phase"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// RefreshResponse acknowledges an accepted refresh request.
type RefreshResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// toCodeResponse converts a domain CodeSnapshot to its JSON representation.
func toCodeResponse(snap model.CodeSnapshot) CodeResponse {
	return CodeResponse{
		Label:            snap.Account.Label,
		Issuer:           snap.Account.Issuer,
		Code:             snap.Code,
		WindowStart:      snap.WindowStart.UTC().Format(time.RFC3339),
		WindowEnd:        snap.WindowEnd.UTC().Format(time.RFC3339),
		SecondsRemaining: snap.SecondsRemaining(time.Now()),
	}
}

// toStatusResponse converts a domain OrchestratorStatus to its JSON representation.
func toStatusResponse(status model.OrchestratorStatus) StatusResponse {
	return StatusResponse{
		Phase:  string(status.Phase),
		State:  string(status.State),
		Reason: status.Reason,
	}
}
