package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
)

// stubProvider is a canned CodeProvider.
type stubProvider struct {
	snapshots []model.CodeSnapshot
	status    model.OrchestratorStatus
	refreshes int
}

func (s *stubProvider) Snapshots() []model.CodeSnapshot { return s.snapshots }
func (s *stubProvider) RequestManualRefresh() { s.refreshes++ }
func (s *stubProvider) Status() model.OrchestratorStatus { return s.status }

func newTestServer(provider *stubProvider) http.Handler {
	h := NewHandler(provider, slog.Default())
	return NewServeMux(h, slog.Default())
}

func TestListCodes(t *testing.T) {
	windowStart := time.Now().Truncate(30 * time.Second)
	provider := &stubProvider{
		snapshots: []model.CodeSnapshot{
			{
				Account:     model.Account{Label: "Work VPN", Issuer: "Example Corp", Secret: []byte("duo-test-secret")},
				Code:        "403746",
				WindowStart: windowStart,
				WindowEnd:   windowStart.Add(30 * time.Second),
			},
		},
		status: model.OrchestratorStatus{Phase: model.PhaseIdle},
	}
	srv := newTestServer(provider)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/codes", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []CodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Work VPN", resp[0].Label)
	assert.Equal(t, "Example Corp", resp[0].Issuer)
	assert.Equal(t, "403746", resp[0].Code)
	assert.NotEmpty(t, resp[0].WindowStart)

	// The raw secret must never appear in the API output.
	assert.NotContains(t, rec.Body.String(), "duo-test-secret")
}

func TestListCodes_Empty(t *testing.T) {
	srv := newTestServer(&stubProvider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/codes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name   string
		status model.OrchestratorStatus
		want   StatusResponse
	}{
		{
			name:   "idle",
			status: model.OrchestratorStatus{Phase: model.PhaseIdle, State: model.SessionIdle},
			want:   StatusResponse{Phase: "idle", State: "idle"},
		},
		{
			name:   "running",
			status: model.OrchestratorStatus{Phase: model.PhaseRunning, State: model.SessionWaitingForPopulation},
			want:   StatusResponse{Phase: "running", State: "waiting_for_population"},
		},
		{
			name:   "failed with reason",
			status: model.OrchestratorStatus{Phase: model.PhaseFailed, State: model.SessionFailed, Reason: "credential store unavailable"},
			want:   StatusResponse{Phase: "failed", State: "failed", Reason: "credential store unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubProvider{status: tt.status})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var resp StatusResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp)
		})
	}
}

func TestRequestRefresh(t *testing.T) {
	provider := &stubProvider{}
	srv := newTestServer(provider)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, provider.refreshes)
}

func TestRequestRefresh_WrongMethod(t *testing.T) {
	srv := newTestServer(&stubProvider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/refresh", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubProvider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
