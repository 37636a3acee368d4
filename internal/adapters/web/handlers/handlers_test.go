package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/skyward-ops/droneops/internal/adapters/correlation"
	"github.com/skyward-ops/droneops/internal/adapters/storage"
	"github.com/skyward-ops/droneops/internal/core/services/events"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
	"github.com/skyward-ops/droneops/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerService(t *testing.T) *ops.Service {
	t.Helper()

	store, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	return ops.NewServiceWithClock(
		store,
		events.NewBusWithClock(clock),
		policy.NewEngineWithClock(clock),
		correlation.NewDeviceCacheWithClock(clock),
		correlation.NewTemporalCorrelator(),
		geo.NewEstimator(),
		clock,
	)
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path, body string, vars map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestHandleStatus(t *testing.T) {
	h := NewSessionHandler(newHandlerService(t))

	rec, body := doJSON(t, h.HandleStatus, http.MethodGet, "/drone-ops/status", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Nil(t, body["active_session"])
	policySnapshot := body["policy"].(map[string]any)
	assert.Equal(t, false, policySnapshot["armed"])
	assert.Contains(t, body, "counts")
}

func TestHandleIngestValidation(t *testing.T) {
	h := NewSessionHandler(newHandlerService(t))

	rec, body := doJSON(t, h.HandleIngest, http.MethodPost, "/drone-ops/ingest", `{"mode":"wifi"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "mode and event are required", body["message"])
}

func TestIncidentCreateAndGet(t *testing.T) {
	service := newHandlerService(t)
	h := NewIncidentHandler(service)

	rec, body := doJSON(t, h.HandleCreate, http.MethodPost, "/drone-ops/incidents",
		`{"title":"Perimeter breach","severity":"high"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	incident := body["incident"].(map[string]any)
	assert.Equal(t, "Perimeter breach", incident["title"])
	assert.Equal(t, "open", incident["status"])

	rec, body = doJSON(t, h.HandleGet, http.MethodGet, "/drone-ops/incidents/1", "", map[string]string{"id": "1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])

	rec, body = doJSON(t, h.HandleGet, http.MethodGet, "/drone-ops/incidents/99", "", map[string]string{"id": "99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestIncidentCreateEmptyTitle(t *testing.T) {
	h := NewIncidentHandler(newHandlerService(t))

	rec, body := doJSON(t, h.HandleCreate, http.MethodPost, "/drone-ops/incidents", `{"title":"  "}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestActionExecuteErrorMapping(t *testing.T) {
	service := newHandlerService(t)
	incidents := NewIncidentHandler(service)
	actions := NewActionHandler(service)

	rec, _ := doJSON(t, incidents.HandleCreate, http.MethodPost, "/drone-ops/incidents",
		`{"title":"Threat","severity":"critical"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, actions.HandleRequest, http.MethodPost, "/drone-ops/actions/request",
		`{"incident_id":1,"action_type":"jam_uplink"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	request := body["request"].(map[string]any)
	assert.Equal(t, "pending", request["status"])
	assert.Equal(t, float64(2), request["required_approvals"])

	// Disarmed execution maps to 403.
	rec, body = doJSON(t, actions.HandleExecute, http.MethodPost, "/drone-ops/actions/execute/1", "", map[string]string{"id": "1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "error", body["status"])

	// Unknown request maps to 404.
	rec, _ = doJSON(t, actions.HandleApprove, http.MethodPost, "/drone-ops/actions/approve/42",
		`{"decision":"approved"}`, map[string]string{"id": "42"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Invalid verdicts are rejected before the service is consulted.
	rec, body = doJSON(t, actions.HandleApprove, http.MethodPost, "/drone-ops/actions/approve/1",
		`{"decision":"maybe"}`, map[string]string{"id": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "decision must be approved or rejected", body["message"])
}

func TestArmRequiresReason(t *testing.T) {
	h := NewActionHandler(newHandlerService(t))

	rec, body := doJSON(t, h.HandleArm, http.MethodPost, "/drone-ops/actions/arm", `{"incident_id":1}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason is required", body["message"])
}

func TestArmDurationCoercion(t *testing.T) {
	h := NewActionHandler(newHandlerService(t))
	armedUntil := func(body map[string]any) time.Time {
		t.Helper()
		raw, ok := body["policy"].(map[string]any)["armed_until"].(string)
		require.True(t, ok)
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		require.NoError(t, err)
		return parsed
	}
	start := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

	// Non-numeric durations arm with the default window instead of failing.
	rec, body := doJSON(t, h.HandleArm, http.MethodPost, "/drone-ops/actions/arm",
		`{"incident_id":1,"reason":"drill","duration_seconds":"abc"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, start.Add(900*time.Second), armedUntil(body))

	// Numeric strings coerce.
	rec, body = doJSON(t, h.HandleArm, http.MethodPost, "/drone-ops/actions/arm",
		`{"incident_id":1,"reason":"drill","duration_seconds":"120"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, start.Add(120*time.Second), armedUntil(body))

	// Plain numbers still clamp through the policy bounds.
	rec, body = doJSON(t, h.HandleArm, http.MethodPost, "/drone-ops/actions/arm",
		`{"incident_id":1,"reason":"drill","duration_seconds":10}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, start.Add(60*time.Second), armedUntil(body))

	// Absent duration means the default window.
	rec, body = doJSON(t, h.HandleArm, http.MethodPost, "/drone-ops/actions/arm",
		`{"incident_id":1,"reason":"drill"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, start.Add(900*time.Second), armedUntil(body))
}

func TestStreamKeepaliveCadence(t *testing.T) {
	bus := events.NewBus()
	h := NewStreamHandler(bus, 10*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, h.Keepalive)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/drone-ops/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.HandleStream(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event:keepalive")
}

func TestStreamKeepaliveDefault(t *testing.T) {
	h := NewStreamHandler(events.NewBus(), 0)
	assert.Equal(t, 15*time.Second, h.Keepalive)
}

func TestDecodeRemoteIDEndpoint(t *testing.T) {
	h := NewDetectionHandler(newHandlerService(t))

	rec, body := doJSON(t, h.HandleDecode, http.MethodPost, "/drone-ops/remote-id/decode",
		`{"payload":{"uas_id":"UAS-1","lat":48.85,"lon":2.35}}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	decoded := body["decoded"].(map[string]any)
	assert.Equal(t, true, decoded["detected"])
	assert.Equal(t, "UAS-1", decoded["uas_id"])
}

func TestGeolocateEndpoint(t *testing.T) {
	h := NewDetectionHandler(newHandlerService(t))

	rec, body := doJSON(t, h.HandleGeolocate, http.MethodPost, "/drone-ops/geolocate/estimate",
		`{"observations":[
			{"lat":48.850,"lon":2.350,"rssi":-60},
			{"lat":48.851,"lon":2.351,"rssi":-60},
			{"lat":48.852,"lon":2.352,"rssi":-60}
		],"environment":"outdoor"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	location := body["location"].(map[string]any)
	assert.Equal(t, "rssi_weighted_centroid", location["method"])

	rec, body = doJSON(t, h.HandleGeolocate, http.MethodPost, "/drone-ops/geolocate/estimate",
		`{"observations":[{"lat":1,"lon":2,"rssi":-50}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
}
