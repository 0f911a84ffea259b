package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T, r *Reporter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(r, "instance-1234").RegisterRoutes(engine)
	return engine
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestReporter(1, &fakeCounters{}, &fakeTicker{})
	engine := setupHandler(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "instance-1234", body["instance"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestReadyEndpointWhileStarting(t *testing.T) {
	r := newTestReporter(1, &fakeCounters{}, &fakeTicker{})
	engine := setupHandler(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body Readiness
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "starting", body.Status)
	assert.Equal(t, 1, body.Teams)
	assert.Equal(t, 10.0, body.Rate)
}

func TestReadyEndpointWhenReady(t *testing.T) {
	r := newTestReporter(2, &fakeCounters{}, &fakeTicker{ticking: true})
	r.sample(time.Now())
	require.Equal(t, PhaseReady, r.Phase())

	engine := setupHandler(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body Readiness
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, 2, body.Teams)
}

func TestReadyEndpointWhenDegraded(t *testing.T) {
	counters := &fakeCounters{}
	r := newTestReporter(1, counters, &fakeTicker{ticking: true})

	now := time.Now()
	r.sample(now)
	counters.set(0, 10, "broker unavailable")
	r.sample(now.Add(time.Second))
	require.Equal(t, PhaseDegraded, r.Phase())

	engine := setupHandler(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body Readiness
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
}
