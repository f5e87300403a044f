package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	result Result
}

func (f fakeChecker) Check(ctx context.Context) Result { return f.result }
func (f fakeChecker) Type() CheckType                  { return CheckTypeTCP }

func TestBeaconHealthAlwaysOK(t *testing.T) {
	b := NewBeacon("test", 500*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestBeaconReadyNoCheckers(t *testing.T) {
	b := NewBeacon("test", 500*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBeaconReadyAllHealthy(t *testing.T) {
	b := NewBeacon("test", 500*time.Millisecond)
	b.Register("broker", fakeChecker{result: Result{Healthy: true}})
	b.Register("vectorstore", fakeChecker{result: Result{Healthy: true}})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp readyResponse
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["broker"])
}

func TestBeaconReadyOneUnhealthy(t *testing.T) {
	b := NewBeacon("test", 500*time.Millisecond)
	b.Register("broker", fakeChecker{result: Result{Healthy: true}})
	b.Register("registrydb", fakeChecker{result: Result{Healthy: false, Message: "dial tcp: connection refused"}})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp readyResponse
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Contains(t, resp.Checks["registrydb"], "connection refused")
	assert.NotEmpty(t, resp.Message)
}

func TestBeaconRejectsNonGet(t *testing.T) {
	b := NewBeacon("test", 500*time.Millisecond)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		b.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
	}
}

func TestBeaconServesMetrics(t *testing.T) {
	b := NewBeacon("test", 500*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
