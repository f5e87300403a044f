package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/opus-domini/sentinel/pkg/metrics"
)

// Beacon is the readiness beacon every Sentinel service starts: a small
// HTTP server exposing /health (liveness), /ready (dependency readiness)
// and /metrics. Each service registers the Checkers its own dependencies
// need (broker, vector store, registry db, ...) and the beacon runs them
// on every /ready request with the configured timeout.
type Beacon struct {
	version  string
	timeout  time.Duration
	checkers map[string]Checker
	mux      *http.ServeMux
}

// NewBeacon creates a Beacon. timeout bounds how long each registered
// Checker is given to answer a /ready request; it is the service's
// "<COMPONENT>_READINESS_TIME_OUT" configuration value.
func NewBeacon(version string, timeout time.Duration) *Beacon {
	b := &Beacon{
		version:  version,
		timeout:  timeout,
		checkers: make(map[string]Checker),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", b.healthHandler)
	mux.HandleFunc("/ready", b.readyHandler)
	mux.Handle("/metrics", metrics.Handler())
	b.mux = mux
	return b
}

// Register adds a named dependency check. Call before Start; /ready
// iterates registered checkers in no particular order and is not-ready if
// any of them fails.
func (b *Beacon) Register(name string, checker Checker) {
	b.checkers[name] = checker
}

// Start runs the beacon's HTTP server until ctx is canceled or the server
// fails. It never returns nil.
func (b *Beacon) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      b.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler returns the beacon's HTTP handler, for embedding into a service
// that wants to serve /health, /ready and /metrics from its own listener.
func (b *Beacon) Handler() http.Handler {
	return b.mux
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

type readyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

func (b *Beacon) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := healthResponse{Status: "healthy", Timestamp: time.Now(), Version: b.version}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (b *Beacon) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	checks := make(map[string]string, len(b.checkers))
	ready := true
	var message string

	if len(b.checkers) == 0 {
		checks["dependencies"] = "none registered"
	}

	for name, checker := range b.checkers {
		result := checker.Check(ctx)
		if result.Healthy {
			checks[name] = "ok"
			continue
		}
		checks[name] = result.Message
		ready = false
		if message == "" {
			message = name + " not ready"
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	resp := readyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
