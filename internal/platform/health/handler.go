// Package health serves the console's diagnostics probes.
package health

import (
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"coopconsole/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc returns nil when the dependency it watches is usable.
type CheckFunc func() error

// Report is the console state at one instant, as the diagnostics see it.
type Report struct {
	SessionPhase   string
	Role           string
	TokenExpiresAt time.Time
	Breaker        string
	BreakerOpen    bool
}

// Reporter produces a Report. It is called once per /health request.
type Reporter func() Report

// Handler provides the health endpoints.
type Handler struct {
	startTime time.Time
	backend   string
	report    Reporter

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a health handler for the console talking to backend. A nil
// report leaves the console section of /health empty.
func New(backend string, report Reporter) *Handler {
	if report == nil {
		report = func() Report { return Report{} }
	}
	return &Handler{
		startTime: time.Now(),
		backend:   backend,
		report:    report,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named readiness check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts the health routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the liveness probe body.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always answers 200 while the process runs.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse is the readiness probe body.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check and answers 503 if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	response := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	healthy := true
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		if err := checks[name](); err != nil {
			response.Checks[name] = "down: " + err.Error()
			healthy = false
			continue
		}
		response.Checks[name] = "up"
	}

	if !healthy {
		response.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// SessionStatus describes the operator session without identifying anyone.
type SessionStatus struct {
	Phase          string `json:"phase"`
	SignedIn       bool   `json:"signed_in"`
	Role           string `json:"role,omitempty"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
}

// BackendStatus describes the backend connection.
type BackendStatus struct {
	URL     string `json:"url"`
	Breaker string `json:"breaker"`
}

// StatusResponse is the /health body.
type StatusResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	Session       SessionStatus `json:"session"`
	Backend       BackendStatus `json:"backend"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// HandleStatus reports the session and backend state. The console is
// "degraded" while the backend circuit is open; it still answers 200 because
// the process itself is fine.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	r := h.report()
	status := "healthy"
	if r.BreakerOpen {
		status = "degraded"
	}
	session := SessionStatus{Phase: r.SessionPhase, SignedIn: r.Role != "", Role: r.Role}
	if !r.TokenExpiresAt.IsZero() {
		session.TokenExpiresAt = r.TokenExpiresAt.UTC().Format(time.RFC3339)
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        status,
		Version:       Version,
		Session:       session,
		Backend:       BackendStatus{URL: h.backend, Breaker: r.Breaker},
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}
