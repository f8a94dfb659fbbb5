package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/senderwatch/internal/instrumentation"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves liveness, readiness and a detailed view of the
// watched mailbox.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{serverContext: sc, startTime: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status           string     `json:"status"`
	Uptime           string     `json:"uptime"`
	AccountDomain    string     `json:"accountDomain,omitempty"`
	AnalyticsBackend string     `json:"analyticsBackend,omitempty"`
	CachedSenders    int        `json:"cachedSenders"`
	AutoArchived     int        `json:"autoArchived"`
	RefreshSchedule  string     `json:"refreshSchedule,omitempty"`
	WatchedSenders   int        `json:"watchedSenders"`
	RefreshedSenders int        `json:"refreshedSenders"`
	LastRefresh      *time.Time `json:"lastRefresh,omitempty"`
}

// status is the overall state; only readiness and shutdown gate traffic.
func (h *HealthChecker) status() (string, int) {
	switch {
	case !h.ready.Load():
		return healthStatusNotReady, http.StatusServiceUnavailable
	case h.serverContext != nil && h.serverContext.IsShutdown():
		return healthStatusShuttingDown, http.StatusServiceUnavailable
	}
	return healthStatusOK, http.StatusOK
}

// checks lists the components behind readiness. The refresh entry is
// informational: a sender whose refresh failed does not make the server unready.
func (h *HealthChecker) checks() map[string]string {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
	}

	sc := h.serverContext
	if sc == nil {
		return checks
	}
	if sc.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
	}
	checks["analytics"] = sc.Orchestrator().AnalyticsBackend()
	if s := sc.Scheduler(); s != nil {
		checks["refresh"] = fmt.Sprintf("%d/%d senders refreshed", len(s.Snapshots()), len(s.Senders()))
	}
	return checks
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// LivenessHandler serves /healthz. It only reports that the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, code := h.status()
		if status == healthStatusShuttingDown {
			status = healthStatusNotReady
		}
		writeJSON(w, code, HealthResponse{Status: status, Checks: h.checks()})
	})
}

// DetailedHealthHandler serves /healthz/detailed with the sender cache and
// refresh state of the watched mailbox.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, code := h.status()
		resp := DetailedHealthResponse{
			Status: status,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		if sc := h.serverContext; sc != nil {
			o := sc.Orchestrator()
			resp.AnalyticsBackend = o.AnalyticsBackend()
			if account := o.Account(); account != "" {
				resp.AccountDomain = instrumentation.ExtractDomain(account)
			}
			for _, s := range o.Senders() {
				resp.CachedSenders++
				if s.AutoArchived {
					resp.AutoArchived++
				}
			}

			if s := sc.Scheduler(); s != nil {
				resp.RefreshSchedule = s.Spec()
				resp.WatchedSenders = len(s.Senders())
				for _, snap := range s.Snapshots() {
					resp.RefreshedSenders++
					if resp.LastRefresh == nil || snap.RefreshedAt.After(*resp.LastRefresh) {
						at := snap.RefreshedAt
						resp.LastRefresh = &at
					}
				}
			}
		}

		writeJSON(w, code, resp)
	})
}

// RegisterHealthEndpoints registers /healthz, /readyz and /healthz/detailed on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
