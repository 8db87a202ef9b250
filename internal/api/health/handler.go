// Package health serves the liveness and readiness endpoints of the monitor.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/blazewatch/pkg/config"
)

// checkTimeout bounds a whole readiness check.
const checkTimeout = 5 * time.Second

// Checker is a dependency checked by /health/ready.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler serves /health, /health/live and /health/ready.
type Handler struct {
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewHandler creates a health handler whose uptime starts now.
func NewHandler() *Handler {
	return &Handler{started: time.Now()}
}

// RegisterChecker adds a dependency to the readiness check.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	h.checkers = append(h.checkers, c)
	h.mu.Unlock()
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health reports that the process is up, with its version and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: config.GetBuildInfo().Version,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Live reports that the process is serving requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusOK, HealthResponse{Status: "live"})
}

// Ready runs every registered checker concurrently and answers 503 when any
// of them fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	results := h.run(r.Context(), checkers)

	resp := HealthResponse{Status: "ready", Checks: results}
	status := http.StatusOK
	for _, res := range results {
		if res != "ok" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	write(w, status, resp)
}

func (h *Handler) run(ctx context.Context, checkers []Checker) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	errs := make([]error, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		i, c := i, c // per-iteration copy (go1.21 loop semantics)
		g.Go(func() error {
			errs[i] = c.Check(ctx)
			return nil
		})
	}
	g.Wait()

	results := make(map[string]string, len(checkers))
	for i, c := range checkers {
		if errs[i] != nil {
			results[c.Name()] = errs[i].Error()
		} else {
			results[c.Name()] = "ok"
		}
	}
	return results
}

func write(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
