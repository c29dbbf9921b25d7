// Package health provides the liveness and readiness endpoints served on
// the admin listener.
//
//   - /healthz — liveness; always 200 while the process serves HTTP.
//   - /readyz  — readiness; 200 only when every registered [Checker]
//     passes. Not-ready means the process should not receive new calls.
//
// The standard checkers probe the question flow store and, when configured,
// the quote backend. Responses are JSON with a top-level "status" field
// ("ok" or "fail") and a "checks" map naming each result.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quotevox/quotevox/internal/question"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named health check. Check returns nil when the dependency is
// healthy and must respect context cancellation.
type Checker struct {
	// Name labels this check in the JSON response (e.g. "flow-store").
	Name string

	// Check probes the dependency.
	Check func(ctx context.Context) error
}

// FlowStoreChecker reports whether the flow store still serves the flow the
// dialogue runs on.
func FlowStoreChecker(store question.Store, flowID string) Checker {
	return Checker{
		Name: "flow-store",
		Check: func(ctx context.Context) error {
			_, err := store.Flow(ctx, flowID)
			return err
		},
	}
}

// Pinger is the probe surface of the quote backend client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker reports whether the quote backend answers.
func BackendChecker(p Pinger) Checker {
	return Checker{Name: "quote-backend", Check: p.Ping}
}

// result is the JSON response body for both endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. Safe for concurrent use; the checker
// list is fixed at construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers, in order, on
// each /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200. A running process that can serve HTTP is
// considered alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every registered [Checker] passes. Each
// check runs under a [checkTimeout] deadline derived from the request
// context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v with the given status code, falling back to a
// plain-text 500 on encoding failure.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
