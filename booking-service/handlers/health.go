package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker
type HealthCheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func NewHealthCheckFunc(name string, fn func(ctx context.Context) error) HealthCheckFunc {
	return HealthCheckFunc{name: name, fn: fn}
}

func (c HealthCheckFunc) Name() string {
	return c.name
}

func (c HealthCheckFunc) Check(ctx context.Context) error {
	return c.fn(ctx)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewHealthHandler returns 200 when every checker passes and 503 otherwise
func NewHealthHandler(checkers ...HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := healthResponse{Status: "ok", Checks: make(map[string]string, len(checkers))}
		status := http.StatusOK

		for _, checker := range checkers {
			if err := checker.Check(ctx); err != nil {
				response.Checks[checker.Name()] = err.Error()
				response.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			response.Checks[checker.Name()] = "ok"
		}

		writeJSON(w, status, response)
	}
}
