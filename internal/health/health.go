// Package health answers GET /health with the state of each optional
// dependency.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"car-rental/internal/respond"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// Response is the health check body.
type Response struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Handler reports "healthy" only when every check passes. A failing check
// turns the answer into a 503.
func Handler(service string, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		res := Response{
			Status:    "healthy",
			Service:   service,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]string, len(checks)),
		}
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := checks[name](ctx)
			cancel()
			if err != nil {
				res.Status = "unhealthy"
				res.Checks[name] = "down"
				continue
			}
			res.Checks[name] = "up"
		}

		status := http.StatusOK
		if res.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(w, status, res)
	}
}
