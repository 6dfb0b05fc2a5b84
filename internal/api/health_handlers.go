package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/logicbuild/internal/logger"
)

// handleHealth answers liveness checks and always returns 200 OK.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady runs every registered health check. The game keeps working on its
// local cache when the remote store is down, so failures are reported, not fatal.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.HealthChecks))
	for _, hc := range s.HealthChecks {
		if err := hc.Check(ctx); err != nil {
			log.Warn("readiness check failed - %s: %v", hc.Name, err)
			checks[hc.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[hc.Name] = "ok"
	}
	writeJSON(w, r, status, map[string]any{"checks": checks})
}
