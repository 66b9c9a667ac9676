package httpapi

import (
	"context"
	"net/http"
)

// Pinger reports storage reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetHealthCheck wires a storage reachability probe into the health endpoint.
// Without one the endpoint reports process liveness only.
func (h *Handler) SetHealthCheck(p Pinger) {
	h.pinger = p
}

// handleHealth answers readiness probes from load balancers and orchestrators.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
