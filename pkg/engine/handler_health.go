// Health check handler for the simulator.

package engine

import (
	"net/http"
	"time"

	"github.com/getmockd/simulator/pkg/httputil"
	"github.com/getmockd/simulator/pkg/metrics"
)

// HealthStatus is the body of the health check.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Tests     map[string]int `json:"tests"`
}

// ServeHealth handles the liveness check. It reports the number of
// registered tests per protocol.
func (h *Handler) ServeHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Tests: map[string]int{
			metrics.ProtocolREST:   h.rest.Len(),
			metrics.ProtocolWS:     h.ws.Len(),
			metrics.ProtocolSocket: h.socket.Len(),
		},
	})
}
