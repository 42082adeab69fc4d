// Package debug exposes a small operator-facing HTTP surface for a
// long-lived client process: Prometheus metrics and a JSON dump of
// session state. Grounded on the teacher's controlplane API package,
// which uses go-chi/chi for exactly this kind of small admin surface
// (internal/controlplane/api).
package debug

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/zkgo/pkg/metrics"
	"github.com/marmos91/zkgo/pkg/zk"
)

// SessionInspector is the subset of *zk.Client the /debug/session
// endpoint needs. Kept as an interface so tests can substitute a fake.
type SessionInspector interface {
	State() zk.State
	SessionID() int64
}

// NewRouter builds the diagnostics router. Mount it on any
// *http.Server; it registers no global state.
func NewRouter(client SessionInspector) http.Handler {
	r := chi.NewRouter()
	if reg := metrics.GetRegistry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/debug/session", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			State     string `json:"state"`
			SessionID int64  `json:"session_id"`
		}{
			State:     client.State().String(),
			SessionID: client.SessionID(),
		})
	})
	return r
}
