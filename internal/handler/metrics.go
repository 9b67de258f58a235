package handler

import (
	"fmt"
	"net/http"

	"github.com/uwuntu/keyhub/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "uwuntu_keys_generated_total %d\n", snap.KeysGenerated)
	writeLabeled(w, "uwuntu_users_saved_total", "status", snap.UsersSaved)
	writeLabeled(w, "uwuntu_keys_validated_total", "status", snap.KeysValidated)
	writeLabeled(w, "uwuntu_presence_updates_total", "state", snap.PresenceUpdates)
	writeLabeled(w, "uwuntu_admin_logins_total", "status", snap.AdminLogins)
	writeMetric(w, "uwuntu_keys_revoked_total %d\n", snap.KeysRevoked)
	writeMetric(w, "uwuntu_users_deleted_total %d\n", snap.UsersDeleted)
	writeMetric(w, "uwuntu_exports_total %d\n", snap.Exports)
}

func writeLabeled(w http.ResponseWriter, name, label string, counts map[string]uint64) {
	for _, value := range metrics.SortedLabels(counts) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, value, counts[value])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
