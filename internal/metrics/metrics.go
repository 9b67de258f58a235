// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Key and account metrics
	IncKeyGenerated()
	IncUserSaved(status string)    // status: "success", "duplicate", "failed"
	IncKeyValidated(status string) // status: "valid", "invalid", "not_found", "failed"
	IncPresenceUpdate(state string) // state: "online", "offline"

	// Admin metrics
	IncAdminLogin(status string) // status: "success", "failure"
	IncKeyRevoked()
	IncUserDeleted()
	IncExport()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
