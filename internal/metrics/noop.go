package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncKeyGenerated()                {}
func (n *NoopRecorder) IncUserSaved(status string)      {}
func (n *NoopRecorder) IncKeyValidated(status string)   {}
func (n *NoopRecorder) IncPresenceUpdate(state string)  {}
func (n *NoopRecorder) IncAdminLogin(status string)     {}
func (n *NoopRecorder) IncKeyRevoked()                  {}
func (n *NoopRecorder) IncUserDeleted()                 {}
func (n *NoopRecorder) IncExport()                      {}
