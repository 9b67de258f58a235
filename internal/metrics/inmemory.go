package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	KeysGenerated   uint64
	UsersSaved      map[string]uint64
	KeysValidated   map[string]uint64
	PresenceUpdates map[string]uint64
	AdminLogins     map[string]uint64
	KeysRevoked     uint64
	UsersDeleted    uint64
	Exports         uint64
}

// labeled is a set of counters keyed by a single label value.
type labeled struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func (l *labeled) inc(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = make(map[string]uint64)
	}
	l.counts[label]++
}

func (l *labeled) snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	keysGenerated   uint64
	keysRevoked     uint64
	usersDeleted    uint64
	exports         uint64
	usersSaved      labeled
	keysValidated   labeled
	presenceUpdates labeled
	adminLogins     labeled
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		KeysGenerated:   atomic.LoadUint64(&m.keysGenerated),
		UsersSaved:      m.usersSaved.snapshot(),
		KeysValidated:   m.keysValidated.snapshot(),
		PresenceUpdates: m.presenceUpdates.snapshot(),
		AdminLogins:     m.adminLogins.snapshot(),
		KeysRevoked:     atomic.LoadUint64(&m.keysRevoked),
		UsersDeleted:    atomic.LoadUint64(&m.usersDeleted),
		Exports:         atomic.LoadUint64(&m.exports),
	}
}

// IncKeyGenerated increments the generated key counter.
func (m *InMemoryRecorder) IncKeyGenerated() {
	atomic.AddUint64(&m.keysGenerated, 1)
}

// IncUserSaved counts save attempts by outcome.
func (m *InMemoryRecorder) IncUserSaved(status string) {
	m.usersSaved.inc(status)
}

// IncKeyValidated counts validations by outcome.
func (m *InMemoryRecorder) IncKeyValidated(status string) {
	m.keysValidated.inc(status)
}

// IncPresenceUpdate counts heartbeat updates by state.
func (m *InMemoryRecorder) IncPresenceUpdate(state string) {
	m.presenceUpdates.inc(state)
}

// IncAdminLogin counts admin logins by outcome.
func (m *InMemoryRecorder) IncAdminLogin(status string) {
	m.adminLogins.inc(status)
}

// IncKeyRevoked increments the revoked key counter.
func (m *InMemoryRecorder) IncKeyRevoked() {
	atomic.AddUint64(&m.keysRevoked, 1)
}

// IncUserDeleted increments the deleted user counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// IncExport increments the CSV export counter.
func (m *InMemoryRecorder) IncExport() {
	atomic.AddUint64(&m.exports, 1)
}

// SortedLabels returns the keys of a labeled counter map in stable order.
func SortedLabels(counts map[string]uint64) []string {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}
