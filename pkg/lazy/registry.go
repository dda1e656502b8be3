package lazy

import (
	"sync"
	"time"
)

type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusFailed      Status = "failed"
	StatusCircuitOpen Status = "circuitOpen"
)

// LoadState tracks one lazily-mounted module. Entries are created at module
// registration and live for the whole process; a restart starts every module
// from a clean slate.
type LoadState struct {
	Status        Status    `json:"status"`
	Attempts      int       `json:"attempts"`
	FailCount     int       `json:"failCount"`
	CooldownUntil time.Time `json:"cooldownUntil,omitzero"`
	LastError     string    `json:"lastError,omitempty"`
	LastLoadedAt  time.Time `json:"lastLoadedAt,omitzero"`
	LoadMs        int64     `json:"loadMs,omitempty"`
}

// StateRegistry is an injectable in-memory table of module load states.
// Construct one per process (or per test); there is no ambient singleton.
type StateRegistry struct {
	mu      sync.RWMutex
	entries map[string]*LoadState
}

func NewStateRegistry() *StateRegistry {
	return &StateRegistry{entries: make(map[string]*LoadState)}
}

// Ensure creates an idle entry if absent. Idempotent.
func (r *StateRegistry) Ensure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		r.entries[name] = &LoadState{Status: StatusIdle}
	}
}

// Status returns a snapshot copy of the entry.
func (r *StateRegistry) Status(name string) (LoadState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return LoadState{}, false
	}
	return *entry, true
}

// Update applies fn to the entry under the registry lock, creating an idle
// entry first if needed.
func (r *StateRegistry) Update(name string, fn func(*LoadState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		entry = &LoadState{Status: StatusIdle}
		r.entries[name] = entry
	}
	fn(entry)
}

func (r *StateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
