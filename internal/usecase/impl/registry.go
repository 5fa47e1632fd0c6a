package impl

import (
	"sync"
	"time"

	domainerrors "pawtrack/internal/domain/errors"

	"github.com/google/uuid"
)

// sessionRegistry maps session IDs to their machines. Lookups vastly
// outnumber creation and archival, hence the RWMutex.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionMachine
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[uuid.UUID]*sessionMachine),
	}
}

func (r *sessionRegistry) Add(id uuid.UUID, machine *sessionMachine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return domainerrors.ErrSessionExists
	}
	r.sessions[id] = machine

	return nil
}

func (r *sessionRegistry) Get(id uuid.UUID) (*sessionMachine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	machine, ok := r.sessions[id]

	return machine, ok
}

// All returns the machines currently registered; used by the monitor loop.
func (r *sessionRegistry) All() map[uuid.UUID]*sessionMachine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uuid.UUID]*sessionMachine, len(r.sessions))
	for id, machine := range r.sessions {
		out[id] = machine
	}

	return out
}

func (r *sessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// SweepTerminal removes terminal sessions that ended before the retention
// cutoff and returns their IDs. Persisted copies live with the archive
// sink; the in-memory session is gone after this.
func (r *sessionRegistry) SweepTerminal(cutoff time.Time) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var archived []uuid.UUID
	for id, machine := range r.sessions {
		if !machine.State().IsTerminal() {
			continue
		}
		if endedAt, ok := machine.EndedAt(); ok && endedAt.Before(cutoff) {
			delete(r.sessions, id)
			archived = append(archived, id)
		}
	}

	return archived
}
