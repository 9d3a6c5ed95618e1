package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/resq/internal/bus"
)

// State represents a relay connection state.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Identifying  State = "IDENTIFYING"
	Open         State = "OPEN"
	Backoff      State = "BACKOFF"
	Closed       State = "CLOSED"
)

// validTransitions defines allowed state transitions. Closed is terminal:
// a torn-down connection is never revived, a new client is built instead.
var validTransitions = map[State][]State{
	Disconnected: {Connecting, Closed},
	Connecting:   {Identifying, Backoff, Closed},
	Identifying:  {Open, Backoff, Closed},
	Open:         {Backoff, Closed},
	Backoff:      {Connecting, Closed},
	Closed:       {},
}

// Machine tracks and enforces relay connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
// Transitioning to the current state is a no-op, which keeps teardown idempotent.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "session.status_changed",
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
