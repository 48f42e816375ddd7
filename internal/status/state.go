package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/wppchat/internal/bus"
)

// KindChanged is published on every successful transition.
const KindChanged = "link.status_changed"

// Link names the connection a Machine tracks.
type Link string

const (
	LinkAPI  Link = "api"
	LinkPush Link = "push"
)

// State is the health of one connection to the backend.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Disconnected: {Connecting, Connected, Error},
	Connecting:   {Connected, Disconnected, Error},
	Connected:    {Disconnected, Error},
	Error:        {Connecting, Connected, Disconnected},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	link    Link
	current State
	lastErr error
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(link Link, b *bus.Bus) *Machine {
	return &Machine{
		link:    link,
		current: Disconnected,
		bus:     b,
	}
}

// Link returns which connection this machine tracks.
func (m *Machine) Link() Link { return m.link }

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Err returns the error recorded by the last Fail, if the machine is still in Error.
func (m *Machine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Transition attempts to move to a new state. Moving to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	return m.transition(to, nil)
}

// Fail moves to Error and records cause.
func (m *Machine) Fail(cause error) error {
	return m.transition(Error, cause)
}

func (m *Machine) transition(to State, cause error) error {
	m.mu.Lock()
	if m.current == to {
		m.lastErr = cause
		m.mu.Unlock()
		return nil
	}
	if !slices.Contains(validTransitions[m.current], to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("%s link: invalid transition from %s to %s", m.link, from, to)
	}
	from := m.current
	m.current = to
	m.lastErr = cause
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.NewEvent(KindChanged, StatusChange{
			Link:  m.link,
			From:  from,
			To:    to,
			Cause: cause,
		}))
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	Link  Link
	From  State
	To    State
	Cause error
}
