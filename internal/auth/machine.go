// Package auth tracks whether the client holds a usable session and drives
// the login, registration, refresh and logout calls that change it.
package auth

import (
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is an outcome reported by the auth collaborator.
type Event int

const (
	RefreshSucceeded Event = iota
	TokenFallback
	RefreshFailed
	LoginSucceeded
	LoggedOut
)

var ErrInvalidTransition = errors.New("invalid auth transition")

var transitions = map[State]map[Event]State{
	Checking: {
		RefreshSucceeded: Authenticated,
		TokenFallback:    Authenticated,
		RefreshFailed:    Unauthenticated,
	},
	Unauthenticated: {
		LoginSucceeded: Authenticated,
	},
	Authenticated: {
		LoggedOut: Unauthenticated,
	},
}

// Machine starts in Checking and moves only on events.
type Machine struct {
	mu        sync.Mutex
	state     State
	listeners []func(from, to State)
}

func NewMachine() *Machine {
	return &Machine{state: Checking}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers fn to run after every transition.
func (m *Machine) OnChange(fn func(from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Fire applies ev and returns the new state.
func (m *Machine) Fire(ev Event) (State, error) {
	m.mu.Lock()
	from := m.state
	to, ok := transitions[from][ev]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: event %d in state %s", ErrInvalidTransition, ev, from)
	}
	m.state = to
	listeners := append([]func(from, to State){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return to, nil
}
