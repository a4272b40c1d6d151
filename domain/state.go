package domain

import (
	"fmt"
	"sync"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateInRoom
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateInRoom:
		return "IN_ROOM"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateUnauthenticated: {StateAuthenticated, StateDisconnected},
	StateAuthenticated:   {StateInRoom, StateDisconnected},
	StateInRoom:          {StateAuthenticated, StateDisconnected},
}

// Lifecycle tracks a connection's state. DISCONNECTED is terminal.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Transition moves to the next state if the edge exists.
func (l *Lifecycle) Transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, next := range transitions[l.state] {
		if next == to {
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", l.state, to)
}

// Ready reports whether room and signaling events may be processed.
func (l *Lifecycle) Ready() bool {
	s := l.State()
	return s == StateAuthenticated || s == StateInRoom
}
