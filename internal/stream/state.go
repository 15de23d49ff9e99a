package stream

import (
	"errors"
	"sync"
)

// State is the lifecycle position of a streaming loop.
type State int

const (
	// Idle: constructed, not yet running.
	Idle State = iota
	// Streaming: the loop is processing frames.
	Streaming
	// Stopping: a stop signal was observed; resources are being released.
	Stopping
	// Closed: terminal. No operation is valid afterward.
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Stopping:
		return "stopping"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotIdle is returned when Run is called on a loop that already ran.
var ErrNotIdle = errors.New("stream: loop is not idle")

// lifecycle guards the Idle → Streaming → Stopping → Closed progression.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

// start moves Idle → Streaming, failing for any other state.
func (l *lifecycle) start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Idle {
		return ErrNotIdle
	}
	l.state = Streaming
	return nil
}

func (l *lifecycle) set(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// State returns the current lifecycle state.
func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
