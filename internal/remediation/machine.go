package remediation

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type State string

const (
	StateIdle        State = "idle"
	StateUploading   State = "uploading"
	StateAnalyzed    State = "analyzed"
	StateDownloading State = "downloading"
	StateDownloaded  State = "downloaded"
	StateRechecking  State = "rechecking"
	StateReconciled  State = "reconciled"
	StateFailed      State = "failed"
)

var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateIdle:        {StateUploading},
	StateUploading:   {StateAnalyzed, StateFailed},
	StateAnalyzed:    {StateDownloading, StateReconciled},
	StateDownloading: {StateDownloaded, StateFailed},
	StateDownloaded:  {StateRechecking, StateReconciled, StateFailed},
	StateRechecking:  {StateReconciled, StateFailed},
	// a failed download or re-check may be retried
	StateFailed: {StateDownloading},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Transition struct {
	From  State     `json:"from"`
	To    State     `json:"to"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// Machine tracks one run. Observers are called synchronously, outside the
// lock, in registration order.
type Machine struct {
	mu        sync.Mutex
	state     State
	history   []Transition
	observers []func(Transition)
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// RestoreMachine resumes a machine from a persisted state.
func RestoreMachine(state State) *Machine {
	if state == "" {
		state = StateIdle
	}
	return &Machine{state: state}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition(nil), m.history...)
}

func (m *Machine) Observe(fn func(Transition)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// To moves the machine to next.
func (m *Machine) To(next State) error {
	return m.transition(next, "")
}

// Fail moves the machine to failed, recording cause.
func (m *Machine) Fail(cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return m.transition(StateFailed, msg)
}

func (m *Machine) transition(next State, errMsg string) error {
	m.mu.Lock()
	if !CanTransition(m.state, next) {
		from := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}
	t := Transition{From: m.state, To: next, At: time.Now().UTC(), Error: errMsg}
	m.state = next
	m.history = append(m.history, t)
	observers := append([]func(Transition){}, m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(t)
	}
	return nil
}
