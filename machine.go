package assetstate

import (
	"context"
	"errors"
	"fmt"
)

// Action runs on state entry or exit.
type Action[S comparable] func(ctx context.Context, from S, to S) error

// StateMachine is the host side of the contract. The engine only sets the
// next state and hooks exits; the host decides when Apply runs.
type StateMachine[S comparable] interface {
	Start(ctx context.Context) error
	Current() S
	Next() (S, bool)
	SetNext(state S)
	OnEnter(state S, action Action[S])
	OnExit(state S, action Action[S])
	Apply(ctx context.Context) (bool, error)
}

// State holds the hooks registered for one state value.
type State[S comparable] struct {
	ID           S
	EntryActions []Action[S]
	ExitActions  []Action[S]
}

// Machine is a flat finite state machine with a committed current state and
// an optional next state applied on Apply.
type Machine[S comparable] struct {
	states  map[S]*State[S]
	current S
	next    S
	hasNext bool
	started bool
}

//
// Public API
//

// NewMachine creates a machine whose committed state is initial.
func NewMachine[S comparable](initial S) *Machine[S] {
	return &Machine[S]{
		states:  map[S]*State[S]{},
		current: initial,
	}
}

// Start enters the initial state.
func (m *Machine[S]) Start(ctx context.Context) error {
	if m.started {
		return errors.New("machine already started")
	}
	m.started = true
	return m.state(m.current).enterState(ctx, m.current, m.current)
}

func (m *Machine[S]) Current() S {
	return m.current
}

func (m *Machine[S]) Next() (S, bool) {
	return m.next, m.hasNext
}

// SetNext queues state for the next Apply. Queueing the current state is
// ignored.
func (m *Machine[S]) SetNext(state S) {
	if state == m.current {
		var zero S
		m.next, m.hasNext = zero, false
		return
	}
	m.next, m.hasNext = state, true
}

func (m *Machine[S]) OnEnter(state S, action Action[S]) {
	s := m.state(state)
	s.EntryActions = append(s.EntryActions, action)
}

func (m *Machine[S]) OnExit(state S, action Action[S]) {
	s := m.state(state)
	s.ExitActions = append(s.ExitActions, action)
}

// Apply commits a queued next state: exit actions of the current state run
// first, then entry actions of the target. If an exit action fails the
// machine stays in its current state and the next state is kept.
func (m *Machine[S]) Apply(ctx context.Context) (bool, error) {
	if !m.hasNext {
		return false, nil
	}
	from, to := m.current, m.next

	if err := m.state(from).exitState(ctx, from, to); err != nil {
		return false, fmt.Errorf("exit %v: %w", from, err)
	}

	var zero S
	m.current = to
	m.next, m.hasNext = zero, false

	if err := m.state(to).enterState(ctx, from, to); err != nil {
		return true, fmt.Errorf("enter %v: %w", to, err)
	}
	return true, nil
}

//
// Helper Functions (internal API)
//

func (m *Machine[S]) state(id S) *State[S] {
	s, ok := m.states[id]
	if !ok {
		s = &State[S]{ID: id}
		m.states[id] = s
	}
	return s
}

// enterState runs every entry action, stopping at the first error.
func (s *State[S]) enterState(ctx context.Context, from S, to S) error {
	for _, action := range s.EntryActions {
		if err := action(ctx, from, to); err != nil {
			return err
		}
	}
	return nil
}

// exitState runs every exit action, stopping at the first error.
func (s *State[S]) exitState(ctx context.Context, from S, to S) error {
	for _, action := range s.ExitActions {
		if err := action(ctx, from, to); err != nil {
			return err
		}
	}
	return nil
}
