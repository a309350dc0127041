package assetstate

import "go.uber.org/zap"

// Scheduler is the Transition Scheduler: it holds the requested next state,
// separate from the host's committed state. Downstream systems react to
// changes of Generation, not to the mere presence of a request.
type Scheduler[S comparable] struct {
	value     S
	set       bool
	abandoned bool
	gen       uint64
	log       *zap.Logger
}

// NewScheduler returns an empty scheduler.
func NewScheduler[S comparable](log *zap.Logger) *Scheduler[S] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler[S]{log: log}
}

// Request records state as the pending transition, overwriting any earlier
// request. Requesting the value that is already pending changes nothing,
// unless that request was abandoned after a failed load. Reports whether
// the pending value changed.
func (s *Scheduler[S]) Request(state S) bool {
	if s.set && s.value == state && !s.abandoned {
		return false
	}
	s.log.Debug("scheduling next state", zap.Any("state", state), zap.Any("previous", s.pendingField()))
	s.value = state
	s.set = true
	s.abandoned = false
	s.gen++
	return true
}

// Clear empties the pending request.
func (s *Scheduler[S]) Clear() {
	if s.set {
		s.log.Debug("clearing scheduled state", zap.Any("state", s.value))
	}
	var zero S
	s.value = zero
	s.set = false
	s.abandoned = false
}

// Pending returns the requested state, if any.
func (s *Scheduler[S]) Pending() (S, bool) {
	return s.value, s.set
}

// Generation increments every time Request changes the pending value.
func (s *Scheduler[S]) Generation() uint64 {
	return s.gen
}

// abandon marks the pending request as belonging to a failed episode.
func (s *Scheduler[S]) abandon() {
	if s.set {
		s.abandoned = true
	}
}

func (s *Scheduler[S]) pendingField() any {
	if !s.set {
		return nil
	}
	return s.value
}
