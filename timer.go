package assetstate

import "time"

// Timer is a one-shot countdown advanced by explicit tick deltas.
// Elapsed time clamps at the duration; JustFinished reports true only for
// the Tick call that crossed it.
type Timer struct {
	duration     time.Duration
	elapsed      time.Duration
	finished     bool
	justFinished bool
}

// NewTimer returns a stopped-at-zero timer of duration d.
func NewTimer(d time.Duration) *Timer {
	if d < 0 {
		d = 0
	}
	return &Timer{duration: d}
}

// Tick advances the timer by dt and returns it for chaining.
func (t *Timer) Tick(dt time.Duration) *Timer {
	t.justFinished = false
	if t.finished {
		return t
	}
	if dt > 0 {
		t.elapsed += dt
	}
	if t.elapsed >= t.duration {
		t.elapsed = t.duration
		t.finished = true
		t.justFinished = true
	}
	return t
}

func (t *Timer) JustFinished() bool { return t.justFinished }

func (t *Timer) Finished() bool { return t.finished }

// Reset rewinds the timer to zero elapsed.
func (t *Timer) Reset() {
	t.elapsed = 0
	t.finished = false
	t.justFinished = false
}

func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) Elapsed() time.Duration { return t.elapsed }

func (t *Timer) Remaining() time.Duration { return t.duration - t.elapsed }

// SetDuration changes the target duration without touching elapsed time.
func (t *Timer) SetDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.duration = d
	if t.elapsed > d {
		t.elapsed = d
	}
}
