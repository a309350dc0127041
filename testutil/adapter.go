// Package testutil drives assetstate engines in tests, either by stepping an
// App by hand or through the realtime runtime.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/realtime"
)

// Stepper is anything advanced one tick at a time.
type Stepper interface {
	Update(ctx context.Context, dt time.Duration) error
}

// Step runs n ticks of dt and fails the test on the first Update error.
func Step(t testing.TB, s Stepper, dt time.Duration, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Update(context.Background(), dt); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
	}
}

// RunUntil ticks s until cond holds and returns the number of ticks taken.
// The test fails if cond does not hold within maxTicks.
func RunUntil(t testing.TB, s Stepper, dt time.Duration, maxTicks int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= maxTicks; i++ {
		if err := s.Update(context.Background(), dt); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if cond() {
			return i
		}
	}
	t.Fatalf("condition not met after %d ticks", maxTicks)
	return maxTicks
}

// RuntimeAdapter provides a common interface for a hand-stepped App and the
// realtime runtime. This allows running the same test suite on both.
type RuntimeAdapter[S comparable] interface {
	Start(ctx context.Context) error
	Stop() error
	RequestTransition(state S) error
	GetCurrentState() S
	WaitForStability(timeout time.Duration) error
}

// stable reports whether no transition is pending and nothing is loading.
func stable[S comparable](c *assetstate.Context[S]) bool {
	_, pending := c.Scheduler.Pending()
	return !pending && len(c.Registry.LoadingBundles()) == 0
}

// AppAdapter steps an App on the calling goroutine with a fixed delta.
type AppAdapter[S comparable] struct {
	app *assetstate.App[S]
	dt  time.Duration
}

// NewAppAdapter creates a new adapter that advances app by dt per tick.
func NewAppAdapter[S comparable](app *assetstate.App[S], dt time.Duration) *AppAdapter[S] {
	return &AppAdapter[S]{app: app, dt: dt}
}

func (a *AppAdapter[S]) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

func (a *AppAdapter[S]) Stop() error { return nil }

func (a *AppAdapter[S]) RequestTransition(state S) error {
	a.app.RequestTransition(state)
	return nil
}

func (a *AppAdapter[S]) GetCurrentState() S {
	return a.app.Machine().Current()
}

// WaitForStability steps simulated time, up to timeout, until the engine
// settles.
func (a *AppAdapter[S]) WaitForStability(timeout time.Duration) error {
	ticks := max(int(timeout/a.dt), 1)
	for i := 0; i < ticks; i++ {
		if err := a.app.Update(context.Background(), a.dt); err != nil {
			return err
		}
		if stable(a.app.Context()) {
			return nil
		}
	}
	return fmt.Errorf("not stable after %d ticks", ticks)
}

// TickBasedAdapter wraps the realtime runtime
type TickBasedAdapter[S comparable] struct {
	rt *realtime.Runtime[S]
}

// NewTickBasedAdapter creates a new adapter for the tick-based runtime
func NewTickBasedAdapter[S comparable](app *assetstate.App[S], tickRate time.Duration) *TickBasedAdapter[S] {
	return &TickBasedAdapter[S]{
		rt: realtime.NewRuntime(app, realtime.Config{TickRate: tickRate}),
	}
}

func (a *TickBasedAdapter[S]) Start(ctx context.Context) error {
	return a.rt.Start(ctx)
}

func (a *TickBasedAdapter[S]) Stop() error {
	return a.rt.Stop()
}

func (a *TickBasedAdapter[S]) RequestTransition(state S) error {
	return a.rt.RequestTransition(state)
}

func (a *TickBasedAdapter[S]) GetCurrentState() S {
	return a.rt.CurrentState()
}

// WaitForStability waits until a tick that started after the call completes
// with no transition pending and nothing loading.
func (a *TickBasedAdapter[S]) WaitForStability(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	// The tick in flight may have collected its commands already.
	start := a.rt.GetTickNumber() + 1
	for time.Now().Before(deadline) {
		done := a.rt.GetTickNumber() > start
		snap := a.rt.Snapshot()
		if done && !snap.Pending && snap.Loading == 0 {
			return nil
		}
		time.Sleep(a.rt.TickRate())
	}
	return fmt.Errorf("not stable after %v", timeout)
}

// Runtime returns the wrapped runtime.
func (a *TickBasedAdapter[S]) Runtime() *realtime.Runtime[S] { return a.rt }
