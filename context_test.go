package assetstate

import (
	"context"
	"testing"
	"time"
)

type releasingLoader struct {
	*statusLoader
	released []Handle
}

func (l *releasingLoader) Release(h Handle) { l.released = append(l.released, h) }

func TestContextRequiredBundle(t *testing.T) {
	app := newTestApp(t, newStatusLoader())
	c := app.Context()

	if id, ok := c.RequiredBundle("splash"); !ok || id != "splash" {
		t.Fatalf("RequiredBundle(splash) = %q, %v", id, ok)
	}
	if _, ok := c.RequiredBundle("game"); ok {
		t.Error("game has no bundle")
	}
}

func TestContextBundleOnlyWhenReady(t *testing.T) {
	l := newStatusLoader()
	app := newTestApp(t, l)
	c := app.Context()

	if err := c.InitBundle("splash"); err != nil {
		t.Fatalf("InitBundle: %v", err)
	}
	if _, ok := c.Bundle("splash"); ok {
		t.Fatal("loading instance must not be handed out")
	}

	l.status["fonts/a.ttf"] = Loaded
	l.status["audio/b.wav"] = Loaded
	c.poll()
	inst, ok := c.Bundle("splash")
	if !ok {
		t.Fatal("expected ready instance")
	}

	// Re-initializing a ready instance re-checks it without new loads.
	if err := c.InitBundle("splash"); err != nil {
		t.Fatalf("InitBundle: %v", err)
	}
	if inst.Status() != InstanceLoading {
		t.Errorf("status = %v, want loading", inst.Status())
	}
	if c.Stats().LoadsIssued != 2 {
		t.Errorf("loads issued = %d, want 2", c.Stats().LoadsIssued)
	}
	c.poll()
	if inst.Status() != InstanceReady {
		t.Errorf("status = %v, want ready", inst.Status())
	}
}

func TestContextTeardownReleasesHandles(t *testing.T) {
	l := &releasingLoader{statusLoader: newStatusLoader()}
	app := newTestApp(t, l)
	c := app.Context()

	if err := c.InitBundle("splash"); err != nil {
		t.Fatalf("InitBundle: %v", err)
	}
	inst, _ := c.Registry.Get("splash")

	if !c.RemoveBundle("splash") {
		t.Fatal("RemoveBundle reported no instance")
	}
	if len(l.released) != len(inst.Handles) {
		t.Fatalf("released %d handles, want %d", len(l.released), len(inst.Handles))
	}
	if c.Registry.Loading("splash") {
		t.Error("marker should be cleared with the instance")
	}
}

func TestContextClock(t *testing.T) {
	app := newTestApp(t, newStatusLoader())
	ctx := context.Background()

	for _, dt := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond} {
		if err := app.Update(ctx, dt); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	c := app.Context()
	if c.Tick() != 2 || c.Delta() != 20*time.Millisecond || c.Elapsed() != 30*time.Millisecond {
		t.Errorf("tick=%d delta=%v elapsed=%v", c.Tick(), c.Delta(), c.Elapsed())
	}
	if c.CurrentState() != "boot" {
		t.Errorf("state = %q", c.CurrentState())
	}
}
