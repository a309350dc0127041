package assetstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/testutil"
)

// TestSplashToMainMenu walks Boot -> Splash -> MainMenu the way a game host
// would: a boot system requests Splash, a splash countdown requests
// MainMenu, and the splash bundle is torn down 2s after it is left.
func TestSplashToMainMenu(t *testing.T) {
	app, mem := newScreensApp(t)

	var loaded []assetstate.LoadedEvent
	app.OnLoaded(func(evt assetstate.LoadedEvent) { loaded = append(loaded, evt) })

	app.AddStateSystem("boot", Boot, func(_ context.Context, c *assetstate.Context[AppState]) error {
		c.RequestTransition(Splash)
		return nil
	})
	countdown := assetstate.NewTimer(time.Second)
	app.AddStateSystem("countdown", Splash, func(_ context.Context, c *assetstate.Context[AppState]) error {
		if countdown.Tick(c.Delta()).JustFinished() {
			c.RequestTransition(MainMenu)
		}
		return nil
	})

	// Splash assets trickle in over three ticks.
	testutil.Step(t, app, dt, 1)
	for _, ref := range splashBundle.Assets {
		assert.Equal(t, Boot, app.Machine().Current())
		mem.SetPath(ref.Path, assetstate.Loaded)
		testutil.Step(t, app, dt, 1)
	}
	require.Equal(t, Splash, app.Machine().Current())
	require.Len(t, loaded, 1)
	assert.Equal(t, assetstate.BundleID("splash"), loaded[0].Bundle)
	assert.Len(t, loaded[0].Handles, 3)

	// The countdown fires after 1s; main menu assets are already on disk.
	completeBundle(mem, menuBundle)
	n := testutil.RunUntil(t, app, dt, 20, func() bool { return app.Machine().Current() == MainMenu })
	assert.Equal(t, 10, n)
	require.Len(t, loaded, 2)
	assert.Equal(t, assetstate.BundleID("main_menu"), loaded[1].Bundle)
	assert.True(t, app.Context().Armed("splash"))

	n = testutil.RunUntil(t, app, dt, 40, func() bool { return !app.Context().Registry.Has("splash") })
	assert.Equal(t, 20, n)

	stats := app.Stats()
	assert.Equal(t, uint64(2), stats.Dispatches)
	assert.Equal(t, uint64(2), stats.Completed)
	assert.Equal(t, uint64(2), stats.Commits)
	assert.Equal(t, uint64(6), stats.LoadsIssued)
	assert.Equal(t, uint64(1), stats.Cleanups)
	assert.Zero(t, stats.Failures)
}

func TestSharedAdapterSuite(t *testing.T) {
	for name, mk := range map[string]func(*assetstate.App[AppState]) testutil.RuntimeAdapter[AppState]{
		"Stepped": func(app *assetstate.App[AppState]) testutil.RuntimeAdapter[AppState] {
			return testutil.NewAppAdapter(app, dt)
		},
		"TickBased": func(app *assetstate.App[AppState]) testutil.RuntimeAdapter[AppState] {
			return testutil.NewTickBasedAdapter(app, 2*time.Millisecond)
		},
	} {
		t.Run(name, func(t *testing.T) {
			app, mem := newUnstartedScreensApp(t)
			completeBundle(mem, splashBundle)
			completeBundle(mem, menuBundle)

			adapter := mk(app)
			require.NoError(t, adapter.Start(context.Background()))
			defer adapter.Stop()

			for _, state := range []AppState{Splash, MainMenu, InGame} {
				require.NoError(t, adapter.RequestTransition(state))
				require.NoError(t, adapter.WaitForStability(time.Second))
				assert.Equal(t, state, adapter.GetCurrentState())
			}
		})
	}
}
