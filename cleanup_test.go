package assetstate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/loader"
	"github.com/comalice/assetstate/testutil"
)

// enter requests state and steps until it is committed.
func enter(t *testing.T, app *assetstate.App[AppState], state AppState) {
	t.Helper()
	app.RequestTransition(state)
	testutil.RunUntil(t, app, dt, 10, func() bool { return app.Machine().Current() == state })
}

func TestDedicatedCleanupFiresOnce(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, splashBundle)
	completeBundle(mem, menuBundle)

	enter(t, app, Splash)
	splash, ok := app.Bundle("splash")
	require.True(t, ok)

	enter(t, app, MainMenu)
	require.True(t, app.Context().Armed("splash"))

	testutil.Step(t, app, dt, 19)
	assert.True(t, app.Context().Registry.Has("splash"), "still alive before 2s")

	testutil.Step(t, app, dt, 1)
	assert.False(t, app.Context().Registry.Has("splash"), "removed once 2s elapsed")
	assert.False(t, app.Context().Armed("splash"))
	for _, h := range splash.Handles {
		assert.True(t, mem.Released(h))
	}

	testutil.Step(t, app, dt, 50)
	assert.Equal(t, uint64(1), app.Stats().Cleanups)
	assert.True(t, app.Context().Registry.Has("main_menu"), "current state's bundle is untouched")
}

func TestSharedCleanupFiresAfterFiveSeconds(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, menuBundle)

	enter(t, app, MainMenu)
	enter(t, app, InGame)
	require.True(t, app.Context().Armed("main_menu"))

	n := testutil.RunUntil(t, app, dt, 100, func() bool { return !app.Context().Registry.Has("main_menu") })
	assert.Equal(t, 50, n)
	assert.Equal(t, uint64(1), app.Stats().Cleanups)
}

func TestSharedTimerReuseHasNoCarryOver(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, menuBundle)
	gone := func() bool { return !app.Context().Registry.Has("main_menu") }

	for round := 1; round <= 3; round++ {
		enter(t, app, MainMenu)
		enter(t, app, InGame)
		n := testutil.RunUntil(t, app, dt, 100, gone)
		assert.Equal(t, 50, n, "round %d", round)
	}
	assert.Equal(t, uint64(3), app.Stats().Cleanups)
	assert.Equal(t, 9, mem.TotalLoads())
}

func TestSharedTimerExpiresTogether(t *testing.T) {
	const (
		A AppState = iota + 10
		B
		C
	)
	mem := loader.NewMemory()
	app, err := assetstate.NewApp[AppState](assetstate.NewMachine(Boot), mem)
	require.NoError(t, err)

	schema, err := assetstate.NewSchemaBuilder[AppState]().
		Bundle("a").Asset("x", "a.png").Done().
		Bundle("b").Asset("x", "b.png").Done().
		State(A).Requires("a").CleanupOnExit().Done().
		State(B).Requires("b").CleanupOnExit().Done().
		Build()
	require.NoError(t, err)
	require.NoError(t, app.Install(schema))
	mem.SetPath("a.png", assetstate.Loaded)
	mem.SetPath("b.png", assetstate.Loaded)

	enter(t, app, A)
	enter(t, app, B)
	require.True(t, app.Context().Armed("a"))

	testutil.Step(t, app, dt, 19)
	enter(t, app, C)
	require.True(t, app.Context().Armed("b"))

	testutil.Step(t, app, dt, 29)
	assert.Equal(t, []assetstate.BundleID{"a", "b"}, app.Context().Registry.Live())

	testutil.Step(t, app, dt, 1)
	assert.Empty(t, app.Context().Registry.Live(), "bundles on the shared timer expire together")
}

func TestDedicatedTimerWhileArmedResetsSharedTimer(t *testing.T) {
	const Credits AppState = 20
	app, mem := newScreensApp(t)
	completeBundle(mem, menuBundle)

	enter(t, app, MainMenu)
	enter(t, app, InGame)
	require.True(t, app.Context().Armed("main_menu"))
	testutil.Step(t, app, dt, 30)

	require.NoError(t, app.CleanupTimer("main_menu", 10*time.Second))

	credits := assetstate.BundleSchema{ID: "credits", Assets: []assetstate.AssetRef{{Name: "roll", Path: "credits.png"}}}
	require.NoError(t, app.StateAssetLoader(Credits, credits))
	require.NoError(t, app.CleanupOnExit(Credits, "credits"))
	completeBundle(mem, credits)

	enter(t, app, Credits)
	enter(t, app, InGame)
	require.True(t, app.Context().Armed("credits"))

	n := testutil.RunUntil(t, app, dt, 100, func() bool { return !app.Context().Registry.Has("credits") })
	assert.Equal(t, 50, n, "shared countdown restarts from zero")
	assert.True(t, app.Context().Registry.Has("main_menu"), "main_menu follows its dedicated timer")
}

func TestSharedCleanupDelayOverrides(t *testing.T) {
	mem := loader.NewMemory()
	app, err := assetstate.NewApp[AppState](assetstate.NewMachine(Boot), mem,
		assetstate.WithSharedCleanupDelay(time.Second))
	require.NoError(t, err)
	require.NoError(t, app.Install(screensSchema(t)))
	completeBundle(mem, menuBundle)

	enter(t, app, MainMenu)
	enter(t, app, InGame)
	n := testutil.RunUntil(t, app, dt, 100, func() bool { return !app.Context().Registry.Has("main_menu") })
	assert.Equal(t, 10, n)

	app.SharedCleanupTimer(300 * time.Millisecond)
	enter(t, app, MainMenu)
	enter(t, app, InGame)
	n = testutil.RunUntil(t, app, dt, 100, func() bool { return !app.Context().Registry.Has("main_menu") })
	assert.Equal(t, 3, n)
}

func TestCleanupSkippedWithoutInstance(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, splashBundle)

	enter(t, app, Splash)
	require.True(t, app.RemoveBundle("splash"))
	enter(t, app, InGame)

	assert.False(t, app.Context().Armed("splash"), "nothing to clean up")
	testutil.Step(t, app, dt, 30)
	assert.Zero(t, app.Stats().Cleanups)
}

func TestRemoveBundleDisarmsCleanup(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, splashBundle)

	enter(t, app, Splash)
	enter(t, app, InGame)
	require.True(t, app.Context().Armed("splash"))

	assert.True(t, app.RemoveBundle("splash"))
	assert.False(t, app.Context().Armed("splash"))
	assert.False(t, app.RemoveBundle("splash"))

	testutil.Step(t, app, dt, 30)
	assert.Zero(t, app.Stats().Cleanups)
}

func TestReenterWhileArmedReusesInstance(t *testing.T) {
	app, mem := newScreensApp(t)
	completeBundle(mem, splashBundle)

	enter(t, app, Splash)
	enter(t, app, InGame)
	require.True(t, app.Context().Armed("splash"))

	enter(t, app, Splash)
	assert.Equal(t, 3, mem.TotalLoads(), "armed instance is reused")
	assert.True(t, app.Context().Armed("splash"), "the armed task keeps running")

	testutil.RunUntil(t, app, dt, 20, func() bool { return !app.Context().Registry.Has("splash") })
	assert.Equal(t, Splash, app.Machine().Current())
}
