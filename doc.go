// Package assetstate binds the lifetime of asset bundles to the states of a
// host finite state machine.
//
// A host requests a transition; if the target state requires a bundle the
// engine asks the Loader for one handle per declared asset, polls their
// status once per tick, and only hands the target to the host machine once
// every handle reports Loaded. When the host later exits that state the
// bundle's teardown is armed and runs after a dedicated or shared delay.
//
// # Example Usage
//
//	schema, _ := assetstate.NewSchemaBuilder[AppState]().
//		Bundle("splash").
//		Asset("font", "fonts/FiraSans-Bold.ttf").
//		Asset("image", "images/icon.png").
//		CleanupAfter(2 * time.Second).
//		Done().
//		State(Splash).Requires("splash").CleanupOnExit().
//		Done().
//		Build()
//
//	app, _ := assetstate.NewApp[AppState](assetstate.NewMachine(Boot), loader)
//	_ = app.Install(schema)
//	_ = app.Start(ctx)
//	app.RequestTransition(Splash)
//	for {
//		_ = app.Update(ctx, dt)
//	}
//
// # Tick Ordering
//
// Each Update runs host systems, then the Load Dispatcher, the Progress
// Poller and the Cleanup Scheduler, and finally lets the host machine apply
// its next state. A bundle whose last handle loads during a tick commits
// the transition in that tick.
//
// # Failure Policy
//
// A failed handle abandons the episode: the failure is logged and
// published, the Loading Marker is dropped, and the pending request is left
// in place. There is no automatic retry and no fallback state. Requesting
// the state again tears down the failed instance and starts a fresh episode.
//
// # Concurrency
//
// An App is single-threaded and must be driven from one goroutine. The
// realtime package owns an App on its own tick goroutine and serializes
// requests from other goroutines into it.
package assetstate
