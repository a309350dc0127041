// Package realtime provides a fixed-timestep runtime for an assetstate App.
//
// The runtime owns the App on a single goroutine and differs from stepping
// the App by hand only in how work reaches it:
//   - Requests from other goroutines are queued and applied at tick boundaries
//   - Deterministic command ordering via priority and sequence numbers
//   - Fixed time-step execution (e.g., 60 FPS), so cleanup timers advance
//     by exactly TickRate per tick
//
// # Example Usage
//
//	app, _ := assetstate.NewApp[AppState](assetstate.NewMachine(Boot), loader)
//	_ = app.Install(schema)
//	rt := realtime.NewRuntime(app, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//	})
//	rt.Start(ctx)
//	rt.RequestTransition(Splash)
//
// # Command Ordering Guarantees
//
// Commands queued for the same tick run before the engine systems, ordered by:
//  1. Priority (higher priority processed first)
//  2. Sequence number (FIFO for same priority)
//
// A tick accepts at most MaxCommandsPerTick commands; Submit reports
// ErrQueueFull beyond that.
//
// # Failure Handling
//
// A panic inside a tick is recovered and logged, and the loop keeps
// ticking. Errors returned by Update or by a command are logged.
package realtime
