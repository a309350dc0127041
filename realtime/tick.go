package realtime

import (
	"context"

	"go.uber.org/zap"
)

// processTick processes one complete tick
func (rt *Runtime[S]) processTick(ctx context.Context) {
	// Phase 1: Collect commands atomically
	cmds := rt.collectCommands()

	// Phase 2: Sort for deterministic order
	sortCommands(cmds)

	// Phase 3: Apply queued commands to the App
	rt.processCommands(ctx, cmds)

	// Phase 4: Run the engine systems with a fixed time step
	if err := rt.App.Update(ctx, rt.tickRate); err != nil {
		rt.log.Error("update failed", zap.Uint64("tick", rt.Context().Tick()), zap.Error(err))
	}

	// Phase 5: Publish a snapshot for other goroutines
	rt.refreshSnapshot()
}

// collectCommands atomically retrieves and clears the command batch
func (rt *Runtime[S]) collectCommands() []Command[S] {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	cmds := rt.batch
	rt.batch = make([]Command[S], 0, cap(rt.batch))

	return cmds
}

func (rt *Runtime[S]) processCommands(ctx context.Context, cmds []Command[S]) {
	for _, cmd := range cmds {
		if err := cmd.Run(ctx, rt.App); err != nil {
			rt.log.Warn("command failed", zap.Uint64("seq", cmd.SequenceNum), zap.Error(err))
		}
	}
}

func (rt *Runtime[S]) refreshSnapshot() {
	c := rt.Context()
	next, pending := c.Scheduler.Pending()
	snap := Snapshot[S]{
		Tick:    c.Tick(),
		State:   c.CurrentState(),
		Next:    next,
		Pending: pending,
		Loading: len(c.Registry.LoadingBundles()),
		Live:    c.Registry.Len(),
		Stats:   c.Stats(),
	}

	rt.snapMu.Lock()
	rt.snap = snap
	rt.snapMu.Unlock()
}
