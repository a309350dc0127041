package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/assetstate"
)

// ErrQueueFull is returned when more commands are queued than a tick accepts.
var ErrQueueFull = errors.New("command queue full")

// Runtime drives an assetstate.App at a fixed tick rate from its own
// goroutine. Other goroutines talk to it only through the command queue and
// Snapshot; the embedded App's methods are safe to call directly before
// Start or from inside a Command.
type Runtime[S comparable] struct {
	*assetstate.App[S]

	tickRate time.Duration
	ticker   *time.Ticker
	tickNum  uint64
	log      *zap.Logger

	// Command batching
	batch       []Command[S]
	batchMu     sync.Mutex
	sequenceNum uint64

	snapMu sync.RWMutex
	snap   Snapshot[S]

	// Control
	tickCtx    context.Context
	tickCancel context.CancelFunc
	stopped    chan struct{}
	stopOnce   sync.Once
}

// Config configures the real-time runtime
type Config struct {
	TickRate           time.Duration // Fixed tick rate (e.g., 16.67ms for 60 FPS)
	MaxCommandsPerTick int           // Command queue capacity (default: 1000)
	Logger             *zap.Logger   // default: the App logger
}

// Snapshot is a copy of the engine state taken at the end of a tick.
type Snapshot[S comparable] struct {
	Tick    uint64
	State   S
	Next    S
	Pending bool
	Loading int
	Live    int
	Stats   assetstate.Stats
}

// NewRuntime wraps app in a tick-based runtime.
func NewRuntime[S comparable](app *assetstate.App[S], cfg Config) *Runtime[S] {
	if cfg.MaxCommandsPerTick == 0 {
		cfg.MaxCommandsPerTick = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond // Default 60 FPS
	}
	if cfg.Logger == nil {
		cfg.Logger = app.Logger()
	}

	return &Runtime[S]{
		App:      app,
		tickRate: cfg.TickRate,
		log:      cfg.Logger.Named("realtime"),
		batch:    make([]Command[S], 0, cfg.MaxCommandsPerTick),
		stopped:  make(chan struct{}),
	}
}

// Start enters the initial state and begins tick-based execution.
func (rt *Runtime[S]) Start(ctx context.Context) error {
	if err := rt.App.Start(ctx); err != nil {
		return err
	}
	rt.refreshSnapshot()

	rt.tickCtx, rt.tickCancel = context.WithCancel(ctx)
	rt.ticker = time.NewTicker(rt.tickRate)

	go rt.tickLoop()

	return nil
}

// Stop halts the tick loop and waits for it to exit. Stopping a runtime
// that never started, or stopping twice, is a no-op.
func (rt *Runtime[S]) Stop() error {
	if rt.tickCancel == nil {
		return nil
	}
	rt.stopOnce.Do(func() {
		rt.tickCancel()
		rt.ticker.Stop()
	})
	<-rt.stopped
	return nil
}

// Done is closed once the tick loop has exited.
func (rt *Runtime[S]) Done() <-chan struct{} { return rt.stopped }

// TickRate returns the fixed time step.
func (rt *Runtime[S]) TickRate() time.Duration { return rt.tickRate }

// tickLoop is the main tick execution loop
func (rt *Runtime[S]) tickLoop() {
	defer close(rt.stopped)

	for {
		select {
		case <-rt.tickCtx.Done():
			return
		case <-rt.ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						rt.log.Error("tick panicked", zap.Any("panic", r), zap.Stack("stack"))
					}
				}()
				rt.processTick(rt.tickCtx)
			}()

			rt.batchMu.Lock()
			rt.tickNum++
			rt.batchMu.Unlock()
		}
	}
}

// RequestTransition queues a transition request for the next tick
// (thread-safe).
func (rt *Runtime[S]) RequestTransition(state S) error {
	return rt.Submit(func(_ context.Context, app *assetstate.App[S]) error {
		app.RequestTransition(state)
		return nil
	})
}

// Submit queues fn to run on the tick goroutine before the next Update.
func (rt *Runtime[S]) Submit(fn CommandFunc[S]) error {
	return rt.SubmitWithPriority(fn, 0)
}

// SubmitWithPriority queues fn with priority; higher runs first.
func (rt *Runtime[S]) SubmitWithPriority(fn CommandFunc[S], priority int) error {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	if len(rt.batch) >= cap(rt.batch) {
		return ErrQueueFull
	}

	rt.batch = append(rt.batch, Command[S]{
		Run:         fn,
		SequenceNum: rt.sequenceNum,
		Priority:    priority,
	})
	rt.sequenceNum++

	return nil
}

// GetTickNumber returns the current tick count
func (rt *Runtime[S]) GetTickNumber() uint64 {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	return rt.tickNum
}

// Snapshot returns the engine state as of the last completed tick.
func (rt *Runtime[S]) Snapshot() Snapshot[S] {
	rt.snapMu.RLock()
	defer rt.snapMu.RUnlock()
	return rt.snap
}

// CurrentState returns the committed host state as of the last tick.
func (rt *Runtime[S]) CurrentState() S {
	return rt.Snapshot().State
}
