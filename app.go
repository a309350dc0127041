package assetstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// System is a host callback run once per tick, before the engine systems.
type System[S comparable] func(ctx context.Context, c *Context[S]) error

type registeredSystem[S comparable] struct {
	name   string
	state  S
	scoped bool
	fn     System[S]
}

type exitKey[S comparable] struct {
	state  S
	bundle BundleID
}

// App wires the engine systems into a host state machine and runs them one
// tick at a time. Within a tick the order is: host systems, Load
// Dispatcher, Progress Poller, Cleanup Scheduler, then the host machine
// applies its next state (which runs exit hooks and may arm cleanup).
type App[S comparable] struct {
	ctx        *Context[S]
	machine    StateMachine[S]
	systems    []registeredSystem[S]
	dispatcher *dispatcher[S]
	exitHooks  map[exitKey[S]]bool
	log        *zap.Logger
}

// NewApp creates an App over machine and loader. Both are required.
func NewApp[S comparable](machine StateMachine[S], loader Loader, opts ...Option) (*App[S], error) {
	if machine == nil {
		return nil, ErrNoMachine
	}
	if loader == nil {
		return nil, ErrNoLoader
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	return &App[S]{
		ctx:        newContext(machine, loader, o.log, o.metrics, o.shared),
		machine:    machine,
		dispatcher: &dispatcher[S]{},
		exitHooks:  make(map[exitKey[S]]bool),
		log:        o.log,
	}, nil
}

// Start enters the machine's initial state.
func (a *App[S]) Start(ctx context.Context) error {
	return a.machine.Start(ctx)
}

// Update runs one tick with time step dt.
func (a *App[S]) Update(ctx context.Context, dt time.Duration) error {
	c := a.ctx
	c.tick++
	c.delta = dt
	c.elapsed += dt

	var errs []error
	for _, sys := range a.systems {
		if sys.scoped && a.machine.Current() != sys.state {
			continue
		}
		if err := sys.fn(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("system %s: %w", sys.name, err))
		}
	}

	a.dispatcher.run(c)
	c.poll()
	c.runCleanup(dt)

	if _, err := a.machine.Apply(ctx); err != nil {
		errs = append(errs, fmt.Errorf("apply state: %w", err))
	}
	return errors.Join(errs...)
}

// RegisterBundle installs a bundle schema and its progress poller.
// Registering an identical schema again is a no-op.
func (a *App[S]) RegisterBundle(bundle BundleSchema) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	c := a.ctx
	if existing, ok := c.bundles[bundle.ID]; ok {
		if !existing.sameDeclaration(bundle) {
			return fmt.Errorf("register %q: %w", bundle.ID, ErrBundleConflict)
		}
	} else {
		bundle.Assets = append([]AssetRef(nil), bundle.Assets...)
		c.bundles[bundle.ID] = bundle
		a.log.Debug("bundle registered", zap.String("bundle", string(bundle.ID)), zap.Int("assets", len(bundle.Assets)))
	}
	if bundle.CleanupDelay > 0 {
		return a.CleanupTimer(bundle.ID, bundle.CleanupDelay)
	}
	return nil
}

// StateAssetLoader binds bundle to state: requesting state loads bundle
// first. Repeated calls with the same arguments do nothing.
func (a *App[S]) StateAssetLoader(state S, bundle BundleSchema) error {
	if err := a.RegisterBundle(bundle); err != nil {
		return err
	}
	return a.bind(state, bundle.ID)
}

func (a *App[S]) bind(state S, id BundleID) error {
	c := a.ctx
	if _, ok := c.bundles[id]; !ok {
		return fmt.Errorf("bind %v: %w %q", state, ErrUnknownBundle, id)
	}
	if prev, ok := c.bindings[state]; ok && prev != id {
		return fmt.Errorf("%w: state %v already requires %q", ErrBundleConflict, state, prev)
	}
	if _, ok := c.bindings[state]; !ok {
		a.log.Debug("state bound to bundle", zap.Any("state", state), zap.String("bundle", string(id)))
	}
	c.bindings[state] = id
	return nil
}

// CleanupOnExit arms teardown of bundle whenever the host exits state.
func (a *App[S]) CleanupOnExit(state S, id BundleID) error {
	if _, ok := a.ctx.bundles[id]; !ok {
		return fmt.Errorf("cleanup on exit of %v: %w %q", state, ErrUnknownBundle, id)
	}
	key := exitKey[S]{state: state, bundle: id}
	if a.exitHooks[key] {
		return nil
	}
	a.exitHooks[key] = true
	c := a.ctx
	a.machine.OnExit(state, func(_ context.Context, _, _ S) error {
		c.armCleanup(id)
		return nil
	})
	return nil
}

// CleanupTimer installs or resizes the dedicated cleanup timer of id.
func (a *App[S]) CleanupTimer(id BundleID, d time.Duration) error {
	if _, ok := a.ctx.bundles[id]; !ok {
		return fmt.Errorf("cleanup timer: %w %q", ErrUnknownBundle, id)
	}
	if d <= 0 {
		return fmt.Errorf("%w: bundle %q: cleanup delay must be positive, got %v", ErrInvalidBundle, id, d)
	}
	cs := a.ctx.cleanup
	if t, ok := cs.dedicated[id]; ok {
		t.SetDuration(d)
		return nil
	}
	cs.dedicated[id] = NewTimer(d)
	// An armed task moves off the shared timer; the shared countdown must
	// not carry its elapsed time over to the next bundle.
	if cs.isArmed(id) && len(cs.sharedUsers()) == 0 {
		cs.shared.Reset()
	}
	return nil
}

// SharedCleanupTimer resizes the shared fallback cleanup timer.
func (a *App[S]) SharedCleanupTimer(d time.Duration) {
	if d <= 0 {
		return
	}
	a.ctx.cleanup.shared.SetDuration(d)
}

// Install validates schema and applies every declaration in it. A schema
// that conflicts with what is already installed changes nothing.
func (a *App[S]) Install(schema *Schema[S]) error {
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("install schema: %w", err)
	}
	if err := a.checkInstalled(schema); err != nil {
		return fmt.Errorf("install schema: %w", err)
	}
	a.SharedCleanupTimer(schema.SharedCleanupDelay)
	for _, b := range schema.Bundles {
		if err := a.RegisterBundle(b); err != nil {
			return err
		}
	}
	for _, sb := range schema.States {
		if err := a.bind(sb.State, sb.Bundle); err != nil {
			return err
		}
		if sb.CleanupOnExit {
			if err := a.CleanupOnExit(sb.State, sb.Bundle); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkInstalled reports every declaration in schema that disagrees with an
// installed bundle or binding.
func (a *App[S]) checkInstalled(schema *Schema[S]) error {
	c := a.ctx
	var errs []error
	for _, b := range schema.Bundles {
		if existing, ok := c.bundles[b.ID]; ok && !existing.sameDeclaration(b) {
			errs = append(errs, fmt.Errorf("register %q: %w", b.ID, ErrBundleConflict))
		}
	}
	for _, sb := range schema.States {
		if prev, ok := c.bindings[sb.State]; ok && prev != sb.Bundle {
			errs = append(errs, fmt.Errorf("%w: state %v already requires %q", ErrBundleConflict, sb.State, prev))
		}
	}
	return errors.Join(errs...)
}

// RequestTransition schedules state, last-write-wins.
func (a *App[S]) RequestTransition(state S) {
	a.ctx.RequestTransition(state)
}

// InitBundle materializes an instance of id outside of any transition.
func (a *App[S]) InitBundle(id BundleID) error { return a.ctx.InitBundle(id) }

// RemoveBundle drops the instance of id immediately.
func (a *App[S]) RemoveBundle(id BundleID) bool { return a.ctx.RemoveBundle(id) }

// Bundle returns the instance of id once it is ready.
func (a *App[S]) Bundle(id BundleID) (*Instance, bool) { return a.ctx.Bundle(id) }

// OnLoaded subscribes fn to load-completion notifications. The returned
// function unsubscribes.
func (a *App[S]) OnLoaded(fn func(LoadedEvent)) func() {
	return a.ctx.loaded.subscribe(fn)
}

// OnLoadFailed subscribes fn to abandoned-episode notifications.
func (a *App[S]) OnLoadFailed(fn func(LoadFailedEvent)) func() {
	return a.ctx.failed.subscribe(fn)
}

// PublishLoaded forwards load-completion notifications to ch without
// blocking. Dropped events are logged and counted.
func (a *App[S]) PublishLoaded(ch chan<- LoadedEvent) func() {
	p := NewChannelPublisher(ch)
	p.OnDrop = func(evt LoadedEvent) {
		a.log.Warn("dropped load notification", zap.String("bundle", string(evt.Bundle)))
		a.ctx.metrics.NotifyDrop("loaded")
	}
	return a.OnLoaded(p.Publish)
}

// PublishLoadFailed forwards abandoned-episode notifications to ch without
// blocking.
func (a *App[S]) PublishLoadFailed(ch chan<- LoadFailedEvent) func() {
	p := NewChannelPublisher(ch)
	p.OnDrop = func(evt LoadFailedEvent) {
		a.log.Warn("dropped load failure notification", zap.String("bundle", string(evt.Bundle)))
		a.ctx.metrics.NotifyDrop("failed")
	}
	return a.OnLoadFailed(p.Publish)
}

// AddSystem runs fn every tick.
func (a *App[S]) AddSystem(name string, fn System[S]) {
	a.systems = append(a.systems, registeredSystem[S]{name: name, fn: fn})
}

// AddStateSystem runs fn on ticks that start with the host in state.
func (a *App[S]) AddStateSystem(name string, state S, fn System[S]) {
	a.systems = append(a.systems, registeredSystem[S]{name: name, state: state, scoped: true, fn: fn})
}

func (a *App[S]) Context() *Context[S] { return a.ctx }

func (a *App[S]) Machine() StateMachine[S] { return a.machine }

func (a *App[S]) Stats() Stats { return a.ctx.stats }

func (a *App[S]) Logger() *zap.Logger { return a.log }
