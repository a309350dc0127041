package assetstate

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/assetstate/internal/metrics"
)

// Stats counts engine activity since the App was created.
type Stats struct {
	Dispatches  uint64 // scheduler changes acted on by the dispatcher
	LoadsIssued uint64 // Loader.Load calls
	Completed   uint64 // episodes where every handle loaded
	Failures    uint64 // episodes abandoned after a failed handle
	Commits     uint64 // transitions handed to the host machine
	Cleanups    uint64 // instances torn down by the cleanup scheduler
}

// Context is the engine state shared by every per-tick system: the bundle
// registry, the transition scheduler, cleanup bookkeeping and the host
// collaborators. It is passed by pointer into each system invocation and is
// not safe for concurrent use.
type Context[S comparable] struct {
	Registry  *Registry
	Scheduler *Scheduler[S]

	machine  StateMachine[S]
	loader   Loader
	bundles  map[BundleID]BundleSchema
	bindings map[S]BundleID
	cleanup  *cleanupScheduler

	loaded notifier[LoadedEvent]
	failed notifier[LoadFailedEvent]

	log     *zap.Logger
	metrics *metrics.Recorder
	stats   Stats

	tick    uint64
	delta   time.Duration
	elapsed time.Duration
}

func newContext[S comparable](machine StateMachine[S], loader Loader, log *zap.Logger, rec *metrics.Recorder, shared time.Duration) *Context[S] {
	return &Context[S]{
		Registry:  NewRegistry(),
		Scheduler: NewScheduler[S](log.Named("scheduler")),
		machine:   machine,
		loader:    loader,
		bundles:   make(map[BundleID]BundleSchema),
		bindings:  make(map[S]BundleID),
		cleanup:   newCleanupScheduler(shared),
		log:       log,
		metrics:   rec,
	}
}

// Tick returns the number of the tick in progress, starting at 1.
func (c *Context[S]) Tick() uint64 { return c.tick }

// Delta returns the time step of the tick in progress.
func (c *Context[S]) Delta() time.Duration { return c.delta }

// Elapsed returns the sum of all tick deltas so far.
func (c *Context[S]) Elapsed() time.Duration { return c.elapsed }

// CurrentState returns the host's committed state.
func (c *Context[S]) CurrentState() S { return c.machine.Current() }

// RequestTransition schedules state with last-write-wins semantics.
func (c *Context[S]) RequestTransition(state S) {
	c.Scheduler.Request(state)
}

// Logger returns the engine logger for use by host systems.
func (c *Context[S]) Logger() *zap.Logger { return c.log }

func (c *Context[S]) Stats() Stats { return c.stats }

// RequiredBundle returns the bundle bound to state, if any.
func (c *Context[S]) RequiredBundle(state S) (BundleID, bool) {
	id, ok := c.bindings[state]
	return id, ok
}

// Bundle returns the instance for id once its loading episode succeeded.
// Loading and failed instances are never handed out.
func (c *Context[S]) Bundle(id BundleID) (*Instance, bool) {
	inst, ok := c.Registry.Get(id)
	if !ok || inst.status != InstanceReady || c.Registry.Loading(id) {
		return nil, false
	}
	return inst, true
}

// InitBundle materializes an instance of id and sets its Loading Marker.
// An already registered instance is kept and only the marker is set again
// so the poller re-evaluates it. A failed instance is torn down and a fresh
// episode starts.
func (c *Context[S]) InitBundle(id BundleID) error {
	schema, ok := c.bundles[id]
	if !ok {
		return fmt.Errorf("init %q: %w", id, ErrUnknownBundle)
	}
	if c.loader == nil {
		panic("assetstate: InitBundle called without a handle loader")
	}

	if inst, exists := c.Registry.Get(id); exists && inst.status == InstanceFailed {
		c.log.Debug("retrying failed bundle",
			zap.String("bundle", string(id)),
			zap.Stringer("episode", inst.Episode))
		c.cleanup.disarm(id)
		c.teardown(id)
	}

	if inst, exists := c.Registry.Get(id); exists {
		c.log.Debug("bundle already registered, re-checking",
			zap.String("bundle", string(id)),
			zap.Stringer("episode", inst.Episode),
			zap.Stringer("status", inst.status))
		inst.status = InstanceLoading
		c.Registry.markLoading(id)
		c.updateOccupancy()
		return nil
	}

	c.log.Debug("initializing bundle", zap.String("bundle", string(id)), zap.Int("assets", len(schema.Assets)))
	inst := &Instance{
		Bundle:  id,
		Episode: newEpisodeID(),
		Assets:  append([]AssetRef(nil), schema.Assets...),
		Handles: make([]Handle, len(schema.Assets)),
		Created: c.tick,
		status:  InstanceLoading,
	}
	for i, ref := range schema.Assets {
		inst.Handles[i] = c.loader.Load(ref)
		c.stats.LoadsIssued++
	}
	c.Registry.create(inst)
	c.Registry.markLoading(id)
	c.metrics.EpisodeStarted(string(id))
	c.updateOccupancy()
	return nil
}

// RemoveBundle drops the instance of id along with its Loading Marker and
// any armed cleanup task, releasing its handles. Reports whether an
// instance was registered.
func (c *Context[S]) RemoveBundle(id BundleID) bool {
	c.cleanup.disarm(id)
	c.Registry.clearLoading(id)
	removed := c.teardown(id)
	c.updateOccupancy()
	return removed
}

// teardown unregisters the instance of id and releases its handles.
func (c *Context[S]) teardown(id BundleID) bool {
	inst, ok := c.Registry.remove(id)
	if !ok {
		return false
	}
	if r, ok := c.loader.(Releaser); ok {
		for _, h := range inst.Handles {
			r.Release(h)
		}
	}
	return true
}

// commit hands state to the host machine and clears the pending request.
func (c *Context[S]) commit(state S) {
	c.machine.SetNext(state)
	c.Scheduler.Clear()
	c.stats.Commits++
	c.metrics.Commit()
}

func (c *Context[S]) updateOccupancy() {
	c.metrics.Occupancy(c.Registry.Len(), len(c.Registry.loading))
}
