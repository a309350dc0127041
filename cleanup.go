package assetstate

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/assetstate/internal/metrics"
)

// cleanupScheduler tracks armed Cleanup Tasks. Each bundle is Idle or Armed;
// an armed bundle is governed by its dedicated timer when one is configured,
// otherwise by the single shared timer.
type cleanupScheduler struct {
	armed     map[BundleID]time.Time
	dedicated map[BundleID]*Timer
	shared    *Timer
}

func newCleanupScheduler(shared time.Duration) *cleanupScheduler {
	if shared <= 0 {
		shared = DefaultSharedCleanupDelay
	}
	return &cleanupScheduler{
		armed:     make(map[BundleID]time.Time),
		dedicated: make(map[BundleID]*Timer),
		shared:    NewTimer(shared),
	}
}

func (cs *cleanupScheduler) isArmed(id BundleID) bool {
	_, ok := cs.armed[id]
	return ok
}

func (cs *cleanupScheduler) disarm(id BundleID) {
	if _, ok := cs.armed[id]; !ok {
		return
	}
	delete(cs.armed, id)
	if t, ok := cs.dedicated[id]; ok {
		t.Reset()
	}
	if len(cs.sharedUsers()) == 0 {
		cs.shared.Reset()
	}
}

// sharedUsers returns the armed bundles without a dedicated timer, sorted.
func (cs *cleanupScheduler) sharedUsers() []BundleID {
	var ids []BundleID
	for id := range cs.armed {
		if _, ok := cs.dedicated[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (cs *cleanupScheduler) dedicatedUsers() []BundleID {
	var ids []BundleID
	for id := range cs.armed {
		if _, ok := cs.dedicated[id]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Armed reports whether a Cleanup Task is armed for id.
func (c *Context[S]) Armed(id BundleID) bool {
	return c.cleanup.isArmed(id)
}

// armCleanup moves id from Idle to Armed. Nothing happens when no instance
// is registered or a task is already armed.
func (c *Context[S]) armCleanup(id BundleID) {
	if !c.Registry.Has(id) {
		c.log.Debug("no bundle instance to clean up", zap.String("bundle", string(id)))
		return
	}
	if c.cleanup.isArmed(id) {
		return
	}
	c.log.Debug("cleanup triggered", zap.String("bundle", string(id)), zap.Duration("delay", c.cleanupDelay(id)))
	c.cleanup.armed[id] = time.Now()
}

func (c *Context[S]) cleanupDelay(id BundleID) time.Duration {
	if t, ok := c.cleanup.dedicated[id]; ok {
		return t.Duration()
	}
	return c.cleanup.shared.Duration()
}

// runCleanup advances the timers governing armed bundles by dt and tears
// down every bundle whose timer expired.
func (c *Context[S]) runCleanup(dt time.Duration) {
	cs := c.cleanup
	if len(cs.armed) == 0 {
		return
	}

	for _, id := range cs.dedicatedUsers() {
		t := cs.dedicated[id]
		if t.Tick(dt).JustFinished() {
			c.finishCleanup(id, metrics.TimerDedicated)
			t.Reset()
		}
	}

	shared := cs.sharedUsers()
	if len(shared) == 0 {
		return
	}
	if cs.shared.Tick(dt).JustFinished() {
		for _, id := range shared {
			c.finishCleanup(id, metrics.TimerShared)
		}
		cs.shared.Reset()
	}
}

func (c *Context[S]) finishCleanup(id BundleID, timer string) {
	armedAt := c.cleanup.armed[id]
	delete(c.cleanup.armed, id)
	if c.teardown(id) {
		c.stats.Cleanups++
		c.metrics.Cleanup(string(id), timer)
	}
	c.updateOccupancy()
	c.log.Debug("cleaning up",
		zap.String("bundle", string(id)),
		zap.String("timer", timer),
		zap.Duration("wall", time.Since(armedAt)))
}
