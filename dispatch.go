package assetstate

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dispatcher is the Load Dispatcher. It acts once per change of the
// scheduler generation.
type dispatcher[S comparable] struct {
	seen uint64
}

func (d *dispatcher[S]) run(c *Context[S]) {
	gen := c.Scheduler.Generation()
	if gen == d.seen {
		return
	}
	d.seen = gen

	state, ok := c.Scheduler.Pending()
	if !ok {
		return
	}
	c.stats.Dispatches++
	c.log.Debug("try to load assets for state, if any", zap.Any("state", state))

	id, ok := c.bindings[state]
	if !ok {
		c.log.Debug("no assets required for state, transiting to it directly", zap.Any("state", state))
		c.commit(state)
		return
	}

	if err := c.InitBundle(id); err != nil {
		// Bindings are only created for registered bundles.
		c.log.Error("dispatch failed", zap.Any("state", state), zap.Error(err))
	}
}

func newEpisodeID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
