package assetstate

import "go.uber.org/zap"

// poll is the Progress Poller. It inspects every bundle with a Loading
// Marker and resolves the episode on full success or on any failure.
func (c *Context[S]) poll() {
	for _, id := range c.Registry.LoadingBundles() {
		c.pollBundle(id)
	}
}

func (c *Context[S]) pollBundle(id BundleID) {
	log := c.log.With(zap.String("bundle", string(id)))

	inst, ok := c.Registry.Get(id)
	if !ok {
		log.Warn("loading marker without a bundle instance, dropping it")
		c.Registry.clearLoading(id)
		c.updateOccupancy()
		return
	}
	log.Debug("checking assets", zap.Stringer("episode", inst.Episode))

	allLoaded := true
	var failed []FailedAsset
	for i, h := range inst.Handles {
		switch c.loader.Status(h) {
		case Loaded:
		case Failed:
			allLoaded = false
			failed = append(failed, FailedAsset{Asset: inst.Assets[i], Handle: h})
		default:
			allLoaded = false
		}
	}

	if len(failed) > 0 {
		c.abandon(inst, failed)
		return
	}
	if !allLoaded {
		return
	}

	log.Debug("assets have been loaded", zap.Stringer("episode", inst.Episode))
	inst.status = InstanceReady
	c.Registry.clearLoading(id)
	c.stats.Completed++
	c.metrics.EpisodeCompleted(string(id))
	c.updateOccupancy()

	c.loaded.publish(LoadedEvent{
		Bundle:  id,
		Episode: inst.Episode,
		Handles: append([]Handle(nil), inst.Handles...),
		Tick:    c.tick,
	})

	state, pending := c.Scheduler.Pending()
	if !pending {
		log.Debug("bundle loaded with no transition pending")
		return
	}
	if required, ok := c.bindings[state]; !ok || required != id {
		log.Debug("bundle loaded for a superseded request, not committing", zap.Any("pending", state))
		return
	}
	c.commit(state)
}

// abandon reports a failed episode. The instance and the pending request
// stay as they are; the host decides what happens next.
func (c *Context[S]) abandon(inst *Instance, failed []FailedAsset) {
	names := make([]string, 0, len(failed))
	for _, f := range failed {
		c.log.Error("could not load asset",
			zap.String("bundle", string(inst.Bundle)),
			zap.String("asset", f.Asset.Name),
			zap.String("path", f.Asset.Path),
			zap.Uint64("handle", uint64(f.Handle)))
		names = append(names, f.Asset.Name)
	}

	inst.status = InstanceFailed
	c.Registry.clearLoading(inst.Bundle)
	c.stats.Failures++
	c.metrics.EpisodeFailed(string(inst.Bundle), names)
	c.updateOccupancy()

	if state, ok := c.Scheduler.Pending(); ok {
		if required, bound := c.bindings[state]; bound && required == inst.Bundle {
			c.Scheduler.abandon()
		}
	}

	c.failed.publish(LoadFailedEvent{
		Bundle:  inst.Bundle,
		Episode: inst.Episode,
		Failed:  failed,
		Tick:    c.tick,
	})
}
