package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.EpisodeStarted("splash")
	r.EpisodeStarted("splash")
	r.EpisodeCompleted("splash")
	r.EpisodeFailed("menu", []string{"font", ""})
	r.Cleanup("splash", TimerDedicated)
	r.Commit()
	r.NotifyDrop("")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.EpisodesStarted.WithLabelValues("splash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.EpisodesCompleted.WithLabelValues("splash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.EpisodesFailed.WithLabelValues("menu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AssetFailures.WithLabelValues("menu", "font")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AssetFailures.WithLabelValues("menu", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Cleanups.WithLabelValues("splash", TimerDedicated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Commits))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NotifyDrops.WithLabelValues("unknown")))
}

func TestRecorder_Occupancy(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	r.Occupancy(3, 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.LiveBundles))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LoadingBundles))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.EpisodeStarted("x")
		r.EpisodeCompleted("x")
		r.EpisodeFailed("x", []string{"a"})
		r.Cleanup("x", TimerShared)
		r.Commit()
		r.NotifyDrop("loaded")
		r.Occupancy(1, 1)
	})
}
