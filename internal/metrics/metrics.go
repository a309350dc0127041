// Package metrics holds the Prometheus instruments of the asset state engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Timer labels for cleanup counters.
const (
	TimerDedicated = "dedicated"
	TimerShared    = "shared"
)

// Recorder groups the engine instruments. A nil *Recorder records nothing,
// so callers never need to check whether metrics are enabled.
type Recorder struct {
	EpisodesStarted   *prometheus.CounterVec
	EpisodesCompleted *prometheus.CounterVec
	EpisodesFailed    *prometheus.CounterVec
	AssetFailures     *prometheus.CounterVec
	Cleanups          *prometheus.CounterVec
	Commits           prometheus.Counter
	NotifyDrops       *prometheus.CounterVec
	LiveBundles       prometheus.Gauge
	LoadingBundles    prometheus.Gauge
}

// NewRecorder registers the engine instruments with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		EpisodesStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assetstate_episodes_started_total",
			Help: "Loading episodes started, by bundle",
		}, []string{"bundle"}),
		EpisodesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assetstate_episodes_completed_total",
			Help: "Loading episodes where every handle reported loaded, by bundle",
		}, []string{"bundle"}),
		EpisodesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assetstate_episodes_failed_total",
			Help: "Loading episodes abandoned after a handle failed, by bundle",
		}, []string{"bundle"}),
		AssetFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assetstate_asset_failures_total",
			Help: "Individual asset handles observed in the failed state",
		}, []string{"bundle", "asset"}),
		Cleanups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assetstate_cleanups_total",
			Help: "Bundle instances torn down after their owning state exited",
		}, []string{"bundle", "timer"}),
		Commits: f.NewCounter(prometheus.CounterOpts{
			Name: "assetstate_transitions_committed_total",
			Help: "Scheduled transitions handed to the host state machine",
		}),
		NotifyDrops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assetstate_notifications_dropped_total",
			Help: "Notifications dropped by channel publishers (backpressure)",
		}, []string{"kind"}),
		LiveBundles: f.NewGauge(prometheus.GaugeOpts{
			Name: "assetstate_bundles_live",
			Help: "Bundle instances currently registered",
		}),
		LoadingBundles: f.NewGauge(prometheus.GaugeOpts{
			Name: "assetstate_bundles_loading",
			Help: "Bundles with a loading episode in flight",
		}),
	}
}

func (r *Recorder) EpisodeStarted(bundle string) {
	if r == nil {
		return
	}
	r.EpisodesStarted.WithLabelValues(bundle).Inc()
}

func (r *Recorder) EpisodeCompleted(bundle string) {
	if r == nil {
		return
	}
	r.EpisodesCompleted.WithLabelValues(bundle).Inc()
}

// EpisodeFailed records one failed episode and every asset that failed in it.
func (r *Recorder) EpisodeFailed(bundle string, assets []string) {
	if r == nil {
		return
	}
	r.EpisodesFailed.WithLabelValues(bundle).Inc()
	for _, a := range assets {
		if a == "" {
			a = "unknown"
		}
		r.AssetFailures.WithLabelValues(bundle, a).Inc()
	}
}

func (r *Recorder) Cleanup(bundle, timer string) {
	if r == nil {
		return
	}
	r.Cleanups.WithLabelValues(bundle, timer).Inc()
}

func (r *Recorder) Commit() {
	if r == nil {
		return
	}
	r.Commits.Inc()
}

// NotifyDrop records a notification dropped on a full channel.
func (r *Recorder) NotifyDrop(kind string) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	r.NotifyDrops.WithLabelValues(kind).Inc()
}

// Occupancy sets the live and loading bundle gauges.
func (r *Recorder) Occupancy(live, loading int) {
	if r == nil {
		return
	}
	r.LiveBundles.Set(float64(live))
	r.LoadingBundles.Set(float64(loading))
}
