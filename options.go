package assetstate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/comalice/assetstate/internal/metrics"
)

// Option applies configuration to an App via functional options pattern.
type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics *metrics.Recorder
	shared  time.Duration
}

// WithLogger configures the App logger. Without it the App logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics registers the engine instruments with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = metrics.NewRecorder(reg)
	}
}

// WithSharedCleanupDelay sets the shared fallback cleanup delay.
// Non-positive values keep DefaultSharedCleanupDelay.
func WithSharedCleanupDelay(d time.Duration) Option {
	return func(o *options) {
		o.shared = d
	}
}
