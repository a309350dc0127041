package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchConfig configures a Watcher.
type WatchConfig struct {
	Debounce time.Duration // quiet period before reloading (default: 250ms)
	Logger   *zap.Logger   // default: no-op
}

// Watcher reloads a manifest file whenever it changes on disk. Invalid
// revisions are logged and skipped.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *zap.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching path. The parent directory is watched so that
// editors which replace the file on save are seen too.
func NewWatcher(path string, cfg WatchConfig) (*Watcher, error) {
	if _, err := FormatOf(path); err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	path = filepath.Clean(path)
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &Watcher{path: path, debounce: cfg.Debounce, log: cfg.Logger, fsw: fsw}, nil
}

// Run delivers each valid revision of the manifest to fn until ctx is
// done. fn runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(*Manifest)) error {
	defer w.fsw.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.log.Debug("manifest changed", zap.String("path", w.path), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("manifest watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			m, err := Load(w.path)
			if err != nil {
				w.log.Warn("manifest reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Info("manifest reloaded", zap.String("path", w.path), zap.Int("bundles", len(m.Bundles)))
			fn(m)
		}
	}
}
