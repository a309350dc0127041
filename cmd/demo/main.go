// Command demo runs a Boot -> Splash -> MainMenu -> InGame screen flow on
// the realtime runtime, loading each screen's bundle before entering it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/comalice/assetstate"
	"github.com/comalice/assetstate/loader"
	"github.com/comalice/assetstate/manifest"
	"github.com/comalice/assetstate/realtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	first, err := firstState(cfg.AppState)
	if err != nil {
		return err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	log, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	m, err := loadManifest(cfg.Manifest)
	if err != nil {
		return err
	}

	var fetch loader.Fetcher
	if cfg.AssetRoot != "" {
		fetch = loader.FileFetcher{Root: cfg.AssetRoot}
	}
	assets := loader.NewAsync(loader.DelayFetcher{Next: fetch, Delay: cfg.LoadLatency}, loader.AsyncConfig{
		Logger: log.Named("loader"),
	})
	defer assets.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	app, err := assetstate.NewApp[AppState](assetstate.NewMachine(Boot), assets,
		assetstate.WithLogger(log),
		assetstate.WithMetrics(reg),
	)
	if err != nil {
		return err
	}
	if err := installScreens(app, m); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Leave once the game starts.
	app.AddStateSystem("quit", InGame, func(context.Context, *assetstate.Context[AppState]) error {
		stop()
		return nil
	})

	loaded := make(chan assetstate.LoadedEvent, 8)
	app.PublishLoaded(loaded)
	failed := make(chan assetstate.LoadFailedEvent, 8)
	app.PublishLoadFailed(failed)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	rt := realtime.NewRuntime(app, realtime.Config{TickRate: cfg.TickRate})
	if err := rt.RequestTransition(first); err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		return err
	}
	defer rt.Stop()

	if cfg.ManifestWatch {
		w, err := manifest.NewWatcher(cfg.Manifest, manifest.WatchConfig{Logger: log.Named("manifest")})
		if err != nil {
			return err
		}
		go func() {
			_ = w.Run(ctx, func(m *manifest.Manifest) {
				if err := rt.Submit(reinstall(m)); err != nil {
					log.Warn("manifest reload dropped", zap.Error(err))
				}
			})
		}()
	}

	for {
		select {
		case evt := <-loaded:
			log.Info("bundle loaded",
				zap.String("bundle", string(evt.Bundle)),
				zap.Stringer("episode", evt.Episode),
				zap.Uint64("tick", evt.Tick))
		case evt := <-failed:
			for _, f := range evt.Failed {
				log.Warn("bundle failed", zap.String("bundle", string(evt.Bundle)), zap.String("path", f.Asset.Path))
			}
		case <-ctx.Done():
			_ = rt.Stop()
			snap := rt.Snapshot()
			log.Info("shutting down",
				zap.Stringer("state", snap.State),
				zap.Uint64("ticks", snap.Tick),
				zap.Uint64("commits", snap.Stats.Commits),
				zap.Uint64("cleanups", snap.Stats.Cleanups))
			fmt.Println(rt.ExportDOT())
			return nil
		}
	}
}
