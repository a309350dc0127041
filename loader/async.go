package loader

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/comalice/assetstate"
)

// ErrClosed is reported for loads issued after Close.
var ErrClosed = errors.New("loader closed")

// Fetcher retrieves the content of one asset. It may block; Async runs it
// off the tick goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, ref assetstate.AssetRef) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref assetstate.AssetRef) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref assetstate.AssetRef) (any, error) {
	return f(ctx, ref)
}

// AsyncConfig configures an Async loader.
type AsyncConfig struct {
	Concurrency int64       // concurrent fetches (default: 4)
	Logger      *zap.Logger // default: no-op
}

// Async issues each Load as a background fetch. Load and Status never
// block; at most Concurrency fetches run at once.
type Async struct {
	fetch  Fetcher
	log    *zap.Logger
	sem    *semaphore.Weighted
	g      *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	next    assetstate.Handle
	entries map[assetstate.Handle]*asyncEntry
	closed  bool
}

type asyncEntry struct {
	ref    assetstate.AssetRef
	status assetstate.LoadStatus
	value  any
	err    error
}

// NewAsync creates an Async loader over f.
func NewAsync(f Fetcher, cfg AsyncConfig) *Async {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	return &Async{
		fetch:   f,
		log:     cfg.Logger,
		sem:     semaphore.NewWeighted(cfg.Concurrency),
		g:       g,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[assetstate.Handle]*asyncEntry),
	}
}

// Load starts fetching ref and returns its handle immediately.
func (a *Async) Load(ref assetstate.AssetRef) assetstate.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next++
	h := a.next
	e := &asyncEntry{ref: ref, status: assetstate.Pending}
	a.entries[h] = e
	if a.closed {
		e.status = assetstate.Failed
		e.err = ErrClosed
		return h
	}

	// Under mu: every fetch admitted before Close is in the group it waits on.
	a.g.Go(func() error {
		if err := a.sem.Acquire(a.ctx, 1); err != nil {
			a.finish(h, nil, err)
			return nil
		}
		defer a.sem.Release(1)

		v, err := a.fetch.Fetch(a.ctx, ref)
		a.finish(h, v, err)
		return nil
	})
	return h
}

func (a *Async) finish(h assetstate.Handle, v any, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[h]
	if !ok {
		// Released while in flight.
		return
	}
	if err != nil {
		e.status = assetstate.Failed
		e.err = err
		a.log.Debug("fetch failed", zap.String("path", e.ref.Path), zap.Error(err))
		return
	}
	e.status = assetstate.Loaded
	e.value = v
}

// Status reports the status of h. Unknown handles are Failed.
func (a *Async) Status(h assetstate.Handle) assetstate.LoadStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.entries[h]
	if !ok {
		return assetstate.Failed
	}
	return e.status
}

// Value returns the fetched content of a loaded handle.
func (a *Async) Value(h assetstate.Handle) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.entries[h]
	if !ok || e.status != assetstate.Loaded {
		return nil, false
	}
	return e.value, true
}

// Err returns the fetch error of a failed handle.
func (a *Async) Err(h assetstate.Handle) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if e, ok := a.entries[h]; ok {
		return e.err
	}
	return nil
}

// Release drops the content of h. An in-flight fetch for h is discarded
// when it completes.
func (a *Async) Release(h assetstate.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, h)
}

// Len returns the number of handles currently held.
func (a *Async) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Close cancels in-flight fetches and waits for them to return.
func (a *Async) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	return a.g.Wait()
}
