package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/comalice/assetstate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	_ assetstate.Loader   = (*Memory)(nil)
	_ assetstate.Releaser = (*Memory)(nil)
	_ assetstate.Loader   = (*Async)(nil)
	_ assetstate.Releaser = (*Async)(nil)
)

func ref(path string) assetstate.AssetRef {
	return assetstate.AssetRef{Name: filepath.Base(path), Path: path}
}

func TestMemoryScripting(t *testing.T) {
	m := NewMemory()
	a := m.Load(ref("a.png"))
	b := m.Load(ref("b.png"))
	require.NotZero(t, a)
	require.NotEqual(t, a, b)

	assert.Equal(t, assetstate.Pending, m.Status(a))

	m.SetPath("a.png", assetstate.Loaded)
	assert.Equal(t, assetstate.Loaded, m.Status(a))
	assert.Equal(t, assetstate.Pending, m.Status(b))

	// Future loads of a preset path start in that status.
	a2 := m.Load(ref("a.png"))
	assert.Equal(t, assetstate.Loaded, m.Status(a2))
	assert.Equal(t, 2, m.Loads("a.png"))
	assert.Equal(t, 3, m.TotalLoads())

	m.SetHandle(b, assetstate.Failed)
	assert.Equal(t, assetstate.Failed, m.Status(b))

	got, ok := m.Ref(b)
	require.True(t, ok)
	assert.Equal(t, "b.png", got.Path)
}

func TestMemoryRelease(t *testing.T) {
	m := NewMemory()
	h := m.Load(ref("a.png"))
	m.CompleteAll()

	m.Release(h)
	assert.True(t, m.Released(h))
	assert.Equal(t, assetstate.Failed, m.Status(h), "released handles are gone")
	_, ok := m.Ref(h)
	assert.False(t, ok)
	assert.Zero(t, m.Len())

	m.SetPath("a.png", assetstate.Loaded)
	assert.Equal(t, assetstate.Failed, m.Status(h), "released handles stay gone")
	assert.Zero(t, m.Len())

	m.SetHandle(h, assetstate.Loaded)
	assert.Equal(t, assetstate.Failed, m.Status(h))
	assert.Equal(t, assetstate.Failed, m.Status(999))
}

func TestAsyncLoad(t *testing.T) {
	release := make(chan struct{})
	a := NewAsync(FetcherFunc(func(ctx context.Context, r assetstate.AssetRef) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if r.Path == "missing.png" {
			return nil, errors.New("not found")
		}
		return "data:" + r.Path, nil
	}), AsyncConfig{Concurrency: 2})
	defer a.Close()

	ok := a.Load(ref("a.png"))
	bad := a.Load(ref("missing.png"))
	assert.Equal(t, assetstate.Pending, a.Status(ok))
	assert.Equal(t, assetstate.Pending, a.Status(bad))

	close(release)
	require.Eventually(t, func() bool {
		return a.Status(ok) == assetstate.Loaded && a.Status(bad) == assetstate.Failed
	}, time.Second, time.Millisecond)

	v, loaded := a.Value(ok)
	require.True(t, loaded)
	assert.Equal(t, "data:a.png", v)
	assert.EqualError(t, a.Err(bad), "not found")

	_, loaded = a.Value(bad)
	assert.False(t, loaded)

	a.Release(ok)
	assert.Equal(t, assetstate.Failed, a.Status(ok))
	assert.Equal(t, 1, a.Len())
}

func TestAsyncConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int64
	a := NewAsync(DelayFetcher{
		Delay: 5 * time.Millisecond,
		Next: FetcherFunc(func(context.Context, assetstate.AssetRef) (any, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			return nil, nil
		}),
	}, AsyncConfig{Concurrency: 2})

	var handles []assetstate.Handle
	for i := 0; i < 8; i++ {
		handles = append(handles, a.Load(ref("x.png")))
	}
	require.Eventually(t, func() bool {
		for _, h := range handles {
			if a.Status(h) != assetstate.Loaded {
				return false
			}
		}
		return true
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, a.Close())
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestAsyncCloseCancelsInFlight(t *testing.T) {
	a := NewAsync(DelayFetcher{Delay: time.Hour}, AsyncConfig{})
	h := a.Load(ref("slow.png"))

	require.NoError(t, a.Close())
	assert.Equal(t, assetstate.Failed, a.Status(h))
	assert.ErrorIs(t, a.Err(h), context.Canceled)

	late := a.Load(ref("late.png"))
	assert.Equal(t, assetstate.Failed, a.Status(late))
	assert.ErrorIs(t, a.Err(late), ErrClosed)
}

func TestAsyncLoadRacingClose(t *testing.T) {
	a := NewAsync(DelayFetcher{Delay: time.Hour}, AsyncConfig{Concurrency: 2})

	var wg sync.WaitGroup
	handles := make(chan assetstate.Handle, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				handles <- a.Load(ref("x.png"))
			}
		}()
	}
	require.NoError(t, a.Close())
	wg.Wait()
	close(handles)

	// Every fetch started before Close was waited for; later loads fail fast.
	for h := range handles {
		assert.Equal(t, assetstate.Failed, a.Status(h))
		err := a.Err(h)
		assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed), "handle %d: %v", h, err)
	}
}

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fonts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "fonts", "a.ttf"), []byte("glyphs"), 0o644))

	f := FileFetcher{Root: root}
	v, err := f.Fetch(context.Background(), ref("fonts/a.ttf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("glyphs"), v)

	_, err = f.Fetch(context.Background(), ref("fonts/missing.ttf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, ref("fonts/a.ttf"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayFetcherFailure(t *testing.T) {
	f := DelayFetcher{Fail: func(r assetstate.AssetRef) bool { return r.Path == "bad" }}

	v, err := f.Fetch(context.Background(), ref("good"))
	require.NoError(t, err)
	assert.Equal(t, "good", v)

	_, err = f.Fetch(context.Background(), ref("bad"))
	assert.Error(t, err)
}
