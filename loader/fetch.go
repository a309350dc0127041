package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/comalice/assetstate"
)

// FileFetcher reads assets from a directory tree.
type FileFetcher struct {
	Root string
}

func (f FileFetcher) Fetch(ctx context.Context, ref assetstate.AssetRef) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.Root, filepath.FromSlash(ref.Path)))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.Path, err)
	}
	return data, nil
}

// DelayFetcher wraps another Fetcher with simulated latency. Paths for which
// Fail returns true fail after the delay.
type DelayFetcher struct {
	Next  Fetcher
	Delay time.Duration
	Fail  func(ref assetstate.AssetRef) bool
}

func (f DelayFetcher) Fetch(ctx context.Context, ref assetstate.AssetRef) (any, error) {
	if f.Delay > 0 {
		t := time.NewTimer(f.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if f.Fail != nil && f.Fail(ref) {
		return nil, fmt.Errorf("fetch %s: simulated failure", ref.Path)
	}
	if f.Next == nil {
		return ref.Path, nil
	}
	return f.Next.Fetch(ctx, ref)
}
