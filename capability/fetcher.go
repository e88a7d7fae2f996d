package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/log"
	"golang.org/x/sync/singleflight"
)

// ErrNoBinary is returned when the engine binary to describe does not exist.
var ErrNoBinary = errors.New("engine binary not found")

// Probe runs an engine binary and reports what it supports.
type Probe func(ctx context.Context, path string) (Info, error)

// Result is delivered once by FetchAsync.
type Result struct {
	Info Info
	Err  error
}

// Fetcher resolves Info for engine binaries, consulting the cache before probing.
// Concurrent requests for the same binary share one probe run.
type Fetcher struct {
	cache Cache
	probe Probe
	group singleflight.Group
	log   *log.Logger
}

// NewFetcher creates a Fetcher over cache using probe for misses.
func NewFetcher(cache Cache, probe Probe) *Fetcher {
	return &Fetcher{
		cache: cache,
		probe: probe,
		log:   log.For("capability"),
	}
}

// Fetch returns the Info for the binary at path, probing it if no entry matches its current mod time.
func (f *Fetcher) Fetch(ctx context.Context, path string) (Info, error) {
	stat, err := filesystem.API().Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrNoBinary, path)
	}

	key := NewKey(path, stat.ModTime())
	if info, ok := f.cache.Get(key).Get(); ok {
		return info, nil
	}

	v, err, shared := f.group.Do(fmt.Sprintf("%s@%d", key.Path, key.ModTime), func() (any, error) {
		f.log.Infof("probing %s", path)

		info, err := f.probe(ctx, path)
		if err != nil {
			return Info{}, err
		}

		info.ModTime = key.ModTime
		if err := f.cache.Set(key, info); err != nil {
			f.log.Warnf("caching capabilities of %s: %v", path, err)
		}
		return info, nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", path, err)
	}

	if shared {
		f.log.Debugf("shared probe result for %s", path)
	}
	return v.(Info), nil
}

// FetchAsync runs Fetch on its own goroutine.
// The returned channel yields exactly one Result and is then closed.
func (f *Fetcher) FetchAsync(ctx context.Context, path string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		info, err := f.Fetch(ctx, path)
		out <- Result{Info: info, Err: err}
	}()
	return out
}
