package player

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/capability"
)

// Backend pairs an engine with the fetcher that describes its binary.
// The same fetcher serves the registry probe and every session, so the
// engine is probed once per build.
type Backend struct {
	Engine  Engine
	Fetcher *capability.Fetcher
}

// NewBackend wraps e with a fetcher over cache.
func NewBackend(e Engine, cache capability.Cache) *Backend {
	return &Backend{
		Engine:  e,
		Fetcher: capability.NewFetcher(cache, e.Capabilities),
	}
}

// Probe is the registry probe of the backend.
func (b *Backend) Probe() backend.Probe {
	return func(ctx context.Context) (backend.Descriptor, error) {
		path, err := exec.LookPath(b.Engine.Binary())
		if err != nil {
			return backend.Descriptor{}, fmt.Errorf("%w: %s", ErrEngineNotFound, b.Engine.Binary())
		}

		info, err := b.Fetcher.Fetch(ctx, path)
		if err != nil {
			return backend.Descriptor{}, err
		}

		return b.Engine.Describe(info), nil
	}
}

// Session starts a session on the backend's engine.
func (b *Backend) Session(opts ...Option) (*Session, error) {
	return New(b.Engine, append([]Option{WithFetcher(b.Fetcher)}, opts...)...)
}

// Register adds e to reg.
func Register(reg *backend.Registry[*Backend], e Engine, cache capability.Cache) error {
	b := NewBackend(e, cache)
	return reg.Register(e.ID(), b, b.Probe())
}

// RegisterDefaults registers mplayer and mpv, in that order. Empty paths mean PATH lookup.
func RegisterDefaults(reg *backend.Registry[*Backend], cache capability.Cache, mplayerPath, mpvPath string) error {
	for _, e := range []Engine{NewMPlayer(mplayerPath), NewMPV(mpvPath)} {
		if err := Register(reg, e, cache); err != nil {
			return err
		}
	}
	return nil
}
