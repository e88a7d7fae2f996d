// Package backend keeps the registered playback engines and picks one for a media reference.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/projector-cli/projector/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Capability is a named feature a backend may advertise.
type Capability string

const (
	CapOSD            Capability = "osd"
	CapCanvas         Capability = "canvas"
	CapDVDMenus       Capability = "dvd-menus"
	CapDeinterlace    Capability = "deinterlace"
	CapDynamicFilters Capability = "dynamic-filters"
)

// AllCapabilities lists every known capability.
var AllCapabilities = []Capability{CapOSD, CapCanvas, CapDVDMenus, CapDeinterlace, CapDynamicFilters}

// ErrDuplicate is returned when an id is registered twice.
var ErrDuplicate = errors.New("backend already registered")

// Descriptor is what a backend can do. It is filled by the backend's probe
// the first time a selection needs it and not refreshed afterwards.
type Descriptor struct {
	ID           string
	Capabilities map[Capability]struct{}
	Schemes      []string
	Extensions   []string
	Codecs       []string
	Loaded       bool
}

// Has reports whether the descriptor advertises c.
func (d Descriptor) Has(c Capability) bool {
	_, ok := d.Capabilities[c]
	return ok
}

// HasAll reports whether every capability in cs is advertised.
func (d Descriptor) HasAll(cs []Capability) bool {
	return lo.EveryBy(cs, d.Has)
}

// CapabilityList returns the capabilities in a stable order.
func (d Descriptor) CapabilityList() []Capability {
	list := lo.Keys(d.Capabilities)
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Capabilities builds a capability set.
func Capabilities(cs ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(cs))
	for _, c := range cs {
		set[c] = struct{}{}
	}
	return set
}

// Probe describes a backend. It runs at most once per registry.
type Probe func(ctx context.Context) (Descriptor, error)

type entry[T any] struct {
	impl       T
	probe      Probe
	descriptor Descriptor
}

// Registry maps backend ids to an implementation of type T and its descriptor.
type Registry[T any] struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*entry[T]
	log     *log.Logger
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*entry[T]),
		log:     log.For("backend"),
	}
}

// Register adds a backend. Ids are unique.
func (r *Registry[T]) Register(id string, impl T, probe Probe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}

	r.entries[id] = &entry[T]{
		impl:       impl,
		probe:      probe,
		descriptor: Descriptor{ID: id},
	}
	r.order = append(r.order, id)
	return nil
}

// IDs lists backends in registration order.
func (r *Registry[T]) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.order...)
}

// Has reports whether id is registered.
func (r *Registry[T]) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[id]
	return ok
}

// Get returns the implementation registered under id.
func (r *Registry[T]) Get(id string) mo.Option[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return mo.Some(e.impl)
	}
	return mo.None[T]()
}

// Descriptor returns the descriptor of id as it is now; it may not be loaded yet.
func (r *Registry[T]) Descriptor(id string) mo.Option[Descriptor] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return mo.Some(e.descriptor)
	}
	return mo.None[Descriptor]()
}

// Descriptors loads and returns every descriptor in registration order.
func (r *Registry[T]) Descriptors(ctx context.Context) []Descriptor {
	r.load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.order, func(id string, _ int) Descriptor {
		return r.entries[id].descriptor
	})
}
