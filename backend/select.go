package backend

import (
	"context"
	"sort"

	"github.com/projector-cli/projector/mrl"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

const probeConcurrency = 4

type selection struct {
	ref       mrl.Ref
	required  []Capability
	exclude   []string
	forced    string
	preferred string
}

// SelectOption narrows a selection.
type SelectOption func(*selection)

func WithReference(ref mrl.Ref) SelectOption {
	return func(s *selection) {
		s.ref = ref
	}
}

// WithCapabilities requires every listed capability.
func WithCapabilities(cs ...Capability) SelectOption {
	return func(s *selection) {
		s.required = append(s.required, cs...)
	}
}

func WithExclude(ids ...string) SelectOption {
	return func(s *selection) {
		s.exclude = append(s.exclude, ids...)
	}
}

// WithForced picks id without any filtering, as long as it is registered.
func WithForced(id string) SelectOption {
	return func(s *selection) {
		s.forced = id
	}
}

// WithPreferred breaks ties in favour of id.
func WithPreferred(id string) SelectOption {
	return func(s *selection) {
		s.preferred = id
	}
}

// Select picks the backend that should play a reference.
// No match is not an error; the caller decides whether it is fatal.
func (r *Registry[T]) Select(ctx context.Context, opts ...SelectOption) mo.Option[string] {
	var s selection
	for _, opt := range opts {
		opt(&s)
	}

	r.load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) == 0 {
		return mo.None[string]()
	}

	if s.ref.IsZero() && len(s.required) == 0 && len(s.exclude) == 0 && s.forced == "" {
		if _, ok := r.entries[s.preferred]; ok {
			return mo.Some(s.preferred)
		}
		return mo.Some(r.order[0])
	}

	if s.forced != "" {
		if _, ok := r.entries[s.forced]; ok {
			return mo.Some(s.forced)
		}
		r.log.Warnf("forced backend %q is not registered", s.forced)
	}

	candidates := r.filter(s)
	if len(candidates) == 0 {
		return mo.None[string]()
	}

	r.rank(s, candidates)
	return mo.Some(candidates[0].ID)
}

func (r *Registry[T]) filter(s selection) []Descriptor {
	var survivors []Descriptor

	for _, id := range r.order {
		d := r.entries[id].descriptor

		switch {
		case lo.Contains(s.exclude, id):
			continue
		case !s.ref.IsZero() && !lo.Contains(d.Schemes, s.ref.Scheme()):
			continue
		case !d.HasAll(s.required):
			continue
		}

		survivors = append(survivors, d)
	}

	return survivors
}

// rank orders candidates best first. Earlier criteria dominate later ones, and
// registration order is kept when everything else ties.
func (r *Registry[T]) rank(s selection, candidates []Descriptor) {
	ext := s.ref.Ext()
	disc := s.ref.Scheme() == mrl.DVD

	score := func(d Descriptor) int {
		var points int
		if ext != "" && lo.Contains(d.Extensions, ext) {
			points += 4
		}
		if disc && d.Has(CapDVDMenus) {
			points += 2
		}
		if s.preferred != "" && d.ID == s.preferred {
			points++
		}
		return points
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})
}

// load runs every probe that has not run yet. A failing probe leaves its
// backend loaded with nothing advertised, so it never matches a filtered selection.
func (r *Registry[T]) load(ctx context.Context) {
	r.mu.Lock()
	pending := lo.Filter(r.order, func(id string, _ int) bool {
		return !r.entries[id].descriptor.Loaded
	})
	probes := lo.Map(pending, func(id string, _ int) Probe {
		return r.entries[id].probe
	})
	r.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	results := make([]Descriptor, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for i, id := range pending {
		i, id := i, id // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			results[i] = r.runProbe(gctx, id, probes[i])
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range pending {
		if e := r.entries[id]; !e.descriptor.Loaded {
			e.descriptor = results[i]
		}
	}
}

func (r *Registry[T]) runProbe(ctx context.Context, id string, probe Probe) Descriptor {
	empty := Descriptor{ID: id, Capabilities: Capabilities(), Loaded: true}

	if probe == nil {
		return empty
	}

	d, err := probe(ctx)
	if err != nil {
		r.log.Warnf("probe %s: %v", id, err)
		return empty
	}

	d.ID = id
	d.Loaded = true
	if d.Capabilities == nil {
		d.Capabilities = Capabilities()
	}
	return d
}
