// Package history persists the playback position of every played reference so it can be resumed.
package history

import (
	"sort"
	"time"

	"github.com/metafates/gache"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const (
	// Positions closer than this to the end count as watched to the end.
	finishedMargin = 0.05
	// Positions before this are not worth resuming from.
	minResume = 5.0
)

var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every saved entry keyed by reference.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Sorted returns the saved entries, most recently played first.
func Sorted() ([]*Entry, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PlayedAt.After(entries[j].PlayedAt)
	})
	return entries, nil
}

// Save records where playback of ref stopped.
func Save(ref mrl.Ref, engine string, position, length float64) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	entry := &Entry{
		Ref:      ref.String(),
		Engine:   engine,
		Position: position,
		Length:   length,
		PlayedAt: time.Now(),
	}
	entry.Finished = length > 0 && position >= length*(1-finishedMargin)

	saved[entry.Ref] = entry
	return cacher.Set(saved)
}

// Resume returns the position to continue ref from, if there is one worth continuing.
func Resume(ref mrl.Ref) mo.Option[float64] {
	saved, err := Get()
	if err != nil {
		return mo.None[float64]()
	}

	entry, ok := saved[ref.String()]
	if !ok || entry.Finished || entry.Position < minResume {
		return mo.None[float64]()
	}
	return mo.Some(entry.Position)
}

// Remove forgets ref.
func Remove(ref mrl.Ref) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, ref.String())
	return cacher.Set(saved)
}
