// Package capability caches what an external engine build supports, keyed by the binary's path and modification time.
package capability

import (
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Key identifies one engine build. Replacing the binary changes ModTime and invalidates cached entries.
type Key struct {
	Path    string
	ModTime int64
}

// NewKey builds a Key from a path and the binary's modification time.
func NewKey(path string, modTime time.Time) Key {
	return Key{Path: path, ModTime: modTime.UnixNano()}
}

// Info is an engine's self-description, gathered once per build.
type Info struct {
	Version      string            `json:"version"`
	ModTime      int64             `json:"mtime"`
	VideoFilters map[string]string `json:"video_filters"`
	VideoDrivers map[string]string `json:"video_drivers"`
	AudioFilters map[string]string `json:"audio_filters"`
	AudioDrivers map[string]string `json:"audio_drivers"`
	Keylist      []string          `json:"keylist"`
}

// NewInfo returns an Info with all tables allocated.
func NewInfo() Info {
	return Info{
		VideoFilters: make(map[string]string),
		VideoDrivers: make(map[string]string),
		AudioFilters: make(map[string]string),
		AudioDrivers: make(map[string]string),
	}
}

// HasVideoFilter reports whether the engine ships the named video filter.
func (i Info) HasVideoFilter(name string) bool {
	_, ok := i.VideoFilters[name]
	return ok
}

// HasVideoDriver reports whether the engine ships the named video output.
func (i Info) HasVideoDriver(name string) bool {
	_, ok := i.VideoDrivers[name]
	return ok
}

// Empty reports whether nothing at all was learned about the engine.
func (i Info) Empty() bool {
	return i.Version == "" &&
		len(i.VideoFilters)+len(i.VideoDrivers)+len(i.AudioFilters)+len(i.AudioDrivers)+len(i.Keylist) == 0
}

// Cache maps engine builds to their Info.
// A lookup with a Key whose ModTime differs from the stored entry is a miss.
type Cache interface {
	Get(Key) mo.Option[Info]
	Set(Key, Info) error
}

type entry struct {
	ModTime int64 `json:"mtime"`
	Info    Info  `json:"info"`
}

func (e entry) match(k Key) mo.Option[Info] {
	if e.ModTime != k.ModTime {
		return mo.None[Info]()
	}
	return mo.Some(e.Info)
}

// Summary lists the table sizes of an Info, handy for logs and CLI output.
func (i Info) Summary() map[string]int {
	return lo.MapValues(map[string]map[string]string{
		"video filters": i.VideoFilters,
		"video drivers": i.VideoDrivers,
		"audio filters": i.AudioFilters,
		"audio drivers": i.AudioDrivers,
	}, func(m map[string]string, _ string) int {
		return len(m)
	})
}
