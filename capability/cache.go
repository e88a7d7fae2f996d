package capability

import (
	"sync"

	"github.com/metafates/gache"
	"github.com/projector-cli/projector/filesystem"
	"github.com/samber/mo"
)

type memory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory returns a process-lifetime Cache.
func NewMemory() Cache {
	return &memory{entries: make(map[string]entry)}
}

func (m *memory) Get(k Key) mo.Option[Info] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[k.Path]
	if !ok {
		return mo.None[Info]()
	}
	return e.match(k)
}

func (m *memory) Set(k Key, info Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[k.Path] = entry{ModTime: k.ModTime, Info: info}
	return nil
}

// cacheData defines the structured format for persisting entries to disk.
type cacheData struct {
	Engines map[string]entry `json:"engines"`
}

type persistent struct {
	internal *gache.Cache[*cacheData]
	front    Cache
	mu       sync.Mutex
}

// NewPersistent returns a Cache stored as JSON at path and fronted by an in-memory copy.
// Entries never expire on their own; a changed binary is the only invalidation.
func NewPersistent(path string) Cache {
	return &persistent{
		internal: gache.New[*cacheData](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
		front: NewMemory(),
	}
}

func (p *persistent) Get(k Key) mo.Option[Info] {
	if hit := p.front.Get(k); hit.IsPresent() {
		return hit
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data, expired, err := p.internal.Get()
	if err != nil || expired || data == nil {
		return mo.None[Info]()
	}

	e, ok := data.Engines[k.Path]
	if !ok {
		return mo.None[Info]()
	}

	hit := e.match(k)
	if info, ok := hit.Get(); ok {
		_ = p.front.Set(k, info)
	}
	return hit
}

func (p *persistent) Set(k Key, info Info) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.front.Set(k, info)

	data, expired, err := p.internal.Get()
	if err != nil {
		return err
	}

	if expired || data == nil || data.Engines == nil {
		data = &cacheData{Engines: make(map[string]entry)}
	}

	data.Engines[k.Path] = entry{ModTime: k.ModTime, Info: info}
	return p.internal.Set(data)
}
