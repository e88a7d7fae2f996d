// Package query ranks previously played references and suggests them for partial input.
package query

import (
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// MaxRecords bounds the stored references. The lowest ranked go first.
const MaxRecords = 500

type record struct {
	Rank int    `json:"rank"`
	Ref  string `json:"ref"`
}

type records = map[string]*record

var store = gache.New[records](&gache.Options{
	Path:       where.Queries(),
	FileSystem: &filesystem.GacheFs{},
})

var (
	mu      sync.Mutex
	matches = make(map[string][]*record)
)

func load() records {
	cached, expired, err := store.Get()
	if expired || err != nil || cached == nil {
		return make(records)
	}
	return cached
}

// Remember records a played reference or raises its rank by weight.
func Remember(ref string, weight int) error {
	mu.Lock()
	defer mu.Unlock()

	ref = sanitize(ref)
	all := load()
	if r, ok := all[ref]; ok {
		r.Rank += weight
	} else {
		all[ref] = &record{Rank: weight, Ref: ref}
	}

	prune(all)
	clear(matches)
	return store.Set(all)
}

// Forget drops a reference so it is no longer suggested.
func Forget(ref string) error {
	mu.Lock()
	defer mu.Unlock()

	all := load()
	delete(all, sanitize(ref))
	clear(matches)
	return store.Set(all)
}

// prune keeps the MaxRecords best ranked references.
func prune(all records) {
	if len(all) <= MaxRecords {
		return
	}
	ranked := lo.Values(all)
	sortByRank(ranked)
	for _, r := range ranked[MaxRecords:] {
		delete(all, r.Ref)
	}
}

func sortByRank(rs []*record) {
	slices.SortFunc(rs, func(a, b *record) int {
		if a.Rank != b.Rank {
			return b.Rank - a.Rank
		}
		return strings.Compare(a.Ref, b.Ref)
	})
}

// Suggest returns the best ranked reference matching q.
func Suggest(q string) mo.Option[string] {
	return mo.TupleToOption(lo.First(SuggestMany(q)))
}

// SuggestMany returns the references matching q, highest rank first.
func SuggestMany(q string) []string {
	if !viper.GetBool(key.HistorySuggest) {
		return []string{}
	}

	mu.Lock()
	defer mu.Unlock()

	q = sanitize(q)
	found, ok := matches[q]
	if !ok {
		found = lo.Filter(lo.Values(load()), func(r *record, _ int) bool {
			return fuzzy.MatchFold(q, r.Ref)
		})
		sortByRank(found)
		matches[q] = found
	}

	return lo.Map(found, func(r *record, _ int) string { return r.Ref })
}

// References are paths and urls, so only surrounding space is dropped.
func sanitize(q string) string {
	return strings.TrimSpace(q)
}
