package query

import (
	lru "github.com/hashicorp/golang-lru/v2"

	bq "github.com/blevesearch/bleve/v2/search/query"
)

// defaultAutomatonCacheSize bounds the process-wide fuzzy/wildcard
// translation cache (DOMAIN STACK: a second golang-lru/v2 cache,
// separate from internal/segment's open-segment cache). Fuzzy and
// wildcard queries compile a Levenshtein or glob automaton the first
// time bleve's searcher runs them; repeating an identical pattern
// across calls to ToBleve (typeahead, paginated re-queries, a hot
// faceted filter) would otherwise pay that cost again on every call.
const defaultAutomatonCacheSize = 512

type automatonKey struct {
	kind      Kind
	field     string
	value     string
	maxEdits  int
	prefixLen int
	boost     float64
}

var automatonCache = newAutomatonCache(defaultAutomatonCacheSize)

type automatonCacheT struct {
	cache *lru.Cache[automatonKey, bq.Query]
}

func newAutomatonCache(size int) *automatonCacheT {
	if size <= 0 {
		size = defaultAutomatonCacheSize
	}
	c, _ := lru.New[automatonKey, bq.Query](size)
	return &automatonCacheT{cache: c}
}

// fuzzyOrWildcard translates a Fuzzy or Wildcard query node, memoizing
// the result so an identical (field, pattern, params) combination only
// builds bleve's automaton once. bq.Query values are immutable after
// construction (only Boost/Field are set, both derived from the key),
// so a cached entry is safe to hand back to concurrent callers.
func fuzzyOrWildcard(q *Query, build func() bq.Query) bq.Query {
	key := automatonKey{
		kind:      q.Kind,
		field:     q.Field,
		value:     q.Value,
		maxEdits:  q.MaxEdits,
		prefixLen: q.PrefixLen,
		boost:     q.Boost,
	}
	if cached, ok := automatonCache.cache.Get(key); ok {
		return cached
	}
	built := build()
	automatonCache.cache.Add(key, built)
	return built
}
