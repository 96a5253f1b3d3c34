package dispatch

import (
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ordervox/ordervox/pkg/types"
)

// cacheKey identifies a cacheable command: intent name plus the sorted
// type:value entity pairs, scoped per session. Keying by struct keeps
// distinct commands from colliding the way ad-hoc string concatenation can.
type cacheKey struct {
	Intent    types.IntentName
	Entities  string
	SessionID string
}

// ResultCache is a TTL-bounded LRU over inquiry results. Only read-only
// inquiry-class intents are cacheable; mutating commands never enter the
// cache. Entries expire after the configured TTL and the LRU bound caps
// memory.
type ResultCache struct {
	lru *expirable.LRU[cacheKey, *types.Result]
}

// NewResultCache creates a cache with the given capacity and entry TTL.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		lru: expirable.NewLRU[cacheKey, *types.Result](size, nil, ttl),
	}
}

// Cacheable reports whether results for this intent may be cached.
func Cacheable(name types.IntentName) bool {
	return types.CategoryOf(name) == types.CategoryInquiry
}

// keyFor derives the cache key for a command. Entity pairs are sorted so the
// key is independent of extraction order.
func keyFor(cmd *types.Command) cacheKey {
	pairs := make([]string, 0, len(cmd.Entities))
	for _, e := range cmd.Entities {
		pairs = append(pairs, string(e.Type)+":"+e.Normalized)
	}
	sort.Strings(pairs)
	return cacheKey{
		Intent:    cmd.Intent.Name,
		Entities:  strings.Join(pairs, "|"),
		SessionID: cmd.SessionID,
	}
}

// Get returns a copy of the cached result for the command, marked FromCache,
// or nil on miss.
func (c *ResultCache) Get(cmd *types.Command) *types.Result {
	res, ok := c.lru.Get(keyFor(cmd))
	if !ok {
		return nil
	}
	cp := *res
	cp.FromCache = true
	return &cp
}

// Put stores a successful inquiry result. Failures and results for
// non-cacheable intents are ignored.
func (c *ResultCache) Put(cmd *types.Command, res *types.Result) {
	if res == nil || !res.Success || !Cacheable(cmd.Intent.Name) {
		return
	}
	c.lru.Add(keyFor(cmd), res)
}

// InvalidateSession drops every cached entry belonging to the session. Called
// after a mutating command succeeds so cart and menu inquiries never serve
// state from before the mutation.
func (c *ResultCache) InvalidateSession(sessionID string) {
	for _, key := range c.lru.Keys() {
		if key.SessionID == sessionID {
			c.lru.Remove(key)
		}
	}
}

// Len returns the number of live cache entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}
