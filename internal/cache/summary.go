package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"moneymanager/internal/core"
)

// SummaryKey identifies a cached summary for one user. Keys are built from
// the resolved range, never from the raw period, since "this month" changes
// meaning over time.
type SummaryKey struct {
	Range   core.DateRange
	Filters core.Filters
}

func (k SummaryKey) String() string {
	return fmt.Sprintf("%d:%d:%s:%s:%s",
		k.Range.Start.UnixMilli(), k.Range.End.UnixMilli(),
		k.Filters.Division, k.Filters.Account, k.Filters.Category)
}

// Generation identifies the state of a user's summaries at lookup time. A
// summary computed after a miss is stored only if no write for that user has
// invalidated the cache since the lookup returned the generation.
type Generation int64

// noGeneration tells Set to drop the summary.
const noGeneration Generation = -1

// SummaryCache stores folded summaries. Invalidate drops every summary of a
// user; it is called after each successful write for that user.
type SummaryCache interface {
	Get(ctx context.Context, userID string, key SummaryKey) (core.Summary, Generation, bool)
	Set(ctx context.Context, userID string, key SummaryKey, gen Generation, s core.Summary)
	Invalidate(ctx context.Context, userID string)
}

// LRUSummaryCache keeps summaries in process.
type LRUSummaryCache struct {
	lru *LRUCache[core.Summary]

	mu          sync.Mutex
	generations map[string]Generation
}

var _ SummaryCache = (*LRUSummaryCache)(nil)

func NewLRUSummaryCache(lru *LRUCache[core.Summary]) *LRUSummaryCache {
	return &LRUSummaryCache{lru: lru, generations: make(map[string]Generation)}
}

// Cleaner exposes the underlying LRU so a Manager can expire it.
func (c *LRUSummaryCache) Cleaner() Cleaner { return c.lru }

// userPrefix is length-prefixed so one user id can never be a prefix of another's keys.
func userPrefix(userID string) string { return fmt.Sprintf("%d:%s|", len(userID), userID) }

func (c *LRUSummaryCache) Get(_ context.Context, userID string, key SummaryKey) (core.Summary, Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generations[userID]
	s, ok := c.lru.Get(userPrefix(userID) + key.String())
	if !ok {
		return core.Summary{}, gen, false
	}
	return s.Clone(), gen, true
}

func (c *LRUSummaryCache) Set(_ context.Context, userID string, key SummaryKey, gen Generation, s core.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == noGeneration || c.generations[userID] != gen {
		return
	}
	c.lru.Set(userPrefix(userID)+key.String(), s.Clone())
}

func (c *LRUSummaryCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	prefix := userPrefix(userID)
	c.lru.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

// NopSummaryCache never holds anything.
type NopSummaryCache struct{}

func (NopSummaryCache) Get(context.Context, string, SummaryKey) (core.Summary, Generation, bool) {
	return core.Summary{}, noGeneration, false
}
func (NopSummaryCache) Set(context.Context, string, SummaryKey, Generation, core.Summary) {}
func (NopSummaryCache) Invalidate(context.Context, string) {}
