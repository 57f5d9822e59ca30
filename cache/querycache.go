// Package cache implements the bounded, TTL'd QueryCache of spec.md
// §4.9. Lookups and eviction are delegated to ristretto; substring-based
// table invalidation needs enumeration ristretto doesn't offer, so this
// package layers a small inverted index (table name -> cache keys) on
// top, maintained alongside every Put.
package cache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/ghiloufibg/nova-sql/sql/executor"
)

const (
	// DefaultMaxEntries is the default bound on resident cache entries.
	DefaultMaxEntries = 1000
	// DefaultTTL is the default entry lifetime.
	DefaultTTL = 300 * time.Second
)

// QueryCache caches executor.Result values by SQL text, per spec.md
// §4.9: TTL'd, size-bounded, invalidated by table-name substring match.
// The bound is enforced by ristretto's sampled-LFU admission and eviction,
// not by strict LRU: a Get does not make an entry most-recently-used, and
// which entry is evicted when the cache is full is not deterministic.
type QueryCache struct {
	store *ristretto.Cache[uint64, *executor.Result]
	ttl   time.Duration

	mu      sync.Mutex
	byTable map[string]map[uint64]string // table -> {key -> original sql}

	log *slog.Logger
}

// New returns a QueryCache with the given bounds.
func New(maxEntries int, ttl time.Duration, log *slog.Logger) (*QueryCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	store, err := ristretto.NewCache(&ristretto.Config[uint64, *executor.Result]{
		NumCounters: int64(maxEntries) * 10,
		MaxCost:     int64(maxEntries),
		BufferItems: 64,
		// Each entry costs 1, so MaxCost bounds the entry count only if
		// ristretto's per-item bookkeeping cost is left out of the total.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &QueryCache{
		store:   store,
		ttl:     ttl,
		byTable: make(map[string]map[uint64]string),
		log:     log,
	}, nil
}

func cacheKey(sql string) uint64 {
	return xxhash.Sum64String(sql)
}

// Get returns the cached result for sql, if present and unexpired.
// ristretto expires entries on its own schedule, so a miss here also
// covers the expired case without extra bookkeeping.
func (c *QueryCache) Get(sql string) (*executor.Result, bool) {
	return c.store.Get(cacheKey(sql))
}

// Put stores result under sql, but only for Select statements, per
// spec.md §4.9.
func (c *QueryCache) Put(sql string, result *executor.Result) {
	if result.Kind != executor.ResultSelect {
		return
	}

	key := cacheKey(sql)
	c.store.SetWithTTL(key, result, 1, c.ttl)
	c.store.Wait()

	tables := referencedTables(sql)
	if len(tables) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tables {
		keys, ok := c.byTable[t]
		if !ok {
			keys = make(map[uint64]string)
			c.byTable[t] = keys
		}
		keys[key] = sql
	}
}

// InvalidateTable drops every cached entry whose SQL text references
// name, per spec.md §4.9's conservative substring rule.
func (c *QueryCache) InvalidateTable(name string) {
	upper := strings.ToUpper(name)

	c.mu.Lock()
	keys := c.byTable[upper]
	delete(c.byTable, upper)
	c.mu.Unlock()

	for key := range keys {
		c.store.Del(key)
	}
	if len(keys) > 0 {
		c.log.Debug("invalidated cache entries for table", "table", name, "count", len(keys))
	}
}

// Clear empties the cache entirely.
func (c *QueryCache) Clear() {
	c.store.Clear()
	c.mu.Lock()
	c.byTable = make(map[string]map[uint64]string)
	c.mu.Unlock()
}

// referencedTables extracts every "FROM <name>" / "JOIN <name>" table
// reference from sql, uppercased, per spec.md §4.9.
func referencedTables(sql string) []string {
	upper := strings.ToUpper(sql)
	var tables []string
	for _, keyword := range []string{"FROM", "JOIN"} {
		idx := 0
		for {
			pos := strings.Index(upper[idx:], keyword+" ")
			if pos < 0 {
				break
			}
			start := idx + pos + len(keyword) + 1
			end := start
			for end < len(upper) && (isIdentChar(upper[end])) {
				end++
			}
			if end > start {
				tables = append(tables, upper[start:end])
			}
			idx = end
			if idx <= start {
				idx = start + 1
			}
		}
	}
	return tables
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
