// Package bufferpool implements the bounded, LRU-evicting page cache
// described in spec.md §4.2. Eviction order must be deterministic (§8,
// testable property 5), so it is built on container/list + a map rather
// than a probabilistic cache — see DESIGN.md for why ristretto, used
// elsewhere in this module, isn't a fit here.
package bufferpool

import (
	"container/list"
	"log/slog"
	"sync"

	"github.com/ghiloufibg/nova-sql/storage/diskmanager"
	"github.com/ghiloufibg/nova-sql/storage/page"
)

// BufferPool is a bounded map of page id -> Page with LRU eviction,
// writing back dirty evictees through a DiskManager.
type BufferPool struct {
	mu       sync.Mutex
	maxPages int
	disk     *diskmanager.DiskManager
	log      *slog.Logger

	entries map[int32]*list.Element // page id -> element in lru, value is *entry
	lru     *list.List               // front = most recently used
}

type entry struct {
	pageID int32
	page   *page.Page
}

// New creates a BufferPool bounded at maxPages resident pages, backed by
// disk for misses and evictee write-back.
func New(maxPages int, disk *diskmanager.DiskManager, log *slog.Logger) *BufferPool {
	if log == nil {
		log = slog.Default()
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &BufferPool{
		maxPages: maxPages,
		disk:     disk,
		log:      log,
		entries:  make(map[int32]*list.Element, maxPages),
		lru:      list.New(),
	}
}

// GetPage returns the cached page for pageID, marking it most-recently
// used. On a cache miss it reads through the DiskManager, fabricating a
// fresh empty page when the DiskManager reports the page doesn't exist
// yet, then inserts it (possibly evicting the LRU entry).
func (bp *BufferPool) GetPage(pageID int32) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if el, ok := bp.entries[pageID]; ok {
		bp.lru.MoveToFront(el)
		bp.log.Debug("buffer pool hit", "page_id", pageID)
		return el.Value.(*entry).page, nil
	}

	bp.log.Debug("buffer pool miss", "page_id", pageID)
	p, err := bp.disk.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = page.New(pageID)
	}

	if err := bp.insert(pageID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// insert adds p to the pool, evicting the LRU entry first if the pool is
// already at capacity. Callers must hold bp.mu.
func (bp *BufferPool) insert(pageID int32, p *page.Page) error {
	if len(bp.entries) >= bp.maxPages {
		if err := bp.evictLRU(); err != nil {
			return err
		}
	}
	el := bp.lru.PushFront(&entry{pageID: pageID, page: p})
	bp.entries[pageID] = el
	return nil
}

// evictLRU drops the least-recently-used entry, flushing it first if
// dirty. Callers must hold bp.mu.
func (bp *BufferPool) evictLRU() error {
	back := bp.lru.Back()
	if back == nil {
		return nil
	}
	ev := back.Value.(*entry)

	if ev.page.IsDirty() {
		if err := bp.disk.WritePage(ev.page); err != nil {
			return err
		}
		ev.page.MarkClean()
	}

	bp.lru.Remove(back)
	delete(bp.entries, ev.pageID)
	bp.log.Debug("evicted page from buffer pool", "page_id", ev.pageID)
	return nil
}

// FlushPage writes pageID through to disk and clears its dirty bit, if it
// is resident and dirty. Flushing an entry not currently resident is a
// no-op.
func (bp *BufferPool) FlushPage(pageID int32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	el, ok := bp.entries[pageID]
	if !ok {
		return nil
	}
	p := el.Value.(*entry).page
	if !p.IsDirty() {
		return nil
	}
	if err := bp.disk.WritePage(p); err != nil {
		return err
	}
	p.MarkClean()
	return nil
}

// FlushAll writes every dirty resident page through to disk and clears
// their dirty bits.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for el := bp.lru.Front(); el != nil; el = el.Next() {
		p := el.Value.(*entry).page
		if !p.IsDirty() {
			continue
		}
		if err := bp.disk.WritePage(p); err != nil {
			return err
		}
		p.MarkClean()
	}
	bp.log.Info("flushed all dirty pages")
	return nil
}

// Size returns the current number of resident pages.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.entries)
}

// MaxPages returns the configured capacity.
func (bp *BufferPool) MaxPages() int { return bp.maxPages }
