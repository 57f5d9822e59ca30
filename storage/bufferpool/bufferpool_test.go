package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/ghiloufibg/nova-sql/storage/diskmanager"
)

func newTestPool(t *testing.T, maxPages int) *BufferPool {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	dm, err := diskmanager.Open(dir, "testdb", nil)
	if err != nil {
		t.Fatalf("diskmanager.Open failed: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return New(maxPages, dm, nil)
}

func TestGetPageFabricatesFreshPage(t *testing.T) {
	bp := newTestPool(t, 4)

	p, err := bp.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if p.ID() != 0 {
		t.Errorf("expected page id 0, got %d", p.ID())
	}
	if p.RecordCount() != 0 {
		t.Errorf("expected a fresh empty page, got %d records", p.RecordCount())
	}
}

func TestGetPageCachesAcrossCalls(t *testing.T) {
	bp := newTestPool(t, 4)

	first, err := bp.GetPage(1)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	first.InsertRecord([]byte("x"))

	second, err := bp.GetPage(1)
	if err != nil {
		t.Fatalf("second GetPage failed: %v", err)
	}
	if second.RecordCount() != 1 {
		t.Errorf("expected the mutation to be visible on the cached page, got %d records", second.RecordCount())
	}
}

func TestEvictionIsLRU(t *testing.T) {
	bp := newTestPool(t, 2)

	if _, err := bp.GetPage(0); err != nil {
		t.Fatalf("GetPage(0) failed: %v", err)
	}
	if _, err := bp.GetPage(1); err != nil {
		t.Fatalf("GetPage(1) failed: %v", err)
	}
	// Touch page 0 so it becomes most-recently-used.
	if _, err := bp.GetPage(0); err != nil {
		t.Fatalf("re-GetPage(0) failed: %v", err)
	}
	// Page 1 is now least-recently-used and should be evicted.
	if _, err := bp.GetPage(2); err != nil {
		t.Fatalf("GetPage(2) failed: %v", err)
	}

	if bp.Size() != 2 {
		t.Errorf("expected pool size to stay at capacity 2, got %d", bp.Size())
	}
	if _, ok := bp.entries[1]; ok {
		t.Error("expected least-recently-used page 1 to be evicted")
	}
	if _, ok := bp.entries[0]; !ok {
		t.Error("expected recently touched page 0 to stay resident")
	}
}

func TestFlushAllClearsDirtyBit(t *testing.T) {
	bp := newTestPool(t, 4)

	p, err := bp.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	p.InsertRecord([]byte("dirty"))
	if !p.IsDirty() {
		t.Fatal("expected page to be dirty after insert")
	}

	if err := bp.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}
	if p.IsDirty() {
		t.Error("expected FlushAll to clear the dirty bit")
	}
}

func TestMaxPages(t *testing.T) {
	bp := newTestPool(t, 7)
	if bp.MaxPages() != 7 {
		t.Errorf("expected MaxPages 7, got %d", bp.MaxPages())
	}
}
