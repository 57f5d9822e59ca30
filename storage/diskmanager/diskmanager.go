// Package diskmanager owns the single append-and-seek capable data file
// backing one database, per spec.md §4.1.
package diskmanager

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/storage/page"
)

const fileExtension = ".ndb"

// DiskManager reads and writes fixed-size pages at page-indexed offsets of
// a single file <dir>/<dbName>.ndb, creating the directory if missing.
type DiskManager struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	dbName   string
	log      *slog.Logger
}

// Open creates dataDir if needed and opens (or creates) dataDir/dbName.ndb
// for random-access read/write.
func Open(dataDir, dbName string, log *slog.Logger) (*DiskManager, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, dberr.WrapIO(err, "create data directory %s", dataDir)
	}

	path := filepath.Join(dataDir, dbName+fileExtension)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, dberr.WrapIO(err, "open database file %s", path)
	}

	log.Info("opened database file", "path", path)
	return &DiskManager{file: f, path: path, dbName: dbName, log: log}, nil
}

// ReadPage seeks to pageID*page.Size and reads exactly page.Size bytes. A
// page id past EOF, or a short read, returns (nil, nil) per spec.md §4.1 —
// the caller (BufferPool) treats that as "page does not yet exist".
func (dm *DiskManager) ReadPage(pageID int32) (*page.Page, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(pageID) * int64(page.Size)

	info, err := dm.file.Stat()
	if err != nil {
		return nil, dberr.WrapIO(err, "stat database file")
	}
	if offset >= info.Size() {
		return nil, nil
	}

	buf := make([]byte, page.Size)
	n, err := dm.file.ReadAt(buf, offset)
	if n < page.Size {
		dm.log.Warn("short page read", "page_id", pageID, "bytes_read", n)
		return nil, nil
	}
	if err != nil {
		return nil, dberr.WrapIO(err, "read page %d", pageID)
	}

	p, err := page.Load(pageID, buf)
	if err != nil {
		// A page-id mismatch on load is a fatal load error per spec.md §3.
		return nil, dberr.WrapIO(err, "load page %d", pageID)
	}
	return p, nil
}

// WritePage seeks and writes exactly page.Size bytes, then syncs the file
// to durable storage before returning. Failure is fatal per spec.md §4.1.
func (dm *DiskManager) WritePage(p *page.Page) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(p.ID()) * int64(page.Size)
	if _, err := dm.file.WriteAt(p.Bytes(), offset); err != nil {
		return dberr.WrapIO(err, "write page %d", p.ID())
	}
	if err := dm.file.Sync(); err != nil {
		return dberr.WrapIO(err, "sync page %d", p.ID())
	}
	dm.log.Debug("wrote page to disk", "page_id", p.ID())
	return nil
}

// AllocateNewPage extends the file by one page.Size and returns its id,
// computed as the current file length divided by page.Size.
func (dm *DiskManager) AllocateNewPage() (int32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	info, err := dm.file.Stat()
	if err != nil {
		return 0, dberr.WrapIO(err, "stat database file")
	}

	newID := int32(info.Size() / int64(page.Size))
	if err := dm.file.Truncate(info.Size() + int64(page.Size)); err != nil {
		return 0, dberr.WrapIO(err, "allocate page %d", newID)
	}

	dm.log.Debug("allocated new page", "page_id", newID)
	return newID, nil
}

// Close syncs and closes the underlying file. Idempotent: closing an
// already-closed manager is a no-op.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return nil
	}
	_ = dm.file.Sync()
	err := dm.file.Close()
	dm.file = nil
	if err != nil {
		return dberr.WrapIO(err, "close database file %s", dm.path)
	}
	dm.log.Info("closed database file", "path", dm.path, "database", dm.dbName)
	return nil
}

// Path returns the on-disk path of the data file.
func (dm *DiskManager) Path() string { return dm.path }
