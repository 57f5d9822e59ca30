package schema

import (
	"encoding/binary"
	"encoding/json"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/storage/bufferpool"
	"github.com/ghiloufibg/nova-sql/storage/diskmanager"
	"github.com/ghiloufibg/nova-sql/storage/page"
)

// manifestPointerPage is the single page reserved for locating the
// catalog: it never moves across restarts, so Load always knows where to
// start. Every other page id is allocated on demand through the
// BufferPool/DiskManager and recorded in the manifest.
const manifestPointerPage = 0

// catalogChunkSize bounds how many manifest-JSON bytes are packed into
// one catalog page's single record.
const catalogChunkSize = page.Size - page.HeaderSize - 64

// manifest is the on-disk catalog: enough to reconstruct every Table's
// schema, record vector, and secondary indexes without a WAL (spec.md
// §4.3 — indexes are always rebuilt from records on load).
type manifest struct {
	Tables []tableManifest `json:"tables"`
}

type tableManifest struct {
	Name           string      `json:"name"`
	Columns        []ColumnDef `json:"columns"`
	NextRecordID   int         `json:"next_record_id"`
	IndexedColumns []string    `json:"indexed_columns"`
	DataPageIDs    []int32     `json:"data_page_ids"`
}

// Flush serializes every table's schema and records into freshly
// allocated pages and writes the catalog pointer, via bp/disk. It is
// intended to run once, at engine shutdown, per spec.md's "flushes dirty
// pages on shutdown only" design (Non-goals: no WAL, weak crash safety).
func (db *Database) Flush(bp *bufferpool.BufferPool, disk *diskmanager.DiskManager) error {
	db.mu.RLock()
	tables := make([]*Table, 0, len(db.tables))
	for _, t := range db.tables {
		tables = append(tables, t)
	}
	db.mu.RUnlock()

	var m manifest
	for _, t := range tables {
		t.mu.RLock()
		records := append([]*Record(nil), t.records...)
		nextID := t.nextID
		columns := append([]ColumnDef(nil), t.columns...)
		indexed := make([]string, 0, len(t.indexes))
		for col := range t.indexes {
			indexed = append(indexed, col)
		}
		t.mu.RUnlock()

		pageIDs, err := writeTableData(bp, disk, columns, records)
		if err != nil {
			return err
		}

		m.Tables = append(m.Tables, tableManifest{
			Name:           t.Name(),
			Columns:        columns,
			NextRecordID:   nextID,
			IndexedColumns: indexed,
			DataPageIDs:    pageIDs,
		})
	}

	manifestBytes, err := json.Marshal(m)
	if err != nil {
		return dberr.WrapIO(err, "marshal catalog")
	}

	catalogPageIDs, err := writeChunks(bp, disk, manifestBytes, catalogChunkSize)
	if err != nil {
		return err
	}

	return writeManifestPointer(bp, catalogPageIDs)
}

// writeTableData packs each record, schema-encoded, across as many fresh
// pages as needed, returning the page ids used (in write order).
func writeTableData(bp *bufferpool.BufferPool, disk *diskmanager.DiskManager, columns []ColumnDef, records []*Record) ([]int32, error) {
	var ids []int32
	cur, err := allocatePage(bp, disk)
	if err != nil {
		return nil, err
	}
	ids = append(ids, cur.ID())

	for _, r := range records {
		encoded := encodeRecord(columns, r)
		if !cur.InsertRecord(encoded) {
			cur, err = allocatePage(bp, disk)
			if err != nil {
				return nil, err
			}
			ids = append(ids, cur.ID())
			if !cur.InsertRecord(encoded) {
				return nil, dberr.NewState("record too large to fit in an empty page")
			}
		}
	}

	return ids, nil
}

// writeChunks packs raw bytes into fresh pages, one chunk per page, each
// chunk at most chunkSize bytes. A nil/zero-length payload yields no pages.
func writeChunks(bp *bufferpool.BufferPool, disk *diskmanager.DiskManager, data []byte, chunkSize int) ([]int32, error) {
	if len(data) == 0 || chunkSize <= 0 {
		return nil, nil
	}

	var ids []int32
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		p, err := allocatePage(bp, disk)
		if err != nil {
			return nil, err
		}
		if !p.InsertRecord(data[offset:end]) {
			return nil, dberr.NewState("catalog chunk too large for an empty page")
		}
		ids = append(ids, p.ID())
	}
	return ids, nil
}

func allocatePage(bp *bufferpool.BufferPool, disk *diskmanager.DiskManager) (*page.Page, error) {
	id, err := disk.AllocateNewPage()
	if err != nil {
		return nil, err
	}
	if id == manifestPointerPage {
		// Page 0 holds the manifest pointer; never hand it out as a data page.
		if id, err = disk.AllocateNewPage(); err != nil {
			return nil, err
		}
	}
	// A freshly allocated page is zero-filled on disk; write an empty page
	// image first so reading it through the pool passes the page-id check.
	if err := disk.WritePage(page.New(id)); err != nil {
		return nil, err
	}
	return bp.GetPage(id)
}

// writeManifestPointer writes the fixed pointer page (page 0) recording
// which catalog page ids hold the manifest JSON.
func writeManifestPointer(bp *bufferpool.BufferPool, catalogPageIDs []int32) error {
	p, err := bp.GetPage(manifestPointerPage)
	if err != nil {
		return err
	}

	buf := make([]byte, 4*len(catalogPageIDs))
	for i, id := range catalogPageIDs {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(id))
	}

	// Page 0 is rewritten from scratch each flush: replace it with a fresh
	// empty page holding exactly one record (the pointer list) so a
	// repeated Flush never accumulates stale pointer records.
	fresh := page.New(manifestPointerPage)
	if len(buf) > 0 && !fresh.InsertRecord(buf) {
		return dberr.NewState("manifest pointer too large")
	}
	*p = *fresh
	return nil
}

// Load reconstructs every table from the manifest pointed to by page 0,
// tolerating a brand-new (empty) database file. Index structures are
// rebuilt by replaying CreateIndex over the restored records, never read
// from disk directly.
func (db *Database) Load(bp *bufferpool.BufferPool) error {
	p0, err := bp.GetPage(manifestPointerPage)
	if err != nil {
		return err
	}

	records := p0.Records()
	if len(records) == 0 {
		return nil // fresh database: nothing to load
	}

	pointerBuf := records[0]
	catalogPageIDs := make([]int32, len(pointerBuf)/4)
	for i := range catalogPageIDs {
		catalogPageIDs[i] = int32(binary.LittleEndian.Uint32(pointerBuf[i*4:]))
	}

	var manifestBytes []byte
	for _, id := range catalogPageIDs {
		p, err := bp.GetPage(id)
		if err != nil {
			return err
		}
		recs := p.Records()
		if len(recs) > 0 {
			manifestBytes = append(manifestBytes, recs[0]...)
		}
	}

	var m manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return dberr.WrapIO(err, "unmarshal catalog")
	}

	for _, tm := range m.Tables {
		t, err := New(tm.Name, tm.Columns)
		if err != nil {
			return err
		}

		var records []*Record
		for _, id := range tm.DataPageIDs {
			p, err := bp.GetPage(id)
			if err != nil {
				return err
			}
			for _, raw := range p.Records() {
				rec, err := decodeRecord(tm.Columns, raw)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
		}

		t.ReplaceRecords(records, tm.NextRecordID, tm.IndexedColumns)
		db.registerLoaded(t)
	}

	return nil
}

// encodeRecord packs a record's id and column values (schema order) into
// a compact byte form: int32 id, then per column a presence byte and,
// when present, an int32 length-prefixed UTF-8 value.
func encodeRecord(columns []ColumnDef, r *Record) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(r.ID))

	for _, c := range columns {
		v, ok := r.Values[c.Name]
		if !ok {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(v)))
		buf = append(buf, lenBuf...)
		buf = append(buf, v...)
	}
	return buf
}

func decodeRecord(columns []ColumnDef, raw []byte) (*Record, error) {
	if len(raw) < 4 {
		return nil, dberr.NewState("truncated record")
	}
	id := int(binary.LittleEndian.Uint32(raw[:4]))
	offset := 4

	values := make(map[string]string, len(columns))
	for _, c := range columns {
		if offset >= len(raw) {
			return nil, dberr.NewState("truncated record for column %s", c.Name)
		}
		present := raw[offset]
		offset++
		if present == 0 {
			continue
		}
		if offset+4 > len(raw) {
			return nil, dberr.NewState("truncated record length for column %s", c.Name)
		}
		length := int(binary.LittleEndian.Uint32(raw[offset:]))
		offset += 4
		if offset+length > len(raw) {
			return nil, dberr.NewState("truncated record value for column %s", c.Name)
		}
		values[c.Name] = string(raw[offset : offset+length])
		offset += length
	}

	return &Record{ID: id, Values: values}, nil
}
