// Package page implements the in-memory image of one database page: a
// 16-byte header followed by a sequentially packed list of
// length-prefixed records, as laid out in spec.md §3.
package page

import (
	"encoding/binary"
	"fmt"
)

const (
	// Size is the fixed size, in bytes, of every page on disk and in the
	// buffer pool.
	Size = 4096

	// HeaderSize is the size of the fixed page header: page id, record
	// count, free space, and one reserved word, each an int32.
	HeaderSize = 16

	lengthPrefixSize = 4
)

// Page is the in-memory image of one page. Body records are packed from
// the low end upward starting at HeaderSize; each record is a 4-byte
// little-endian length followed by that many raw bytes.
type Page struct {
	id         int32
	data       []byte
	dirty      bool
	recordCnt  int32
	freeSpace  int32
}

// New creates a fresh, empty page with the given id.
func New(id int32) *Page {
	p := &Page{
		id:        id,
		data:      make([]byte, Size),
		freeSpace: Size - HeaderSize,
	}
	p.writeHeader()
	return p
}

// Load reconstructs a Page from a raw Size-byte buffer previously produced
// by Bytes, validating that the stored page id matches id. A mismatch is
// fatal per spec.md §4.1 ("id mismatch is fatal").
func Load(id int32, raw []byte) (*Page, error) {
	if len(raw) != Size {
		return nil, fmt.Errorf("page %d: expected %d bytes, got %d", id, Size, len(raw))
	}

	data := make([]byte, Size)
	copy(data, raw)

	storedID := int32(binary.LittleEndian.Uint32(data[0:4]))
	if storedID != id {
		return nil, fmt.Errorf("page id mismatch: expected %d, found %d in header", id, storedID)
	}

	return &Page{
		id:        id,
		data:      data,
		recordCnt: int32(binary.LittleEndian.Uint32(data[4:8])),
		freeSpace: int32(binary.LittleEndian.Uint32(data[8:12])),
	}, nil
}

func (p *Page) writeHeader() {
	binary.LittleEndian.PutUint32(p.data[0:4], uint32(p.id))
	binary.LittleEndian.PutUint32(p.data[4:8], uint32(p.recordCnt))
	binary.LittleEndian.PutUint32(p.data[8:12], uint32(p.freeSpace))
	binary.LittleEndian.PutUint32(p.data[12:16], 0) // reserved
}

// ID returns the page's id.
func (p *Page) ID() int32 { return p.id }

// IsDirty reports whether the page has been mutated since it was last
// loaded or flushed.
func (p *Page) IsDirty() bool { return p.dirty }

// MarkClean clears the dirty bit; called by the buffer pool after a
// successful flush.
func (p *Page) MarkClean() { p.dirty = false }

// RecordCount returns the number of resident length-prefixed records.
func (p *Page) RecordCount() int { return int(p.recordCnt) }

// FreeSpace returns the number of bytes still available for new records.
func (p *Page) FreeSpace() int { return int(p.freeSpace) }

// bodyEnd is the offset one past the last byte currently occupied by
// packed records.
func (p *Page) bodyEnd() int {
	return Size - int(p.freeSpace)
}

// InsertRecord appends record to the page's body if there is room,
// returning false when the page has insufficient free space (the caller
// is expected to allocate a fresh page in that case).
func (p *Page) InsertRecord(record []byte) bool {
	needed := lengthPrefixSize + len(record)
	if needed > int(p.freeSpace) {
		return false
	}

	offset := p.bodyEnd()
	binary.LittleEndian.PutUint32(p.data[offset:offset+4], uint32(len(record)))
	copy(p.data[offset+4:offset+4+len(record)], record)

	p.recordCnt++
	p.freeSpace -= int32(needed)
	p.dirty = true
	p.writeHeader()
	return true
}

// Records returns every length-prefixed record currently packed into the
// page, in on-disk order.
func (p *Page) Records() [][]byte {
	records := make([][]byte, 0, p.recordCnt)
	offset := HeaderSize
	for i := int32(0); i < p.recordCnt; i++ {
		length := binary.LittleEndian.Uint32(p.data[offset : offset+4])
		offset += 4
		rec := make([]byte, length)
		copy(rec, p.data[offset:offset+int(length)])
		records = append(records, rec)
		offset += int(length)
	}
	return records
}

// Bytes returns the raw Size-byte on-disk image of the page, header
// included. The returned slice is owned by the page; callers must copy it
// before mutating.
func (p *Page) Bytes() []byte {
	return p.data
}
