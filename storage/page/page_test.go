package page

import "testing"

func TestNewPageEmpty(t *testing.T) {
	p := New(7)
	if p.ID() != 7 {
		t.Errorf("ID: expected 7, got %d", p.ID())
	}
	if p.RecordCount() != 0 {
		t.Errorf("RecordCount: expected 0, got %d", p.RecordCount())
	}
	if p.FreeSpace() != Size-HeaderSize {
		t.Errorf("FreeSpace: expected %d, got %d", Size-HeaderSize, p.FreeSpace())
	}
	if p.IsDirty() {
		t.Error("a fresh page should not be dirty")
	}
}

func TestInsertAndReadRecords(t *testing.T) {
	p := New(1)

	records := [][]byte{[]byte("alice"), []byte("bob"), []byte("carol")}
	for _, r := range records {
		if !p.InsertRecord(r) {
			t.Fatalf("InsertRecord(%q) unexpectedly failed", r)
		}
	}

	if !p.IsDirty() {
		t.Error("page should be dirty after insert")
	}
	if p.RecordCount() != len(records) {
		t.Fatalf("RecordCount: expected %d, got %d", len(records), p.RecordCount())
	}

	got := p.Records()
	if len(got) != len(records) {
		t.Fatalf("Records: expected %d entries, got %d", len(records), len(got))
	}
	for i, r := range records {
		if string(got[i]) != string(r) {
			t.Errorf("record %d: expected %q, got %q", i, r, got[i])
		}
	}
}

func TestInsertRecordFailsWhenFull(t *testing.T) {
	p := New(1)
	big := make([]byte, Size)

	if p.InsertRecord(big) {
		t.Fatal("expected InsertRecord to fail for a record larger than the page body")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	p := New(3)
	p.InsertRecord([]byte("hello"))

	reloaded, err := Load(3, p.Bytes())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.RecordCount() != 1 {
		t.Errorf("RecordCount: expected 1, got %d", reloaded.RecordCount())
	}
	if string(reloaded.Records()[0]) != "hello" {
		t.Errorf("record mismatch: got %q", reloaded.Records()[0])
	}
}

func TestLoadRejectsIDMismatch(t *testing.T) {
	p := New(3)
	if _, err := Load(4, p.Bytes()); err == nil {
		t.Fatal("expected an error when the stored page id does not match the requested id")
	}
}

func TestLoadRejectsWrongSize(t *testing.T) {
	if _, err := Load(1, []byte("too short")); err == nil {
		t.Fatal("expected an error for a buffer that isn't exactly page.Size bytes")
	}
}

func TestMarkClean(t *testing.T) {
	p := New(1)
	p.InsertRecord([]byte("x"))
	if !p.IsDirty() {
		t.Fatal("expected page to be dirty after insert")
	}
	p.MarkClean()
	if p.IsDirty() {
		t.Error("expected page to be clean after MarkClean")
	}
}
