package lock

import (
	"log/slog"
	"testing"
)

func newTestManager() *Manager {
	return New(slog.Default())
}

func TestTableAndSchemaResourceNames(t *testing.T) {
	if got := TableResource("users"); got != "table:users" {
		t.Errorf("TableResource: expected 'table:users', got %q", got)
	}
	if got := SchemaResource("mydb"); got != "schema:mydb" {
		t.Errorf("SchemaResource: expected 'schema:mydb', got %q", got)
	}
}

func TestAcquireSharedThenRelease(t *testing.T) {
	m := newTestManager()
	m.AcquireShared(1, TableResource("users"))
	m.Release(1, TableResource("users"))

	// A released shared lock must allow a subsequent exclusive acquisition
	// by a different transaction without blocking forever.
	done := make(chan struct{})
	go func() {
		m.AcquireExclusive(2, TableResource("users"))
		close(done)
	}()
	<-done
	m.Release(2, TableResource("users"))
}

func TestReleaseAllReleasesEveryHeldResource(t *testing.T) {
	m := newTestManager()
	m.AcquireShared(1, TableResource("a"))
	m.AcquireExclusive(1, TableResource("b"))

	m.ReleaseAll(1)

	done := make(chan struct{})
	go func() {
		m.AcquireExclusive(2, TableResource("a"))
		m.AcquireExclusive(2, TableResource("b"))
		close(done)
	}()
	<-done
	m.ReleaseAll(2)
}

func TestReleaseOfUnknownTransactionIsTolerated(t *testing.T) {
	m := newTestManager()
	// Must not panic.
	m.Release(999, TableResource("users"))
	m.ReleaseAll(999)
}

func TestMultipleSharedHoldersDoNotBlockEachOther(t *testing.T) {
	m := newTestManager()
	resource := TableResource("users")

	m.AcquireShared(1, resource)

	done := make(chan struct{})
	go func() {
		m.AcquireShared(2, resource)
		close(done)
	}()
	<-done

	m.Release(1, resource)
	m.Release(2, resource)
}
