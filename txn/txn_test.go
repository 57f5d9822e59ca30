package txn

import (
	"log/slog"
	"testing"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/lock"
)

func newTestManager() *Manager {
	return NewManager(lock.New(slog.Default()), slog.Default())
}

func TestBeginAssignsMonotonicIDs(t *testing.T) {
	m := newTestManager()
	t1 := m.Begin()
	t2 := m.Begin()

	if t1.ID == t2.ID {
		t.Fatalf("expected distinct transaction ids, got %d twice", t1.ID)
	}
	if t1.State != Active || t2.State != Active {
		t.Errorf("expected new transactions to start Active")
	}
}

func TestCommitRemovesFromActiveSet(t *testing.T) {
	m := newTestManager()
	tx := m.Begin()

	if err := m.Commit(tx.ID); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, ok := m.Get(tx.ID); ok {
		t.Error("expected the transaction to be gone after commit")
	}
}

func TestCommitUnknownTransactionFails(t *testing.T) {
	m := newTestManager()
	if err := m.Commit(12345); err == nil {
		t.Fatal("expected an error committing an unknown transaction")
	} else if !dberr.Is(err, dberr.State) {
		t.Errorf("expected a State error kind, got: %v", err)
	}
}

func TestCommitAlreadyCommittedFails(t *testing.T) {
	m := newTestManager()
	tx := m.Begin()
	if err := m.Commit(tx.ID); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if err := m.Commit(tx.ID); err == nil {
		t.Fatal("expected an error committing a transaction twice")
	}
}

func TestAbortOfUnknownTransactionIsTolerated(t *testing.T) {
	m := newTestManager()
	m.Abort(99999) // must not panic
}

func TestAbortReleasesLocksAndRemovesFromActiveSet(t *testing.T) {
	locks := lock.New(slog.Default())
	m := NewManager(locks, slog.Default())
	tx := m.Begin()

	locks.AcquireExclusive(tx.ID, lock.TableResource("users"))
	m.Abort(tx.ID)

	if _, ok := m.Get(tx.ID); ok {
		t.Error("expected the transaction to be gone after abort")
	}

	// The exclusive lock must have been released so another transaction
	// can acquire it without blocking.
	done := make(chan struct{})
	go func() {
		locks.AcquireExclusive(2, lock.TableResource("users"))
		close(done)
	}()
	<-done
	locks.Release(2, lock.TableResource("users"))
}

func TestActiveCount(t *testing.T) {
	m := newTestManager()
	if m.ActiveCount() != 0 {
		t.Fatalf("expected 0 active transactions initially, got %d", m.ActiveCount())
	}
	tx := m.Begin()
	if m.ActiveCount() != 1 {
		t.Errorf("expected 1 active transaction, got %d", m.ActiveCount())
	}
	m.Commit(tx.ID)
	if m.ActiveCount() != 0 {
		t.Errorf("expected 0 active transactions after commit, got %d", m.ActiveCount())
	}
}
