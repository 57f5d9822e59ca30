// Package txn implements the transaction lifecycle of spec.md §4.8:
// monotonic transaction ids, ACTIVE/COMMITTED/ABORTED states, and lock
// release on commit or abort. Unlike the Java original, where Transaction
// holds a back-reference to its owning TransactionManager, callers here
// always go through the Manager by id (Design Note 9) — Transaction is
// plain data.
package txn

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/lock"
)

// State is a transaction's lifecycle stage.
type State int

const (
	Active State = iota
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction holds a transaction's identity and current lifecycle state;
// the Manager updates State on commit and abort.
type Transaction struct {
	ID        int64
	StartedAt time.Time
	State     State
}

// Manager creates and tracks transactions, and coordinates lock release
// with a lock.Manager at commit/abort, per spec.md §4.8.
type Manager struct {
	nextID  int64
	active  *xsync.MapOf[int64, *Transaction]
	locks   *lock.Manager
	log     *slog.Logger
}

// NewManager returns an empty Manager backed by locks for lock release.
func NewManager(locks *lock.Manager, log *slog.Logger) *Manager {
	return &Manager{
		active: xsync.NewMapOf[int64, *Transaction](),
		locks:  locks,
		log:    log,
	}
}

// Begin starts a new ACTIVE transaction with a fresh, monotonically
// increasing id.
func (m *Manager) Begin() *Transaction {
	id := atomic.AddInt64(&m.nextID, 1)
	t := &Transaction{ID: id, StartedAt: time.Now(), State: Active}
	m.active.Store(id, t)
	m.log.Debug("started transaction", "txn", id)
	return t
}

// Get returns the transaction for id, if it is still active.
func (m *Manager) Get(id int64) (*Transaction, bool) {
	return m.active.Load(id)
}

// Commit releases every lock held by id and marks it COMMITTED, failing
// if id is unknown or not ACTIVE.
func (m *Manager) Commit(id int64) error {
	t, ok := m.active.Load(id)
	if !ok {
		return dberr.NewState("transaction not found: %d", id)
	}
	if t.State != Active {
		return dberr.NewState("cannot commit transaction in state: %s", t.State)
	}

	m.locks.ReleaseAll(id)
	t.State = Committed
	m.active.Delete(id)
	m.log.Debug("committed transaction", "txn", id)
	return nil
}

// Abort releases every lock held by id and marks it ABORTED, tolerating
// an unknown id per spec.md §4.8.
func (m *Manager) Abort(id int64) {
	t, ok := m.active.Load(id)
	if !ok {
		m.log.Warn("attempting to abort unknown transaction", "txn", id)
		return
	}

	m.locks.ReleaseAll(id)
	t.State = Aborted
	m.active.Delete(id)
	m.log.Debug("aborted transaction", "txn", id)
}

// ActiveCount returns the number of currently active transactions.
func (m *Manager) ActiveCount() int {
	return m.active.Size()
}
