// Package lock implements table- and schema-granular locking, per
// spec.md §4.7. It mirrors the resource-name model of a
// ConcurrentHashMap<String, ReadWriteLock> — one sync.RWMutex per named
// resource — but keeps the resource table itself lock-free using
// xsync's MapOf.
package lock

import (
	"log/slog"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Mode identifies the granularity a transaction holds a resource lock at.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

type held struct {
	mode Mode
}

// Manager grants and releases shared/exclusive locks on named resources
// ("table:<name>", "schema:<database>") and tracks which resources each
// transaction currently holds, so ReleaseAll can run at commit/abort.
type Manager struct {
	resources *xsync.MapOf[string, *sync.RWMutex]
	byTxn     *xsync.MapOf[int64, map[string]held]
	mu        sync.Mutex // guards byTxn's per-transaction maps
	log       *slog.Logger
}

// TableResource names the lock resource for a table.
func TableResource(name string) string { return "table:" + name }

// SchemaResource names the lock resource for database-level DDL.
func SchemaResource(database string) string { return "schema:" + database }

// New returns an empty Manager.
func New(log *slog.Logger) *Manager {
	return &Manager{
		resources: xsync.NewMapOf[string, *sync.RWMutex](),
		byTxn:     xsync.NewMapOf[int64, map[string]held](),
		log:       log,
	}
}

func (m *Manager) resourceLock(resource string) *sync.RWMutex {
	lock, _ := m.resources.LoadOrCompute(resource, func() *sync.RWMutex {
		return &sync.RWMutex{}
	})
	return lock
}

// AcquireShared blocks until a shared lock on resource is held by txnID.
func (m *Manager) AcquireShared(txnID int64, resource string) {
	m.resourceLock(resource).RLock()
	m.record(txnID, resource, Shared)
	m.log.Debug("acquired shared lock", "resource", resource, "txn", txnID)
}

// AcquireExclusive blocks until an exclusive lock on resource is held by
// txnID.
func (m *Manager) AcquireExclusive(txnID int64, resource string) {
	m.resourceLock(resource).Lock()
	m.record(txnID, resource, Exclusive)
	m.log.Debug("acquired exclusive lock", "resource", resource, "txn", txnID)
}

func (m *Manager) record(txnID int64, resource string, mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	locks, ok := m.byTxn.Load(txnID)
	if !ok {
		locks = make(map[string]held)
	}
	locks[resource] = held{mode: mode}
	m.byTxn.Store(txnID, locks)
}

// Release releases whatever lock txnID holds on resource, tolerating the
// case where it holds neither mode, per spec.md §4.7.
func (m *Manager) Release(txnID int64, resource string) {
	m.mu.Lock()
	locks, ok := m.byTxn.Load(txnID)
	if !ok {
		m.mu.Unlock()
		m.log.Warn("release called for unknown transaction", "txn", txnID)
		return
	}
	h, held := locks[resource]
	if !held {
		m.mu.Unlock()
		return
	}
	delete(locks, resource)
	if len(locks) == 0 {
		m.byTxn.Delete(txnID)
	} else {
		m.byTxn.Store(txnID, locks)
	}
	m.mu.Unlock()

	rw := m.resourceLock(resource)
	if h.mode == Exclusive {
		rw.Unlock()
	} else {
		rw.RUnlock()
	}
	m.log.Debug("released lock", "resource", resource, "txn", txnID)
}

// ReleaseAll releases every lock currently held by txnID, per spec.md
// §4.7's commit/abort behavior.
func (m *Manager) ReleaseAll(txnID int64) {
	m.mu.Lock()
	locks, ok := m.byTxn.Load(txnID)
	if !ok {
		m.mu.Unlock()
		return
	}
	resources := make([]string, 0, len(locks))
	for r := range locks {
		resources = append(resources, r)
	}
	m.mu.Unlock()

	for _, r := range resources {
		m.Release(txnID, r)
	}
	m.log.Debug("released all locks", "txn", txnID)
}
