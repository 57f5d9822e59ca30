// Package engine implements the top-level facade of spec.md §4.10: a
// single Start/Stop lifecycle and a single ExecuteSQL entry point wiring
// together storage, locking, transactions, parsing, execution, caching,
// and auditing, grounded on DatabaseEngine.java.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ghiloufibg/nova-sql/audit"
	"github.com/ghiloufibg/nova-sql/backup"
	"github.com/ghiloufibg/nova-sql/cache"
	"github.com/ghiloufibg/nova-sql/config"
	"github.com/ghiloufibg/nova-sql/csvio"
	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/lock"
	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/executor"
	"github.com/ghiloufibg/nova-sql/sql/parser"
	"github.com/ghiloufibg/nova-sql/storage/bufferpool"
	"github.com/ghiloufibg/nova-sql/storage/diskmanager"
	"github.com/ghiloufibg/nova-sql/txn"
)

const statsCapacity = 1000

// QueryStat is one entry of the facade's query-stats ring buffer, per
// SPEC_FULL.md §4 (grounded on performance/QueryStats.java).
type QueryStat struct {
	SQL          string
	Duration     time.Duration
	RowsAffected int
	Timestamp    time.Time
	Success      bool
}

// Engine is the single entry point embedding applications use: start it
// against a database name and data directory, run SQL through
// ExecuteSQL/ExecutePrepared, and stop it to flush and close cleanly.
type Engine struct {
	mu      sync.Mutex
	running bool

	dbName  string
	dataDir string
	cfg     config.Config
	log     *slog.Logger

	disk  *diskmanager.DiskManager
	bp    *bufferpool.BufferPool
	db    *schema.Database
	locks *lock.Manager
	txns  *txn.Manager
	exec  *executor.Executor

	queryCache *cache.QueryCache
	auditLog   *audit.Logger

	statsMu sync.Mutex
	stats   []QueryStat
	statsAt int
}

// New returns an unstarted Engine using cfg and log for every subsystem.
func New(cfg config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// Start initializes every subsystem against dbName's data file under
// dataDir, loading any previously persisted tables. Repeated calls while
// already running are a no-op, per spec.md §4.10.
func (e *Engine) Start(dbName, dataDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.log.Warn("engine already running")
		return nil
	}

	e.log.Info("starting NovaSQL engine", "database", dbName, "data_dir", dataDir)

	disk, err := diskmanager.Open(dataDir, dbName, e.log)
	if err != nil {
		return err
	}

	bp := bufferpool.New(e.cfg.BufferPoolSize, disk, e.log)
	db := schema.NewDatabase()
	if err := db.Load(bp); err != nil {
		return err
	}

	locks := lock.New(e.log)
	txns := txn.NewManager(locks, e.log)
	exec := executor.New(db, locks, txns, dbName, e.log)

	queryCache, err := cache.New(cache.DefaultMaxEntries, cache.DefaultTTL, e.log)
	if err != nil {
		return err
	}

	auditLog, err := audit.Open(dataDir, e.log)
	if err != nil {
		return err
	}

	e.dbName = dbName
	e.dataDir = dataDir
	e.disk = disk
	e.bp = bp
	e.db = db
	e.locks = locks
	e.txns = txns
	e.exec = exec
	e.queryCache = queryCache
	e.auditLog = auditLog
	e.stats = make([]QueryStat, 0, statsCapacity)
	e.statsAt = 0
	e.running = true

	e.log.Info("NovaSQL engine started", "database", dbName)
	return nil
}

// Stop flushes the buffer pool, persists the schema, closes the disk
// file, and drains the audit logger. The flush/persist/flush/close steps
// run in order as one errgroup task, concurrently with the audit drain,
// and the first failure is surfaced. Idempotent: stopping an engine that isn't running is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.log.Info("stopping NovaSQL engine", "database", e.dbName)

	var g errgroup.Group
	g.Go(func() error {
		// Flush, persist the catalog (which allocates and dirties fresh
		// pages of its own), then flush again before the file is closed —
		// these three steps share the disk file and must stay ordered, so
		// they run as a single errgroup task alongside the independent
		// audit drain below.
		if err := e.bp.FlushAll(); err != nil {
			return err
		}
		if err := e.db.Flush(e.bp, e.disk); err != nil {
			return err
		}
		if err := e.bp.FlushAll(); err != nil {
			return err
		}
		return e.disk.Close()
	})
	g.Go(func() error {
		e.auditLog.Stop(5 * time.Second)
		return nil
	})

	err := g.Wait()
	e.running = false
	e.log.Info("NovaSQL engine stopped", "database", e.dbName)
	return err
}

// Database returns the engine's live Database, for CSV/backup helpers
// that need direct table access rather than a SQL round-trip.
func (e *Engine) Database() *schema.Database { return e.db }

// Name returns the database name the engine was started with.
func (e *Engine) Name() string { return e.dbName }

// DataDir returns the data directory the engine was started with.
func (e *Engine) DataDir() string { return e.dataDir }

// ImportCSV inserts one row per data line of r into table, via ExecuteSQL,
// per SPEC_FULL.md's CSVHandler-derived import surface.
func (e *Engine) ImportCSV(r io.Reader, table string) (int, error) {
	return csvio.Import(r, table, e, e.log)
}

// ExportCSV writes table's current contents to w as CSV.
func (e *Engine) ExportCSV(w io.Writer, table string) error {
	t, err := e.db.Table(table)
	if err != nil {
		return err
	}
	return csvio.Export(w, t, t.AllRecords(), e.log)
}

// Backup writes a full SQL-text dump of the database to w, per
// SPEC_FULL.md's BackupHandler-derived backup surface.
func (e *Engine) Backup(w io.Writer, now time.Time) error {
	return backup.Export(w, e.db, e.dbName, now, e.log)
}

// Restore replays a previously exported (or hand-written) SQL script from
// r through ExecuteSQL, statement by statement.
func (e *Engine) Restore(r io.Reader) (int, error) {
	return backup.Restore(r, e, e.log)
}

// ExecuteSQL runs one statement end to end, per spec.md §4.10's five-step
// algorithm: cache check, parse, execute, then cache/invalidate/audit/
// record-stats on the way out.
func (e *Engine) ExecuteSQL(text string) (*executor.Result, error) {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return nil, dberr.NewState("engine is not running")
	}

	if cached, ok := e.queryCache.Get(text); ok {
		e.log.Debug("query cache hit", "sql", text)
		return cached, nil
	}

	start := time.Now()

	stmt, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}

	result, err := e.exec.Execute(stmt)
	duration := time.Since(start)
	if err != nil {
		if stmt.Kind != parser.KindSelect && stmt.Kind != parser.KindJoin {
			e.auditLog.LogDML(statementOperation(stmt), stmt.Table, text, "", false, err.Error())
		}
		e.recordStat(text, duration, 0, false)
		return nil, err
	}

	if result.Kind == executor.ResultSelect {
		e.queryCache.Put(text, result)
	} else {
		if stmt.Table != "" {
			e.queryCache.InvalidateTable(stmt.Table)
		}
		e.auditLog.LogDML(statementOperation(stmt), stmt.Table, text, "", true, "")
	}

	e.recordStat(text, duration, result.AffectedRows, true)
	return result, nil
}

func statementOperation(stmt *parser.Statement) string {
	switch stmt.Kind {
	case parser.KindInsert:
		return "INSERT"
	case parser.KindUpdate:
		return "UPDATE"
	case parser.KindDelete:
		return "DELETE"
	case parser.KindCreateTable:
		return "CREATE_TABLE"
	case parser.KindCreateIndex:
		return "CREATE_INDEX"
	case parser.KindVacuum:
		return "VACUUM"
	case parser.KindAnalyze:
		return "ANALYZE"
	default:
		return "OTHER"
	}
}

func (e *Engine) recordStat(sql string, d time.Duration, rows int, success bool) {
	stat := QueryStat{SQL: sql, Duration: d, RowsAffected: rows, Timestamp: time.Now(), Success: success}

	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	if len(e.stats) < statsCapacity {
		e.stats = append(e.stats, stat)
		return
	}
	e.stats[e.statsAt] = stat
	e.statsAt = (e.statsAt + 1) % statsCapacity
}

// Stats returns a snapshot of the query-stats ring buffer, oldest first.
func (e *Engine) Stats() []QueryStat {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	out := make([]QueryStat, len(e.stats))
	copy(out, e.stats)
	return out
}

// StatsSummary reports the count, average duration, and slowest statement
// currently held in the ring buffer (shown by the CLI's status command;
// SHOW STATS reports per-table record counts instead).
func (e *Engine) StatsSummary() (count int, avg time.Duration, slowest *QueryStat) {
	snapshot := e.Stats()
	if len(snapshot) == 0 {
		return 0, 0, nil
	}

	var total time.Duration
	slow := snapshot[0]
	for _, s := range snapshot {
		total += s.Duration
		if s.Duration > slow.Duration {
			slow = s
		}
	}
	slowCopy := slow
	return len(snapshot), total / time.Duration(len(snapshot)), &slowCopy
}

// PreparedStatement holds SQL text containing positional '?' placeholders,
// per spec.md §4.10.
type PreparedStatement struct {
	sql string
}

// Prepare returns a PreparedStatement over sql, without validating
// placeholder count until ExecutePrepared substitutes parameters.
func (e *Engine) Prepare(sql string) *PreparedStatement {
	return &PreparedStatement{sql: sql}
}

// ExecutePrepared substitutes ps's '?' placeholders, in order, with
// params rendered per SPEC_FULL.md §4's parameter-kind rules, then runs
// the resulting text through ExecuteSQL.
func (e *Engine) ExecutePrepared(ps *PreparedStatement, params ...any) (*executor.Result, error) {
	text, err := substitute(ps.sql, params)
	if err != nil {
		return nil, err
	}
	return e.ExecuteSQL(text)
}

func substitute(sql string, params []any) (string, error) {
	var out []byte
	pi := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '?' {
			out = append(out, sql[i])
			continue
		}
		if pi >= len(params) {
			return "", dberr.NewArgument("missing parameter %d for prepared statement", pi+1)
		}
		rendered, err := renderParam(params[pi])
		if err != nil {
			return "", err
		}
		out = append(out, rendered...)
		pi++
	}
	return string(out), nil
}

func renderParam(v any) (string, error) {
	switch p := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + escapeQuote(p) + "'", nil
	case int:
		return fmt.Sprintf("%d", p), nil
	case int64:
		return fmt.Sprintf("%d", p), nil
	case bool:
		return fmt.Sprintf("%v", p), nil
	default:
		return "", dberr.NewArgument("unsupported prepared-statement parameter type: %T", v)
	}
}

func escapeQuote(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
