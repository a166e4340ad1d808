package canonkv

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// sqliteEngine is an alternate, pure-Go (no cgo) OrderedEngine backed by
// modernc.org/sqlite, grounded on daviddao-clockmail's pkg/store.Store: WAL
// mode plus a busy timeout for concurrent access, a single flat table in
// place of its multi-table schema since canonkv needs only one ordered
// key/value relation. Demonstrates that TypedStore's engine boundary (§6)
// is swappable, not hard-wired to bbolt.
type sqliteEngine struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) a SQLite database at path and
// ensures the kv table exists, returning it as an OrderedEngine ready to
// back a Store.
func OpenSQLite(path string) (OrderedEngine, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, engineErrf("open", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		k BLOB PRIMARY KEY,
		v BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, engineErrf("migrate", err)
	}
	return &sqliteEngine{db: db}, nil
}

func (e *sqliteEngine) Put(key, value []byte) error {
	_, err := e.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return engineErrf("put", err)
	}
	return nil
}

func (e *sqliteEngine) Get(key []byte) ([]byte, error) {
	var v []byte
	err := e.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engineErrf("get", err)
	}
	return v, nil
}

func (e *sqliteEngine) Delete(key []byte) error {
	if _, err := e.db.Exec(`DELETE FROM kv WHERE k = ?`, key); err != nil {
		return engineErrf("delete", err)
	}
	return nil
}

func (e *sqliteEngine) Range(start, end []byte, limit int) ([]KV, error) {
	var rows *sql.Rows
	var err error
	// sqlite has no notion of a nil upper bound, so prefixUpperBound-style
	// callers pass an end; an unbounded range queries with k >= start only.
	if end == nil {
		rows, err = e.db.Query(`SELECT k, v FROM kv WHERE k >= ? ORDER BY k`, start)
	} else {
		rows, err = e.db.Query(`SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k`, start, end)
	}
	if err != nil {
		return nil, engineErrf("range", err)
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, engineErrf("range", err)
		}
		out = append(out, KV{Key: k, Value: v})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, engineErrf("range", err)
	}
	return out, nil
}

func (e *sqliteEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return engineErrf("close", err)
	}
	return nil
}
