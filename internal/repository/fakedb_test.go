package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// fakeDB is a minimal database/sql driver returning canned rows.
type fakeDB struct {
	mu       sync.Mutex
	columns  []string
	rows     [][]driver.Value
	queryErr error
	queries  []string
	args     [][]driver.Value
}

var (
	fakeMu      sync.Mutex
	fakeByName  = map[string]*fakeDB{}
	registerOne sync.Once
)

func openFakeDB(t *testing.T, f *fakeDB) *sql.DB {
	t.Helper()
	registerOne.Do(func() { sql.Register("fakech", fakeDriver{}) })
	fakeMu.Lock()
	fakeByName[t.Name()] = f
	fakeMu.Unlock()
	db, err := sql.Open("fakech", t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	fakeMu.Lock()
	defer fakeMu.Unlock()
	f, ok := fakeByName[name]
	if !ok {
		return nil, errors.New("unknown fake db")
	}
	return &fakeConn{db: f}, nil
}

type fakeConn struct{ db *fakeDB }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{db: c.db, query: query}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("not supported") }

type fakeStmt struct {
	db    *fakeDB
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.db.record(s.query, args)
	return driver.RowsAffected(0), s.db.queryErr
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.db.record(s.query, args)
	if s.db.queryErr != nil {
		return nil, s.db.queryErr
	}
	return &fakeRows{columns: s.db.columns, rows: s.db.rows}, nil
}

func (f *fakeDB) record(q string, args []driver.Value) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.args = append(f.args, args)
	f.mu.Unlock()
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	i       int
}

func (r *fakeRows) Columns() []string { return r.columns }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}
