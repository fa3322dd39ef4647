// Package testutil provides a recording stub database for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
	"time"
)

// Result is the canned response for one query.
type Result struct {
	Columns []string
	Rows    [][]driver.Value
	Err     error
}

// Responder answers a query with canned rows.
type Responder func(query string, args []driver.NamedValue) Result

// Query is one recorded statement with its bound arguments.
type Query struct {
	SQL  string
	Args []any
}

// StubConn records statements issued through database/sql.
type StubConn struct {
	mu        sync.Mutex
	Queries   []Query
	Execs     []string
	FailPing  bool
	Responder Responder
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Recorded returns a copy of the recorded queries.
func (c *StubConn) Recorded() []Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Query(nil), c.Queries...)
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("read-only stub") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	c.Execs = append(c.Execs, query)
	c.mu.Unlock()
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.mu.Lock()
	c.Queries = append(c.Queries, Query{SQL: query, Args: vals})
	responder := c.Responder
	c.mu.Unlock()
	if responder == nil {
		return &stubRows{}, nil
	}
	res := responder(query, args)
	if res.Err != nil {
		return nil, res.Err
	}
	return &stubRows{cols: res.Columns, rows: res.Rows}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
