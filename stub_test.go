package sqlsession

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// stubDriver scripts backend behavior for tests: queries resolve against a
// text→rows table, connections count their prepare and query calls.
type stubDriver struct {
	mu      sync.Mutex
	dialed  int
	dialErr error
	results map[string][]Row
	conns   []*stubConn
}

func newStubDriver() *stubDriver {
	return &stubDriver{results: make(map[string][]Row)}
}

// on scripts the rows returned for an exact (normalized) query text.
func (d *stubDriver) on(query string, rows ...Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[query] = rows
}

func (d *stubDriver) lookup(query string) []Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rows, ok := d.results[query]; ok {
		return append([]Row(nil), rows...)
	}
	return []Row{}
}

func (d *stubDriver) Connect(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.dialed++
	c := &stubConn{drv: d, prepared: make(map[string]string)}
	d.conns = append(d.conns, c)
	return c, nil
}

type stubConn struct {
	drv *stubDriver

	mu           sync.Mutex
	closed       bool
	broken       bool // simulates a connection fault without Close
	prepared     map[string]string
	prepareCalls int
	queries      []string
	queryErr     error
}

func (c *stubConn) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	err := c.queryErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.drv.lookup(query), nil
}

func (c *stubConn) Prepare(ctx context.Context, name, query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareCalls++
	c.prepared[name] = query
	return nil
}

func (c *stubConn) QueryPrepared(ctx context.Context, name string, args ...any) ([]Row, error) {
	c.mu.Lock()
	text, ok := c.prepared[name]
	if ok {
		c.queries = append(c.queries, text)
	}
	err := c.queryErr
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("statement %q not prepared", name)
	}
	if err != nil {
		return nil, err
	}
	return c.drv.lookup(text), nil
}

func (c *stubConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.broken
}

func (c *stubConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) setBroken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
}

func (c *stubConn) lastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queries) == 0 {
		return ""
	}
	return c.queries[len(c.queries)-1]
}

// testConfig silences logging and makes the fatal policy observable instead
// of terminating the test binary.
func testConfig(fatals *[]error) Config {
	cfg := DefaultConfig("localhost", "test", "test", "testdb")
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.FatalHandler = func(err error) {
		if fatals != nil {
			*fatals = append(*fatals, err)
		}
	}
	return cfg
}

func newTestPool(t *testing.T, drv *stubDriver, mutate func(*Config)) *Pool {
	t.Helper()
	cfg := testConfig(nil)
	if mutate != nil {
		mutate(&cfg)
	}
	pool, err := NewPoolWithDriver(drv, cfg)
	if err != nil {
		t.Fatalf("NewPoolWithDriver failed: %v", err)
	}
	return pool
}

func newTestSession(t *testing.T, drv *stubDriver, reg Registry) (*Session, *Pool) {
	t.Helper()
	pool := newTestPool(t, drv, nil)
	sess, err := Open(context.Background(), pool, reg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return sess, pool
}
