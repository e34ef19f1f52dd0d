package sqlsession

import (
	"context"
	"fmt"
	"strings"

	"github.com/fernandezvara/sqlsession/hooks"
)

// Session is the facade an application holds. It owns exactly one leased
// connection for its entire lifetime and executes statements on it serially;
// a Session is not safe for concurrent use. Close releases only the
// session's connection, never the pool.
type Session struct {
	pool       *Pool
	conn       *PoolConn
	exec       *executor
	statements map[string]*Statement
	closed     bool
}

// Result is the outcome of Run. LastInsertID carries the generated
// identifier of an inserted row, nil for non-insert statements or when the
// backend returned no identifier.
type Result struct {
	LastInsertID *int64
}

// Open leases a connection from the pool and builds a session around it,
// caching a prepared statement handle for every registry entry.
//
// A transient connection is leased first to validate that the pool can serve
// and is always released, success or failure. The session then retains its
// own separate lease; if statement construction fails, that lease is
// released before returning.
func Open(ctx context.Context, pool *Pool, reg Registry) (*Session, error) {
	probe, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	pool.Release(probe)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		pool:       pool,
		conn:       conn,
		exec:       &executor{hooks: pool.hooks},
		statements: make(map[string]*Statement, len(reg)),
	}

	for _, ns := range reg {
		st, err := s.Prepare(ns.Name, ns.Query)
		if err != nil {
			pool.Release(conn)
			return nil, err
		}
		s.statements[ns.Name] = st
	}

	return s, nil
}

// Run executes a statement for its side effect. INSERT-shaped statements get
// a clause appended requesting the generated identifier of the inserted row;
// the id comes back in Result.LastInsertID. Every other statement shape
// returns a nil LastInsertID.
func (s *Session) Run(ctx context.Context, query string, args ...any) (Result, error) {
	text, argc := Normalize(query)

	insert := hooks.OperationType(text) == "insert"
	if insert && !strings.Contains(strings.ToUpper(text), "RETURNING") {
		text += " RETURNING id"
	}

	rows, err := s.query(ctx, "Run", text, argc, args)
	if err != nil {
		return Result{}, err
	}

	if insert && len(rows) > 0 {
		if id, ok := toInt64(rows[0]["id"]); ok {
			return Result{LastInsertID: &id}, nil
		}
	}
	return Result{}, nil
}

// Get returns the first row matching the query, or a nil Row when no rows
// match. Zero rows is a value, not an error.
func (s *Session) Get(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := s.All(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// All returns every row matching the query in order; an empty slice when
// none match.
func (s *Session) All(ctx context.Context, query string, args ...any) ([]Row, error) {
	text, argc := Normalize(query)
	return s.query(ctx, "All", text, argc, args)
}

// Prepare constructs a statement handle bound to the session's connection.
// The handle is not registered in the session's cache; the caller decides
// whether to retain it.
func (s *Session) Prepare(name, query string) (*Statement, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &Error{Code: CodeStatement, Message: "statement name is required", Op: "Prepare"}
	}
	text, argc := Normalize(query)
	return &Statement{name: name, text: text, argc: argc, sess: s}, nil
}

// Statement returns the cached prepared statement handle for name, or nil
// when the registry never declared it.
func (s *Session) Statement(name string) *Statement {
	return s.statements[name]
}

// Ping verifies the session's connection is alive.
func (s *Session) Ping(ctx context.Context) error {
	_, err := s.All(ctx, "SELECT 1")
	return err
}

// Close releases the session's leased connection back to the pool. The
// session is unusable afterward. The pool itself stays up; tear it down
// separately with Pool.Shutdown.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Release(s.conn)
}

// query is the single path for ad hoc execution: parameter-count validation,
// then through the instrumented executor.
func (s *Session) query(ctx context.Context, label, text string, argc int, args []any) ([]Row, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if len(args) != argc {
		return nil, &Error{
			Code:    CodeStatement,
			Message: fmt.Sprintf("query expects %d parameters, got %d", argc, len(args)),
			Op:      label,
			Query:   text,
			Args:    args,
		}
	}

	return s.exec.run(ctx, label, text, args, func(ctx context.Context) ([]Row, error) {
		return s.conn.Conn().Query(ctx, text, args...)
	})
}

func (s *Session) usable() error {
	if s.closed {
		return &Error{Code: CodeSessionClosed, Message: "session is closed", Op: "Session"}
	}
	return nil
}

// DB is the capability surface a session offers. Callers that should not
// care which backend dialect they are talking to depend on this interface;
// Session is the PostgreSQL variant.
type DB interface {
	Run(ctx context.Context, query string, args ...any) (Result, error)
	Get(ctx context.Context, query string, args ...any) (Row, error)
	All(ctx context.Context, query string, args ...any) ([]Row, error)
	Prepare(name, query string) (*Statement, error)
	Statement(name string) *Statement
	Ping(ctx context.Context) error
	Close()

	TableNames(ctx context.Context) ([]string, error)
	ViewNames(ctx context.Context) ([]string, error)
	FunctionNames(ctx context.Context) ([]string, error)
	TriggerNames(ctx context.Context) ([]string, error)
	MaterializedViewNames(ctx context.Context) ([]string, error)
	IndexNames(ctx context.Context, table string) ([]string, error)
}

// Ensure Session implements DB
var _ DB = (*Session)(nil)

// toInt64 coerces the backend's representation of a generated id.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
