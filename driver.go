package sqlsession

import "context"

// Row is a single result row keyed by column name.
type Row map[string]any

// Driver is the capability surface consumed from the backend. The production
// implementation is pgx (see pgxdriver.go); tests substitute counting stubs.
type Driver interface {
	// Connect dials one backend connection.
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a single backend connection. Statements on one Conn execute
// serially; a Conn is never shared between sessions.
type Conn interface {
	// Query executes ad hoc query text with positional arguments.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Prepare compiles query text under a server-side name.
	Prepare(ctx context.Context, name, query string) error

	// QueryPrepared executes a previously prepared statement by name.
	QueryPrepared(ctx context.Context, name string, args ...any) ([]Row, error)

	// Closed reports whether the connection has faulted or been closed out
	// from under the pool.
	Closed() bool

	// Close terminates the connection.
	Close(ctx context.Context) error
}
