package sqlsession

import (
	"context"
	"fmt"
)

// NamedStatement pairs a logical statement name with its query text.
type NamedStatement struct {
	Name  string
	Query string
}

// Registry is the externally supplied set of named statements a session
// prepares and caches during Open.
type Registry []NamedStatement

// Statement is one compiled query bound to a session's connection. The text
// is fixed and normalized at construction; server-side compilation happens
// lazily on first execution and exactly once, re-parameterization never
// recompiles. The session owns the connection, the statement does not.
type Statement struct {
	name     string
	text     string
	argc     int
	sess     *Session
	prepared bool
}

// Name returns the statement's logical name.
func (st *Statement) Name() string {
	return st.name
}

// Text returns the normalized query text.
func (st *Statement) Text() string {
	return st.text
}

// Get executes the statement and returns the first row, or a nil Row when
// no rows match. Zero rows is a value, not an error.
func (st *Statement) Get(ctx context.Context, args ...any) (Row, error) {
	rows, err := st.All(ctx, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// All executes the statement and returns every row in order; an empty slice
// when none match.
func (st *Statement) All(ctx context.Context, args ...any) ([]Row, error) {
	if err := st.sess.usable(); err != nil {
		return nil, err
	}
	if len(args) != st.argc {
		return nil, &Error{
			Code:    CodeStatement,
			Message: fmt.Sprintf("statement %q expects %d parameters, got %d", st.name, st.argc, len(args)),
			Op:      st.name,
			Query:   st.text,
			Args:    args,
		}
	}

	return st.sess.exec.run(ctx, st.name, st.text, args, func(ctx context.Context) ([]Row, error) {
		if err := st.compile(ctx); err != nil {
			return nil, err
		}
		return st.sess.conn.Conn().QueryPrepared(ctx, st.name, args...)
	})
}

// compile prepares the statement server-side at most once. Sessions execute
// serially on their one connection, so no locking is needed.
func (st *Statement) compile(ctx context.Context) error {
	if st.prepared {
		return nil
	}
	if err := st.sess.conn.Conn().Prepare(ctx, st.name, st.text); err != nil {
		return err
	}
	st.prepared = true
	return nil
}
