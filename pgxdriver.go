package sqlsession

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// pgxDriver is the production backend driver, one pgx.Conn per pooled
// connection. Pooling stays in this package; pgx only supplies the wire
// protocol.
type pgxDriver struct {
	dsn         string
	dialTimeout time.Duration
}

func newPgxDriver(dsn string, dialTimeout time.Duration) *pgxDriver {
	return &pgxDriver{dsn: dsn, dialTimeout: dialTimeout}
}

func (d *pgxDriver) Connect(ctx context.Context) (Conn, error) {
	if d.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.dialTimeout)
		defer cancel()
	}
	conn, err := pgx.Connect(ctx, d.dsn)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (c *pgxConn) Prepare(ctx context.Context, name, query string) error {
	_, err := c.conn.Prepare(ctx, name, query)
	return err
}

// QueryPrepared executes a statement previously prepared under name; pgx
// routes a bare statement name to the server-side prepared form.
func (c *pgxConn) QueryPrepared(ctx context.Context, name string, args ...any) ([]Row, error) {
	rows, err := c.conn.Query(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (c *pgxConn) Closed() bool {
	return c.conn.IsClosed()
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}
