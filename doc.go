/*
Package sqlsession provides a uniform access layer over a PostgreSQL backend.

It manages an explicit connection pool, caches named prepared statements,
normalizes generic ? placeholders to the backend's positional $N form, and
routes every query through a single instrumented executor with structured
logging, metrics, and tracing.

# Basic Usage

	cfg := sqlsession.DefaultConfig("db.internal", "app", "secret", "orders")
	cfg.Logger = slog.Default()

	pool, err := sqlsession.NewPool(cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer pool.Shutdown(ctx)

	sess, err := sqlsession.Open(ctx, pool, sqlsession.Registry{
	    {Name: "order_by_id", Query: "SELECT * FROM orders WHERE id = ?"},
	})
	if err != nil {
	    log.Fatal(err)
	}
	defer sess.Close()

	row, err := sess.Statement("order_by_id").Get(ctx, 42)

# Ad Hoc Queries

	res, err := sess.Run(ctx, "INSERT INTO orders (sku) VALUES (?)", "A-17")
	// res.LastInsertID holds the generated id for INSERT statements

	rows, err := sess.All(ctx, "SELECT * FROM orders WHERE sku = ?", "A-17")

# Typed Access

	type Order struct {
	    ID  int64  `db:"id"`
	    SKU string `db:"sku"`
	}

	order, err := sqlsession.Get[Order](ctx, sess, "SELECT * FROM orders WHERE id = ?", 42)

# Lifecycle

A Session owns exactly one pooled connection for its lifetime and executes
statements on it serially. Close releases only the session's connection; the
pool is torn down separately with Pool.Shutdown.
*/
package sqlsession
