package sqlsession

import (
	"context"
	"time"

	"github.com/fernandezvara/sqlsession/hooks"
)

// executor is the single choke point every query passes through, ad hoc or
// prepared. It times the execution, dispatches the observability hooks, and
// translates failures into *Error carrying the query text and arguments.
// No query path may bypass it.
type executor struct {
	hooks []hooks.QueryHook
}

func (e *executor) run(ctx context.Context, label, query string, args []any, fn func(context.Context) ([]Row, error)) ([]Row, error) {
	event := &hooks.QueryEvent{
		Label:     label,
		Query:     query,
		Args:      args,
		StartTime: time.Now(),
	}

	for _, h := range e.hooks {
		ctx = h.BeforeQuery(ctx, event)
	}

	rows, err := fn(ctx)
	event.Err = err

	for _, h := range e.hooks {
		h.AfterQuery(ctx, event)
	}

	if err != nil {
		return nil, wrapQueryError(err, label, query, args)
	}
	return rows, nil
}
