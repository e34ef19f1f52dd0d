// Package hooks provides observability hooks for sqlsession's instrumented
// query executor.
package hooks

import (
	"context"
	"time"
)

// QueryEvent describes one query passing through the executor.
type QueryEvent struct {
	Label     string    // Logical label: statement name or operation
	Query     string    // Normalized query text
	Args      []any     // Positional arguments
	StartTime time.Time // Set by the executor before the query runs
	Err       error     // Set before AfterQuery when the query failed
}

// QueryHook observes query execution. BeforeQuery may derive a new context
// (e.g., to carry a span); AfterQuery always receives that context.
type QueryHook interface {
	BeforeQuery(ctx context.Context, event *QueryEvent) context.Context
	AfterQuery(ctx context.Context, event *QueryEvent)
}
