package sqlsession

import (
	"context"
	"errors"
	"testing"

	"github.com/fernandezvara/sqlsession/hooks"
)

// countingHook records executor dispatches.
type countingHook struct {
	before int
	after  int
	events []*hooks.QueryEvent
}

func (h *countingHook) BeforeQuery(ctx context.Context, event *hooks.QueryEvent) context.Context {
	h.before++
	return ctx
}

func (h *countingHook) AfterQuery(ctx context.Context, event *hooks.QueryEvent) {
	h.after++
	h.events = append(h.events, event)
}

func TestExecutor_DispatchesOneEventPerQuery(t *testing.T) {
	hook := &countingHook{}
	drv := newStubDriver()
	drv.on("SELECT * FROM orders WHERE id = $1", Row{"id": int64(1)})

	pool := newTestPool(t, drv, nil)
	sess, err := Open(context.Background(), pool, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()
	sess.exec.hooks = append(sess.exec.hooks, hook)

	if _, err := sess.Get(context.Background(), "SELECT * FROM orders WHERE id = ?", 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := sess.All(context.Background(), "SELECT * FROM orders WHERE id = ?", 2); err != nil {
		t.Fatalf("All failed: %v", err)
	}

	if hook.before != 2 || hook.after != 2 {
		t.Errorf("Expected 2 before / 2 after, got %d / %d", hook.before, hook.after)
	}

	event := hook.events[0]
	if event.Query != "SELECT * FROM orders WHERE id = $1" {
		t.Errorf("Expected normalized query in event, got %q", event.Query)
	}
	if event.StartTime.IsZero() {
		t.Error("Expected start time recorded")
	}
	if event.Err != nil {
		t.Errorf("Expected no error on success, got %v", event.Err)
	}
}

func TestExecutor_PreparedStatementsPassThrough(t *testing.T) {
	hook := &countingHook{}
	drv := newStubDriver()
	drv.on("SELECT * FROM orders WHERE id = $1", Row{"id": int64(1)})

	pool := newTestPool(t, drv, nil)
	sess, err := Open(context.Background(), pool, Registry{
		{Name: "order_by_id", Query: "SELECT * FROM orders WHERE id = ?"},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()
	sess.exec.hooks = append(sess.exec.hooks, hook)

	if _, err := sess.Statement("order_by_id").Get(context.Background(), 1); err != nil {
		t.Fatalf("statement Get failed: %v", err)
	}

	if hook.after != 1 {
		t.Fatalf("Expected prepared execution to pass through the executor, got %d events", hook.after)
	}
	if hook.events[0].Label != "order_by_id" {
		t.Errorf("Expected statement name as label, got %q", hook.events[0].Label)
	}
}

func TestExecutor_FailureReachesHooks(t *testing.T) {
	hook := &countingHook{}
	drv := newStubDriver()

	pool := newTestPool(t, drv, nil)
	sess, err := Open(context.Background(), pool, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()
	sess.exec.hooks = append(sess.exec.hooks, hook)

	drv.conns[0].queryErr = errors.New("backend down")

	if _, err := sess.All(context.Background(), "SELECT 1"); err == nil {
		t.Fatal("Expected error")
	}

	if hook.after != 1 {
		t.Fatalf("Expected 1 event, got %d", hook.after)
	}
	if hook.events[0].Err == nil {
		t.Error("Expected failure recorded on the event")
	}
}
