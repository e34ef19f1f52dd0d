package sqlsession

import (
	"context"
	"testing"
	"time"
)

type order struct {
	ID        int64     `db:"id"`
	SKU       string    `db:"sku"`
	Quantity  int       `db:"qty"`
	CreatedAt time.Time `db:"created_at"`
	Note      *string   `db:"note"`
	Internal  string    `db:"-"`
}

func TestGet_DecodesRowIntoStruct(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	drv := newStubDriver()
	drv.on("SELECT * FROM orders WHERE id = $1",
		Row{"id": int64(7), "sku": "A-17", "qty": int64(3), "created_at": created, "note": "rush"},
	)
	sess, pool := newTestSession(t, drv, nil)
	defer pool.Shutdown(context.Background())
	defer sess.Close()

	o, err := Get[order](context.Background(), sess, "SELECT * FROM orders WHERE id = ?", 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if o == nil {
		t.Fatal("Expected a decoded row")
	}

	if o.ID != 7 {
		t.Errorf("Expected ID 7, got %d", o.ID)
	}
	if o.SKU != "A-17" {
		t.Errorf("Expected SKU A-17, got %s", o.SKU)
	}
	if o.Quantity != 3 {
		t.Errorf("Expected quantity 3 converted from int64, got %d", o.Quantity)
	}
	if !o.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, o.CreatedAt)
	}
	if o.Note == nil || *o.Note != "rush" {
		t.Errorf("Expected note pointer set, got %v", o.Note)
	}
}

func TestGet_ZeroRowsReturnsNil(t *testing.T) {
	drv := newStubDriver()
	sess, pool := newTestSession(t, drv, nil)
	defer pool.Shutdown(context.Background())
	defer sess.Close()

	o, err := Get[order](context.Background(), sess, "SELECT * FROM orders WHERE id = ?", 404)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if o != nil {
		t.Errorf("Expected nil on zero rows, got %v", o)
	}
}

func TestAll_DecodesEveryRow(t *testing.T) {
	drv := newStubDriver()
	drv.on("SELECT * FROM orders ORDER BY id",
		Row{"id": int64(1), "sku": "A"},
		Row{"id": int64(2), "sku": "B"},
	)
	sess, pool := newTestSession(t, drv, nil)
	defer pool.Shutdown(context.Background())
	defer sess.Close()

	out, err := All[order](context.Background(), sess, "SELECT * FROM orders ORDER BY id")
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(out) != 2 || out[0].SKU != "A" || out[1].SKU != "B" {
		t.Errorf("Unexpected decode result: %+v", out)
	}
}

func TestDecodeRow_SnakeCaseFallback(t *testing.T) {
	type shipment struct {
		TrackingCode string
		Carrier      string
	}

	m, err := decodeRow[shipment](Row{"tracking_code": "TC-1", "carrier": "acme"})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if m.TrackingCode != "TC-1" || m.Carrier != "acme" {
		t.Errorf("Unexpected decode result: %+v", m)
	}
}

func TestDecodeRow_MissingAndNullColumnsLeaveZero(t *testing.T) {
	m, err := decodeRow[order](Row{"id": int64(1), "note": nil})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if m.SKU != "" || m.Note != nil {
		t.Errorf("Expected zero values for absent columns, got %+v", m)
	}
}

func TestDecodeRow_TypeMismatch(t *testing.T) {
	_, err := decodeRow[order](Row{"created_at": "not a time"})
	if err == nil {
		t.Error("Expected error for unconvertible column value")
	}
}
