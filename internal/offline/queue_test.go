package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/claude/coachtrack/internal/kv"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type switchConn struct{ online atomic.Bool }

func newConn(online bool) *switchConn {
	c := &switchConn{}
	c.online.Store(online)
	return c
}

func (c *switchConn) Online() bool { return c.online.Load() }

// scriptedReplayer answers each replay with the error returned by fn.
type scriptedReplayer struct {
	fn    func(PendingMutation) error
	calls []string
}

func (r *scriptedReplayer) Replay(_ context.Context, m PendingMutation) error {
	r.calls = append(r.calls, m.Endpoint)
	if r.fn == nil {
		return nil
	}
	return r.fn(m)
}

func endpoints(t *testing.T, q *Queue) []string {
	t.Helper()
	pending, err := q.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	out := make([]string, len(pending))
	for i, m := range pending {
		out[i] = m.Endpoint
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestEnqueueAppendsInOrder verifies mutations are stored FIFO with IDs and bodies.
func TestEnqueueAppendsInOrder(t *testing.T) {
	q := NewQueue(kv.NewMemoryStore(), nil, newConn(false), testLogger())
	q.Enqueue("/meals/log", "POST", map[string]int{"meal_number": 1})
	q.Enqueue("/weight/log", "POST", map[string]float64{"weight": 80.5})

	if got := q.PendingCount(); got != 2 {
		t.Fatalf("PendingCount = %d, want 2", got)
	}
	pending, _ := q.Pending()
	if pending[0].ID == "" || pending[0].ID == pending[1].ID {
		t.Errorf("IDs not unique: %q %q", pending[0].ID, pending[1].ID)
	}
	var body map[string]int
	if err := json.Unmarshal(pending[0].Body, &body); err != nil || body["meal_number"] != 1 {
		t.Errorf("body = %s, want meal_number 1", pending[0].Body)
	}
	if got := endpoints(t, q); !equal(got, []string{"/meals/log", "/weight/log"}) {
		t.Errorf("order = %v", got)
	}
}

// TestEnqueueStorageFailureIsSilent verifies an unwritable store drops the mutation without panicking.
func TestEnqueueStorageFailureIsSilent(t *testing.T) {
	store := kv.NewMemoryStore()
	store.SetFailures(nil, errors.New("quota exceeded"))
	q := NewQueue(store, nil, newConn(false), testLogger())

	q.Enqueue("/meals/log", "POST", nil)

	store.SetFailures(nil, nil)
	if got := q.PendingCount(); got != 0 {
		t.Errorf("PendingCount = %d, want 0", got)
	}
}

// TestPendingCountUnreadable verifies an unreadable store reports zero.
func TestPendingCountUnreadable(t *testing.T) {
	store := kv.NewMemoryStore()
	_ = store.Set(PendingKey, []byte("{corrupt"))
	q := NewQueue(store, nil, newConn(true), testLogger())

	if got := q.PendingCount(); got != 0 {
		t.Errorf("PendingCount = %d, want 0", got)
	}
}

// TestDrainReplaysAllInOrder verifies successful replays empty the queue in FIFO order.
func TestDrainReplaysAllInOrder(t *testing.T) {
	r := &scriptedReplayer{}
	q := NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())
	q.Enqueue("/a", "POST", nil)
	q.Enqueue("/b", "POST", nil)
	q.Enqueue("/c", "DELETE", nil)

	stats := q.Drain(context.Background())

	if stats.Replayed != 3 || stats.Retained != 0 {
		t.Errorf("stats = %+v, want 3 replayed", stats)
	}
	if !equal(r.calls, []string{"/a", "/b", "/c"}) {
		t.Errorf("replay order = %v", r.calls)
	}
	if q.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", q.PendingCount())
	}
}

// TestDrainRetainsFailuresAndDropsRejected verifies a server error is kept
// while a 401 rejection is dropped.
func TestDrainRetainsFailuresAndDropsRejected(t *testing.T) {
	r := &scriptedReplayer{fn: func(m PendingMutation) error {
		switch m.Endpoint {
		case "/boom":
			return errors.New("API 500: internal")
		case "/rejected":
			return fmt.Errorf("replay: %w", ErrCredentialRejected)
		}
		return nil
	}}
	q := NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())
	q.Enqueue("/ok", "POST", nil)
	q.Enqueue("/boom", "POST", nil)
	q.Enqueue("/rejected", "POST", nil)

	stats := q.Drain(context.Background())

	if stats.Replayed != 1 || stats.Dropped != 1 || stats.Retained != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := endpoints(t, q); !equal(got, []string{"/boom"}) {
		t.Errorf("remaining = %v, want [/boom]", got)
	}
}

// TestDrainOfflineMidway verifies going offline during a drain keeps every remaining item.
func TestDrainOfflineMidway(t *testing.T) {
	conn := newConn(true)
	r := &scriptedReplayer{fn: func(m PendingMutation) error {
		conn.online.Store(false)
		return nil
	}}
	q := NewQueue(kv.NewMemoryStore(), r, conn, testLogger())
	q.Enqueue("/a", "POST", nil)
	q.Enqueue("/b", "POST", nil)
	q.Enqueue("/c", "POST", nil)

	q.Drain(context.Background())

	if !equal(r.calls, []string{"/a"}) {
		t.Errorf("replayed = %v, want [/a]", r.calls)
	}
	if got := endpoints(t, q); !equal(got, []string{"/b", "/c"}) {
		t.Errorf("remaining = %v, want [/b /c]", got)
	}
}

// TestDrainMergesMutationsQueuedDuringDrain verifies failures come first,
// followed by mutations enqueued while the drain was running.
func TestDrainMergesMutationsQueuedDuringDrain(t *testing.T) {
	var q *Queue
	r := &scriptedReplayer{fn: func(m PendingMutation) error {
		if m.Endpoint == "/a" {
			q.Enqueue("/late", "POST", nil)
			return errors.New("API 503: unavailable")
		}
		return nil
	}}
	q = NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())
	q.Enqueue("/a", "POST", nil)
	q.Enqueue("/b", "POST", nil)

	q.Drain(context.Background())

	if got := endpoints(t, q); !equal(got, []string{"/a", "/late"}) {
		t.Errorf("remaining = %v, want [/a /late]", got)
	}
}

// TestDrainIsSingleFlight verifies a drain started from inside a replay is a no-op.
func TestDrainIsSingleFlight(t *testing.T) {
	var q *Queue
	var inner DrainStats
	r := &scriptedReplayer{fn: func(m PendingMutation) error {
		inner = q.Drain(context.Background())
		return nil
	}}
	q = NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())
	q.Enqueue("/a", "POST", nil)

	outer := q.Drain(context.Background())

	if !inner.Skipped {
		t.Error("reentrant Drain was not skipped")
	}
	if outer.Skipped || outer.Replayed != 1 {
		t.Errorf("outer stats = %+v", outer)
	}
	if len(r.calls) != 1 {
		t.Errorf("replay calls = %d, want 1", len(r.calls))
	}
}

// TestDrainStopsWithoutCredential verifies a missing credential halts the
// drain and keeps the current and remaining mutations.
func TestDrainStopsWithoutCredential(t *testing.T) {
	r := &scriptedReplayer{fn: func(m PendingMutation) error {
		if m.Endpoint == "/b" {
			return ErrNoCredential
		}
		return nil
	}}
	q := NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())
	q.Enqueue("/a", "POST", nil)
	q.Enqueue("/b", "POST", nil)
	q.Enqueue("/c", "POST", nil)

	stats := q.Drain(context.Background())

	if !equal(r.calls, []string{"/a", "/b"}) {
		t.Errorf("replayed = %v", r.calls)
	}
	if got := endpoints(t, q); !equal(got, []string{"/b", "/c"}) {
		t.Errorf("remaining = %v, want [/b /c]", got)
	}
	if stats.Retained != 2 {
		t.Errorf("Retained = %d, want 2", stats.Retained)
	}
}

// TestDrainEmptyQueue verifies an empty queue makes no replay calls.
func TestDrainEmptyQueue(t *testing.T) {
	r := &scriptedReplayer{}
	q := NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())

	stats := q.Drain(context.Background())
	if stats.Attempted != 0 || len(r.calls) != 0 {
		t.Errorf("stats = %+v, calls = %v", stats, r.calls)
	}
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) InvalidateAll(context.Context) error {
	c.n++
	return nil
}

// TestSyncerOnReconnect verifies coming online drains then refreshes caches,
// and going offline does nothing.
func TestSyncerOnReconnect(t *testing.T) {
	r := &scriptedReplayer{}
	q := NewQueue(kv.NewMemoryStore(), r, newConn(true), testLogger())
	q.Enqueue("/a", "POST", nil)
	inv := &countingInvalidator{}
	s := &Syncer{Queue: q, Cache: inv, Log: testLogger()}

	fn := s.OnReconnect(context.Background())
	fn(false)
	if len(r.calls) != 0 || inv.n != 0 {
		t.Fatalf("offline transition triggered work: calls=%v invalidations=%d", r.calls, inv.n)
	}

	fn(true)
	if len(r.calls) != 1 || inv.n != 1 {
		t.Errorf("calls=%v invalidations=%d, want 1 and 1", r.calls, inv.n)
	}
}
