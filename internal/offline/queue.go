// Package offline persists mutations issued while the client is offline and
// replays them in order once connectivity returns.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/claude/coachtrack/internal/kv"
)

// PendingKey is the storage key holding the JSON list of pending mutations.
const PendingKey = "pending_mutations"

var (
	// ErrCredentialRejected marks a replay the server answered with 401.
	// The mutation is dropped.
	ErrCredentialRejected = errors.New("offline: credential rejected")

	// ErrNoCredential marks a replay that could not start because no credential
	// is stored. The drain stops and the remaining mutations are kept.
	ErrNoCredential = errors.New("offline: no credential")
)

// PendingMutation is a write request recorded for later replay.
type PendingMutation struct {
	ID        string          `json:"id"`
	Endpoint  string          `json:"endpoint"`
	Method    string          `json:"method"`
	Body      json.RawMessage `json:"body"`
	Timestamp time.Time       `json:"timestamp"`
}

// HasBody reports whether the mutation carries a non-null JSON body.
func (m PendingMutation) HasBody() bool {
	return len(m.Body) > 0 && string(m.Body) != "null"
}

// Replayer sends one recorded mutation to the server.
type Replayer interface {
	Replay(ctx context.Context, m PendingMutation) error
}

// Connectivity reports the current network belief.
type Connectivity interface {
	Online() bool
}

// DrainStats summarizes a single Drain call.
type DrainStats struct {
	Attempted int
	Replayed  int
	Dropped   int
	Retained  int
	Skipped   bool // another drain was already running
}

// Queue is the durable FIFO list of pending mutations.
type Queue struct {
	store    kv.Store
	replayer Replayer
	conn     Connectivity
	now      func() time.Time
	log      *slog.Logger

	// mu serializes read-modify-write of the stored list.
	mu       sync.Mutex
	draining atomic.Bool
}

// NewQueue creates a queue over store. The replayer may be set later with
// SetReplayer when the gateway and the queue reference each other.
func NewQueue(store kv.Store, replayer Replayer, conn Connectivity, log *slog.Logger) *Queue {
	return &Queue{
		store:    store,
		replayer: replayer,
		conn:     conn,
		now:      time.Now,
		log:      log,
	}
}

// SetReplayer sets the transport used by Drain.
func (q *Queue) SetReplayer(r Replayer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.replayer = r
}

// Enqueue appends a mutation. Storage failures are logged and the mutation is lost.
func (q *Queue) Enqueue(endpoint, method string, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		q.log.Error("failed to queue offline mutation: encoding body", "endpoint", endpoint, "error", err)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load()
	if err != nil {
		q.log.Error("failed to queue offline mutation: storage unavailable", "endpoint", endpoint, "error", err)
		return
	}
	pending = append(pending, PendingMutation{
		ID:        uuid.NewString(),
		Endpoint:  endpoint,
		Method:    method,
		Body:      raw,
		Timestamp: q.now(),
	})
	if err := q.save(pending); err != nil {
		q.log.Error("failed to queue offline mutation: storage unavailable", "endpoint", endpoint, "error", err)
		return
	}
	q.log.Info("queued offline mutation", "method", method, "endpoint", endpoint, "pending", len(pending))
}

// Drain replays every pending mutation in FIFO order. Only one drain runs at
// a time; a concurrent call returns immediately with Skipped set.
//
// The stored list is cleared before replay so mutations enqueued meanwhile
// are kept separately, then merged after the ones that failed.
func (q *Queue) Drain(ctx context.Context) DrainStats {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainStats{Skipped: true}
	}
	defer q.draining.Store(false)

	var stats DrainStats

	q.mu.Lock()
	replayer := q.replayer
	pending, err := q.load()
	if err != nil {
		q.mu.Unlock()
		q.log.Error("reading pending mutations", "error", err)
		return stats
	}
	if len(pending) == 0 {
		q.mu.Unlock()
		return stats
	}
	if err := q.save(nil); err != nil {
		q.mu.Unlock()
		q.log.Error("clearing pending mutations", "error", err)
		return stats
	}
	q.mu.Unlock()

	var failed []PendingMutation
replay:
	for i, m := range pending {
		if !q.conn.Online() || ctx.Err() != nil || replayer == nil {
			failed = append(failed, m)
			continue
		}

		stats.Attempted++
		err := replayer.Replay(ctx, m)
		switch {
		case err == nil:
			stats.Replayed++
		case errors.Is(err, ErrCredentialRejected):
			stats.Dropped++
			q.log.Warn("dropping mutation rejected as unauthorized", "endpoint", m.Endpoint)
		case errors.Is(err, ErrNoCredential):
			failed = append(failed, pending[i:]...)
			q.log.Warn("no credential, stopping drain", "remaining", len(pending)-i)
			break replay
		default:
			failed = append(failed, m)
			q.log.Warn("replay failed, keeping mutation", "endpoint", m.Endpoint, "error", err)
		}
	}
	stats.Retained = len(failed)

	q.mu.Lock()
	defer q.mu.Unlock()
	queuedDuringDrain, err := q.load()
	if err != nil {
		q.log.Error("reading mutations queued during drain", "error", err)
		queuedDuringDrain = nil
	}
	if err := q.save(append(failed, queuedDuringDrain...)); err != nil {
		q.log.Error("persisting pending mutations after drain", "error", err)
	}

	q.log.Info("drained pending mutations",
		"attempted", stats.Attempted, "replayed", stats.Replayed,
		"dropped", stats.Dropped, "retained", stats.Retained)
	return stats
}

// PendingCount returns the number of stored mutations, or 0 when storage is unreadable.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending, err := q.load()
	if err != nil {
		return 0
	}
	return len(pending)
}

// Pending returns a copy of the stored list.
func (q *Queue) Pending() ([]PendingMutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

func (q *Queue) load() ([]PendingMutation, error) {
	raw, err := q.store.Get(PendingKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pending []PendingMutation
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", PendingKey, err)
	}
	return pending, nil
}

func (q *Queue) save(pending []PendingMutation) error {
	if pending == nil {
		pending = []PendingMutation{}
	}
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", PendingKey, err)
	}
	return q.store.Set(PendingKey, raw)
}
