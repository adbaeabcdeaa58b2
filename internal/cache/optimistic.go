package cache

import (
	"context"
	"encoding/json"
)

// Transaction describes one optimistic write against a single cached value.
type Transaction[T any] struct {
	Key Key

	// Cancel lists prefixes whose in-flight fetches are aborted before the
	// write. Defaults to Key.
	Cancel []Key

	// Apply computes the optimistic value from the cached one. It is only
	// called when Key holds data, and must not call back into the cache.
	Apply func(prev T) T

	// Invalidate lists prefixes refetched once the commit settles. Defaults to Key.
	Invalidate []Key
}

// Optimistic applies tx locally, runs commit, and rolls the entry back to its
// exact prior bytes when commit fails. Either way the Invalidate prefixes are
// refetched afterwards. It returns commit's error.
func Optimistic[T any](ctx context.Context, c *Cache, tx Transaction[T], commit func(ctx context.Context) error) error {
	cancel := tx.Cancel
	if len(cancel) == 0 {
		cancel = []Key{tx.Key}
	}
	for _, p := range cancel {
		c.Cancel(p)
	}

	snapshot, applied := apply(c, tx)

	err := commit(ctx)
	if err != nil && applied {
		c.mu.Lock()
		if rerr := c.writeRaw(tx.Key, snapshot); rerr != nil {
			c.remove(tx.Key)
			c.log.Warn("rolling back optimistic write", "key", tx.Key.String(), "error", rerr)
		}
		c.mu.Unlock()
	}

	invalidate := tx.Invalidate
	if len(invalidate) == 0 {
		invalidate = []Key{tx.Key}
	}
	if ierr := c.Invalidate(ctx, invalidate...); ierr != nil {
		c.log.Warn("refetch after optimistic write failed", "key", tx.Key.String(), "error", ierr)
	}
	return err
}

// apply swaps in the optimistic value under the cache lock and returns the
// raw entry it replaced.
func apply[T any](c *Cache, tx Transaction[T]) ([]byte, bool) {
	if tx.Apply == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := []byte(tx.Key.String())
	snapshot, err := c.store.Get(k)
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(snapshot, &e); err != nil {
		return nil, false
	}
	var prev T
	if err := json.Unmarshal(e.Data, &prev); err != nil {
		c.log.Warn("decoding cached entry for optimistic write", "key", tx.Key.String(), "error", err)
		return nil, false
	}

	raw, err := json.Marshal(tx.Apply(prev))
	if err != nil {
		c.log.Warn("encoding optimistic value", "key", tx.Key.String(), "error", err)
		return nil, false
	}
	e.Data = raw
	if err := c.write(tx.Key, e); err != nil {
		c.log.Warn("storing optimistic value", "key", tx.Key.String(), "error", err)
		return nil, false
	}
	return snapshot, true
}
