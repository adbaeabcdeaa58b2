// Package cache holds fetched API responses keyed by hierarchical query keys,
// with prefix invalidation, per-key fetch cancellation and optimistic writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotRegistered is returned when a key without a fetcher must be fetched.
	ErrNotRegistered = errors.New("cache: no fetcher registered for key")

	// ErrCancelled is returned to callers waiting on a fetch that Cancel aborted.
	ErrCancelled = errors.New("cache: fetch cancelled")
)

// Key identifies a cached query, e.g. {"client", "meal-logs", "today"}.
type Key []string

func (k Key) String() string { return strings.Join(k, "/") }

// HasPrefix reports whether p is a leading subsequence of k. The empty key
// is a prefix of every key.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// Fetcher loads the current server value for a key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Invalid   bool            `json:"invalid"`
	Data      json.RawMessage `json:"data"`
}

type query struct {
	stale time.Duration
	fetch Fetcher
}

type flight struct {
	key    Key
	id     uint64
	cancel context.CancelFunc
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	store   *freecache.Cache
	keys    map[string]Key
	queries map[string]query
	flights map[string]*flight
	epochs  map[string]uint64
	seq     uint64
	now     func() time.Time

	group singleflight.Group
	log   *slog.Logger
}

// New creates a cache holding up to sizeMB megabytes of entries.
func New(sizeMB int, log *slog.Logger) *Cache {
	if sizeMB <= 0 {
		sizeMB = 8
	}
	return &Cache{
		store:   freecache.NewCache(sizeMB * 1024 * 1024),
		keys:    make(map[string]Key),
		queries: make(map[string]query),
		flights: make(map[string]*flight),
		epochs:  make(map[string]uint64),
		now:     time.Now,
		log:     log,
	}
}

// Register sets the fetcher for key. Data older than stale is refetched by Get.
func (c *Cache) Register(key Key, stale time.Duration, fetch Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[key.String()] = query{stale: stale, fetch: fetch}
}

// Get decodes the value for key into v, fetching when there is no fresh entry.
func (c *Cache) Get(ctx context.Context, key Key, v any) error {
	c.mu.Lock()
	e, ok := c.read(key)
	q, registered := c.queries[key.String()]
	c.mu.Unlock()

	if ok && !e.Invalid && registered && c.now().Sub(e.FetchedAt) < q.stale {
		return json.Unmarshal(e.Data, v)
	}

	raw, err := c.fetch(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Data decodes whatever is cached for key into v, stale or not.
func (c *Cache) Data(key Key, v any) bool {
	c.mu.Lock()
	e, ok := c.read(key)
	c.mu.Unlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		c.log.Warn("decoding cached entry", "key", key.String(), "error", err)
		return false
	}
	return true
}

// SetData replaces the cached value for key.
func (c *Cache) SetData(key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(key, entry{FetchedAt: c.now(), Data: raw})
}

// Cancel aborts in-flight fetches for every key under prefix. A fetch that
// started before Cancel never writes its result.
func (c *Cache) Cancel(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.queries {
		if parseKey(k).HasPrefix(prefix) {
			c.epochs[k]++
		}
	}
	for k, f := range c.flights {
		if f.key.HasPrefix(prefix) {
			f.cancel()
			delete(c.flights, k)
			c.group.Forget(k)
		}
	}
}

// Invalidate marks every entry under the prefixes stale and refetches the
// registered ones before returning.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...Key) error {
	c.mu.Lock()
	var refetch []Key
	for _, k := range c.keys {
		if !matchesAny(k, prefixes) {
			continue
		}
		e, ok := c.read(k)
		if !ok {
			continue
		}
		e.Invalid = true
		if err := c.write(k, e); err != nil {
			c.log.Warn("marking entry stale", "key", k.String(), "error", err)
		}
		if _, registered := c.queries[k.String()]; registered {
			refetch = append(refetch, k)
		}
	}
	c.mu.Unlock()

	var errs error
	for _, k := range refetch {
		if _, err := c.fetch(ctx, k); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refetching %s: %w", k, err))
		}
	}
	return errs
}

// InvalidateAll marks every entry stale and refetches the registered ones.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.Invalidate(ctx, Key{})
}

func (c *Cache) fetch(ctx context.Context, key Key) (json.RawMessage, error) {
	k := key.String()
	c.mu.Lock()
	q, ok := c.queries[k]
	epoch := c.epochs[k]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, k)
	}

	ch := c.group.DoChan(k, func() (any, error) {
		return c.runFetch(context.WithoutCancel(ctx), key, q, epoch)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(json.RawMessage), nil
	}
}

// runFetch executes one fetch shared by every concurrent caller for key. The
// result is discarded when Cancel bumped the key's epoch after the fetch began.
func (c *Cache) runFetch(parent context.Context, key Key, q query, epoch uint64) (json.RawMessage, error) {
	k := key.String()
	fctx, cancel := context.WithCancel(parent)
	defer cancel()

	c.mu.Lock()
	if c.epochs[k] != epoch {
		c.mu.Unlock()
		return nil, ErrCancelled
	}
	c.seq++
	id := c.seq
	c.flights[k] = &flight{key: key, id: id, cancel: cancel}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if f, ok := c.flights[k]; ok && f.id == id {
			delete(c.flights, k)
		}
		c.mu.Unlock()
	}()

	val, err := q.fetch(fctx)
	if fctx.Err() != nil {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("cache: encoding %s: %w", k, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochs[k] != epoch {
		return nil, ErrCancelled
	}
	if err := c.write(key, entry{FetchedAt: c.now(), Data: raw}); err != nil {
		return nil, err
	}
	return raw, nil
}

// read must be called with mu held.
func (c *Cache) read(key Key) (entry, bool) {
	k := key.String()
	raw, err := c.store.Get([]byte(k))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			delete(c.keys, k)
		}
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return entry{}, false
	}
	return e, true
}

// write must be called with mu held.
func (c *Cache) write(key Key, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: encoding entry %s: %w", key, err)
	}
	if err := c.store.Set([]byte(key.String()), raw, 0); err != nil {
		return fmt.Errorf("cache: storing %s: %w", key, err)
	}
	c.keys[key.String()] = append(Key(nil), key...)
	return nil
}

// writeRaw restores a previously read entry byte for byte. mu must be held.
func (c *Cache) writeRaw(key Key, raw []byte) error {
	if err := c.store.Set([]byte(key.String()), raw, 0); err != nil {
		return fmt.Errorf("cache: restoring %s: %w", key, err)
	}
	c.keys[key.String()] = append(Key(nil), key...)
	return nil
}

func (c *Cache) remove(key Key) {
	c.store.Del([]byte(key.String()))
	delete(c.keys, key.String())
}

func parseKey(s string) Key {
	if s == "" {
		return Key{}
	}
	return Key(strings.Split(s, "/"))
}

func matchesAny(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}
