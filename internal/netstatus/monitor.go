// Package netstatus tracks whether the coaching API is reachable and notifies
// subscribers on every online/offline transition.
package netstatus

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Prober reports whether the network is currently usable.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Monitor holds the current connectivity belief. It starts online, matching
// the assumption that a freshly started client can reach the API.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int

	prober   Prober
	interval time.Duration
	log      *slog.Logger
}

// NewMonitor creates a monitor. prober may be nil when connectivity is only
// ever set manually (e.g. the --offline flag or tests).
func NewMonitor(prober Prober, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		online:   true,
		subs:     make(map[int]func(bool)),
		prober:   prober,
		interval: interval,
		log:      log,
	}
}

// Online reports the current belief.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records a connectivity observation. Subscribers run only when the
// value changes, outside the lock, in subscription order.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	m.log.Info("connectivity changed", "online", online)
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for transitions and returns a function that removes it.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Run probes on every interval until ctx is cancelled. The first probe runs immediately.
func (m *Monitor) Run(ctx context.Context) {
	if m.prober == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.Set(m.prober.Probe(ctx))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// HTTPProber treats any HTTP response from URL as connectivity, whatever the
// status. Only transport failures count as offline.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) bool {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
