// Package api is the single entry point for calls to the coaching API. It
// attaches the bearer credential, queues mutations while offline and maps
// HTTP failures to typed errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/claude/coachtrack/internal/offline"
)

// DefaultPathPrefix is the client-facing path prefix under the API root.
const DefaultPathPrefix = "/api/client"

// maxErrorBody is how much of a failed response body is kept on StatusError.
const maxErrorBody = 800

var (
	// ErrUnauthorized is returned for a missing, expired or rejected credential. Never retried.
	ErrUnauthorized = errors.New("api: unauthorized")

	// ErrOffline is returned for calls that must not be queued while offline.
	ErrOffline = errors.New("api: offline")
)

// StatusError is a non-2xx, non-401 response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}

// Credentials provides the bearer token and forgets it when the server rejects it.
type Credentials interface {
	Token() (string, bool)
	Clear()
}

// Connectivity reports the current network belief.
type Connectivity interface {
	Online() bool
}

// Enqueuer records a mutation for later replay.
type Enqueuer interface {
	Enqueue(endpoint, method string, body any)
}

// Result is a successful response. Queued is set when the call was recorded
// for replay instead of being sent; Body is then empty.
type Result struct {
	Body   json.RawMessage
	Queued bool
}

// Empty reports whether the response carried no JSON body.
func (r *Result) Empty() bool {
	return r == nil || len(r.Body) == 0
}

// Decode parses the body into v. An empty body leaves v untouched.
func (r *Result) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Call describes one gateway request.
type Call struct {
	Endpoint string
	Method   string
	Body     any

	// NoQueue fails with ErrOffline instead of queueing while offline and
	// surfaces transport errors directly.
	NoQueue bool
}

// Options configures a Gateway.
type Options struct {
	Root         string
	PathPrefix   string
	HTTPClient   *http.Client
	Credentials  Credentials
	Connectivity Connectivity // nil means always online
	Queue        Enqueuer     // nil disables offline queueing

	// OnUnauthorized runs after a 401 clears the credential.
	OnUnauthorized func()
	Log            *slog.Logger
}

// Gateway performs authenticated calls against the coaching API.
type Gateway struct {
	base           string
	httpClient     *http.Client
	creds          Credentials
	conn           Connectivity
	queue          Enqueuer
	onUnauthorized func()
	log            *slog.Logger
}

// Compile-time check: *Gateway replays offline mutations.
var _ offline.Replayer = (*Gateway)(nil)

// NewGateway creates a gateway from opts.
func NewGateway(opts Options) *Gateway {
	prefix := opts.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		base:           strings.TrimRight(opts.Root, "/") + "/" + strings.Trim(prefix, "/"),
		httpClient:     hc,
		creds:          opts.Credentials,
		conn:           opts.Connectivity,
		queue:          opts.Queue,
		onUnauthorized: opts.OnUnauthorized,
		log:            log,
	}
}

// URL returns the absolute URL for endpoint.
func (g *Gateway) URL(endpoint string) string {
	return g.base + endpoint
}

// Request sends method to endpoint with an optional JSON body.
func (g *Gateway) Request(ctx context.Context, endpoint, method string, body any) (*Result, error) {
	return g.Do(ctx, Call{Endpoint: endpoint, Method: method, Body: body})
}

// Do performs c.
func (g *Gateway) Do(ctx context.Context, c Call) (*Result, error) {
	token, ok := g.creds.Token()
	if !ok {
		return nil, ErrUnauthorized
	}

	method := c.Method
	if method == "" {
		method = http.MethodGet
	}
	mutation := isMutation(method)

	var payload []byte
	if c.Body != nil {
		var err error
		if payload, err = json.Marshal(c.Body); err != nil {
			return nil, fmt.Errorf("api: encoding %s body: %w", c.Endpoint, err)
		}
	}

	if mutation && !g.online() {
		if c.NoQueue || g.queue == nil {
			return nil, ErrOffline
		}
		g.queue.Enqueue(c.Endpoint, method, rawOrNil(payload))
		return &Result{Queued: true}, nil
	}

	resp, err := g.send(ctx, method, c.Endpoint, token, "application/json", payload)
	if err != nil {
		if mutation && !c.NoQueue && g.queue != nil && ctx.Err() == nil {
			g.log.Warn("network failure on mutation, queued for replay", "method", method, "endpoint", c.Endpoint, "error", err)
			g.queue.Enqueue(c.Endpoint, method, rawOrNil(payload))
			return &Result{Queued: true}, nil
		}
		return nil, fmt.Errorf("api: %s %s: %w", method, c.Endpoint, err)
	}
	return g.handle(resp)
}

// Replay sends a recorded mutation. It never queues.
func (g *Gateway) Replay(ctx context.Context, m offline.PendingMutation) error {
	token, ok := g.creds.Token()
	if !ok {
		return fmt.Errorf("replaying %s: %w", m.Endpoint, offline.ErrNoCredential)
	}

	var payload []byte
	if m.HasBody() {
		payload = m.Body
	}
	resp, err := g.send(ctx, m.Method, m.Endpoint, token, "application/json", payload)
	if err != nil {
		return fmt.Errorf("replaying %s %s: %w", m.Method, m.Endpoint, err)
	}
	if _, err := g.handle(resp); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("replaying %s: %w: %w", m.Endpoint, err, offline.ErrCredentialRejected)
		}
		return fmt.Errorf("replaying %s: %w", m.Endpoint, err)
	}
	return nil
}

func (g *Gateway) online() bool {
	return g.conn == nil || g.conn.Online()
}

func (g *Gateway) send(ctx context.Context, method, endpoint, token, contentType string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.URL(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	return g.httpClient.Do(req)
}

func (g *Gateway) handle(resp *http.Response) (*Result, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		g.creds.Clear()
		if g.onUnauthorized != nil {
			g.onUnauthorized()
		}
		return nil, ErrUnauthorized
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{Status: resp.StatusCode, Body: string(data)}
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return &Result{}, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("api: response from %s is not JSON", resp.Request.URL.Path)
	}
	return &Result{Body: data}, nil
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// rawOrNil keeps an already-encoded body from being encoded twice by the queue.
func rawOrNil(payload []byte) any {
	if payload == nil {
		return nil
	}
	return json.RawMessage(payload)
}
