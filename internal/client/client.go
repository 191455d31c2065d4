// Package client sends HTTP requests through an ordered queue and keeps the access token fresh.
//
// Requests are dispatched one after the other in the order they were submitted. Before each
// dispatch the access token is refreshed if it is about to expire. A request rejected with a 401
// triggers a single refresh shared by every request waiting on it, after which the request is
// replayed without the caller noticing.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/metrics"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/queue"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshPath        string        = "tokens/refresh"
	DefaultLogoutPath         string        = "authentication/logout"
	DefaultRefreshTokenHeader string        = "X-Refresh-Token"
	DefaultRequestIDHeader    string        = "X-Request-ID"
	DefaultExpiryBuffer       time.Duration = 10 * time.Second
	DefaultRefreshTimeout     time.Duration = 30 * time.Second
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// QueueItem is a request waiting to be dispatched. Items are never modified after creation.
type QueueItem struct {
	ID       string
	Method   Method
	Target   string
	Options  *Options
	Replayed bool

	ctx     context.Context
	pending *Pending
}

type Client struct {
	store       models.CredentialStore
	transport   transport.Transport
	idGenerator models.IDGenerator
	recorder    metrics.Recorder
	logoutHook  func()

	refreshPath        string
	logoutPath         string
	refreshTokenHeader string
	requestIDHeader    string
	expiryBuffer       time.Duration
	refreshTimeout     time.Duration
	now                func() time.Time

	refreshGroup singleflight.Group

	// mu guards everything below
	mu       sync.Mutex
	queue    *queue.Queue[*QueueItem]
	inFlight map[string]*QueueItem
	status   Status
	pauses   int
	draining bool
	closed   bool
	// closed by the latest dispatch right before it reaches the transport
	lastEntered chan struct{}
}

func (c *Client) Get(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	return c.do(ctx, MethodGet, target, opts)
}

func (c *Client) Post(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	return c.do(ctx, MethodPost, target, opts)
}

func (c *Client) Put(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	return c.do(ctx, MethodPut, target, opts)
}

func (c *Client) Patch(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	return c.do(ctx, MethodPatch, target, opts)
}

func (c *Client) Delete(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	return c.do(ctx, MethodDelete, target, opts)
}

func (c *Client) Head(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	return c.do(ctx, MethodHead, target, opts)
}

// Request sends a request with the method given in the options. An unsupported or missing method
// is rejected before anything is queued.
func (c *Client) Request(ctx context.Context, target string, opts *Options) (*transport.Response, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: no method provided", gwerrors.ErrInvalidMethod)
	}
	method, err := ParseMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, target, opts)
}

func (c *Client) do(ctx context.Context, method Method, target string, opts *Options) (*transport.Response, error) {
	pending, err := c.Enqueue(ctx, method, target, opts)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}

// Enqueue queues a request and returns without waiting for it. Requests enqueued from the same
// goroutine are dispatched in the order of the calls.
func (c *Client) Enqueue(ctx context.Context, method Method, target string, opts *Options) (*Pending, error) {
	if err := method.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	item, err := c.newItem(ctx, method, target, opts, newPending())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, gwerrors.ErrClientClosed
	}
	c.queue.Enqueue(item)
	return item.pending, nil
}

func (c *Client) newItem(ctx context.Context, method Method, target string, opts *Options, pending *Pending) (*QueueItem, error) {
	id, err := c.idGenerator.ID()
	if err != nil {
		return nil, fmt.Errorf("cannot generate a request id: %w", err)
	}
	return &QueueItem{
		ID:      id,
		Method:  method,
		Target:  target,
		Options: opts,
		ctx:     ctx,
		pending: pending,
	}, nil
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers a callback for the events of the request queue. The callback runs while the
// client is locked: it must return quickly and must not call any method of the client.
func (c *Client) Subscribe(callback func(queue.Event[*QueueItem])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	unsubscribe := c.queue.Subscribe(callback)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		unsubscribe()
	}
}

// Clear drops every request that was not dispatched yet, their callers receive ErrQueueCleared.
// It returns the number of dropped requests.
func (c *Client) Clear() int {
	c.mu.Lock()
	dropped := c.queue.Clear()
	c.mu.Unlock()
	for _, item := range dropped {
		if item.pending.reject(gwerrors.ErrQueueCleared) {
			c.recorder.RequestSettled(metrics.OutcomeCleared)
		}
	}
	if len(dropped) > 0 {
		slog.Info("HTTP CLIENT", "message", "queue cleared", "droppedRequests", len(dropped))
	}
	return len(dropped)
}

// Close clears the queue and rejects any further request. Requests already dispatched complete normally.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Clear()
}

// onQueueEvent starts the drain loop when a request is queued on an idle client.
// It is called with c.mu held.
func (c *Client) onQueueEvent(event queue.Event[*QueueItem]) {
	if event.Type != queue.EventEnqueued || c.status != StatusIdle {
		return
	}
	c.startDrain()
}

// startDrain must be called with c.mu held.
func (c *Client) startDrain() {
	c.status = StatusRunning
	if c.draining {
		return
	}
	c.draining = true
	go c.run()
}

// pause stops the drain loop from dispatching until the matching resume.
func (c *Client) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauses++
	c.status = StatusStopped
}

func (c *Client) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauses--
	if c.pauses > 0 {
		return
	}
	c.pauses = 0
	c.status = StatusIdle
	if !c.queue.IsEmpty() {
		c.startDrain()
	}
}

func (c *Client) settle(item *QueueItem, res *transport.Response, err error) {
	var outcome string
	switch {
	case err != nil:
		outcome = metrics.OutcomeTransportError
		item.pending.reject(err)
	case res.OK() || item.Options.AllowErrorStatus:
		outcome = metrics.OutcomeOK
		item.pending.resolve(res)
	default:
		outcome = metrics.OutcomeErrorStatus
		if res.StatusCode == http.StatusUnauthorized {
			outcome = metrics.OutcomeUnauthorized
		}
		item.pending.reject(&gwerrors.StatusError{
			Method:     res.Method,
			URL:        res.URL,
			StatusCode: res.StatusCode,
			Body:       res.Body,
		})
	}
	c.recorder.RequestSettled(outcome)
}

// New creates a client. A credential store and a transport are required.
func New(options ...ClientOption) (*Client, error) {
	c := Client{
		idGenerator:        models.UUIDGenerator{},
		recorder:           metrics.NoopRecorder{},
		refreshPath:        DefaultRefreshPath,
		logoutPath:         DefaultLogoutPath,
		refreshTokenHeader: DefaultRefreshTokenHeader,
		requestIDHeader:    DefaultRequestIDHeader,
		expiryBuffer:       DefaultExpiryBuffer,
		refreshTimeout:     DefaultRefreshTimeout,
		now:                time.Now,
		queue:              queue.New[*QueueItem](),
		inFlight:           map[string]*QueueItem{},
		status:             StatusIdle,
	}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.store == nil {
		return &Client{}, fmt.Errorf("credential store not initialized")
	}
	if c.transport == nil {
		return &Client{}, fmt.Errorf("transport not initialized")
	}
	if c.idGenerator == nil {
		return &Client{}, fmt.Errorf("id generator not initialized")
	}
	if c.refreshPath == "" || c.logoutPath == "" {
		return &Client{}, fmt.Errorf("the refresh and logout paths cannot be empty")
	}
	if c.refreshTokenHeader == "" || c.requestIDHeader == "" {
		return &Client{}, fmt.Errorf("the refresh token and request id header names cannot be empty")
	}
	if c.expiryBuffer < 0 {
		return &Client{}, fmt.Errorf("invalid value for the expiry buffer (%s)", c.expiryBuffer)
	}
	if c.refreshTimeout <= 0 {
		return &Client{}, fmt.Errorf("invalid value for the refresh timeout (%s)", c.refreshTimeout)
	}
	c.queue.Subscribe(c.onQueueEvent)
	return &c, nil
}
