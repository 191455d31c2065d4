package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
)

// run dispatches queued requests one at a time until the queue is empty or the client is paused.
func (c *Client) run() {
	for {
		c.mu.Lock()
		if c.status == StatusStopped || c.queue.IsEmpty() {
			if c.status != StatusStopped {
				c.status = StatusIdle
			}
			c.draining = false
			c.mu.Unlock()
			return
		}
		item, ok := c.queue.Dequeue()
		if !ok {
			c.mu.Unlock()
			continue
		}
		c.inFlight[item.ID] = item
		prev := c.lastEntered
		entered := make(chan struct{})
		c.lastEntered = entered
		c.mu.Unlock()
		c.dispatch(item, prev, entered)
	}
}

// dispatch refreshes the access token if it is about to expire and starts the call without
// waiting for it to complete. The call reaches the transport only after the previous dispatch
// closed prev, so transport calls start in dequeue order.
func (c *Client) dispatch(item *QueueItem, prev <-chan struct{}, entered chan<- struct{}) {
	ctx := context.Background()
	if refresh, stale := c.shouldRefresh(ctx); refresh {
		slog.Debug("HTTP CLIENT", "message", "access token expires soon, refreshing before dispatch", "requestID", item.ID)
		c.pause()
		err := c.refresh(ctx, stale)
		c.resume()
		if err != nil {
			slog.Info("HTTP CLIENT", "message", "proactive token refresh failed", "error", err, "requestID", item.ID)
		}
	}

	headers, signedWith := c.authHeaders(ctx)
	headers.Set(c.requestIDHeader, item.ID)
	for name, values := range item.Options.Headers {
		headers.Del(name)
		for _, value := range values {
			headers.Add(name, value)
		}
	}
	opts := transport.RequestOptions{
		Headers: headers,
		Query:   item.Options.Query,
		JSON:    item.Options.JSON,
		Body:    item.Options.Body,
	}

	c.recorder.RequestDispatched(string(item.Method))
	slog.Debug(
		"HTTP CLIENT",
		"message", "dispatching request",
		"requestID", item.ID,
		"method", item.Method,
		"target", item.Target,
		"replayed", item.Replayed,
	)
	go func() {
		if prev != nil {
			<-prev
		}
		close(entered)
		res, err := c.transport.Do(item.ctx, string(item.Method), item.Target, opts)
		c.inspect(item, signedWith, res, err)
	}()
}

// shouldRefresh reports whether a refresh token is present and the access token expires within the
// expiry buffer. A missing expiration counts as already expired. The current access token is
// returned so that the refresh can be skipped if someone else rotates it first.
func (c *Client) shouldRefresh(ctx context.Context) (bool, string) {
	if c.refreshToken(ctx) == "" {
		return false, ""
	}
	expiresAt, err := c.store.GetAccessTokenExpiration(ctx)
	if err != nil {
		slog.Debug("HTTP CLIENT", "message", "cannot read the access token expiration", "error", err)
	}
	if !c.now().Add(c.expiryBuffer).After(expiresAt) {
		return false, ""
	}
	return true, c.accessToken(ctx)
}

// inspect classifies the outcome of a dispatched request and runs the refresh and replay
// protocol for 401 responses.
func (c *Client) inspect(item *QueueItem, signedWith string, res *transport.Response, err error) {
	c.mu.Lock()
	_, tracked := c.inFlight[item.ID]
	delete(c.inFlight, item.ID)
	c.mu.Unlock()

	if !tracked {
		if err != nil {
			item.pending.reject(err)
		} else {
			item.pending.resolve(res)
		}
		return
	}
	if err != nil {
		slog.Info("HTTP CLIENT", "message", "request failed", "requestID", item.ID, "error", err)
		c.settle(item, nil, fmt.Errorf("%w: %w", gwerrors.ErrTransport, err))
		return
	}
	if res.StatusCode != http.StatusUnauthorized || item.Replayed {
		c.settle(item, res, nil)
		return
	}

	ctx := context.Background()
	if c.refreshToken(ctx) == "" {
		c.settle(item, res, nil)
		return
	}

	c.pause()
	defer c.resume()
	slog.Debug("HTTP CLIENT", "message", "request was not authorized, refreshing the access token", "requestID", item.ID)
	err = c.refresh(ctx, signedWith)
	switch {
	case errors.Is(err, gwerrors.ErrRefreshRejected):
		c.settle(item, res, nil)
		return
	case err != nil:
		c.settle(item, nil, err)
		return
	}
	c.replay(item)
}

// replay queues the request again under a new id. The replay settles the original Pending.
func (c *Client) replay(item *QueueItem) {
	replay, err := c.newItem(item.ctx, item.Method, item.Target, item.Options, item.pending)
	if err != nil {
		c.settle(item, nil, err)
		return
	}
	replay.Replayed = true

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.settle(item, nil, gwerrors.ErrClientClosed)
		return
	}
	c.queue.Enqueue(replay)
	c.mu.Unlock()

	c.recorder.Replayed()
	slog.Debug("HTTP CLIENT", "message", "request queued for replay", "requestID", item.ID, "replayID", replay.ID)
}

// authHeaders builds the headers carrying the current credentials and returns the access token
// they were built with.
func (c *Client) authHeaders(ctx context.Context) (http.Header, string) {
	headers := http.Header{}
	access := c.accessToken(ctx)
	if access != "" {
		headers.Set("Authorization", "Bearer "+access)
	}
	if refresh := c.refreshToken(ctx); refresh != "" {
		headers.Set(c.refreshTokenHeader, refresh)
	}
	return headers, access
}

func (c *Client) accessToken(ctx context.Context) string {
	token, err := c.store.GetAccessToken(ctx)
	if err != nil {
		if !errors.Is(err, gwerrors.ErrTokenNotFound) {
			slog.Error("HTTP CLIENT", "message", "cannot read the access token", "error", err)
		}
		return ""
	}
	return token
}

func (c *Client) refreshToken(ctx context.Context) string {
	token, err := c.store.GetRefreshToken(ctx)
	if err != nil {
		if !errors.Is(err, gwerrors.ErrTokenNotFound) {
			slog.Error("HTTP CLIENT", "message", "cannot read the refresh token", "error", err)
		}
		return ""
	}
	return token
}
