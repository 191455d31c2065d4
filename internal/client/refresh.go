package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/metrics"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
)

const refreshKey string = "refresh"

type refreshResponse struct {
	Token string `json:"token"`
}

// Refresh rotates the access token. Concurrent calls share a single request to the refresh
// endpoint. Queued requests are not dispatched while the refresh runs.
func (c *Client) Refresh(ctx context.Context) error {
	stale := c.accessToken(ctx)
	c.pause()
	defer c.resume()
	return c.refresh(ctx, stale)
}

// RefreshIfExpiring refreshes the access token only when it expires within the expiry buffer.
// It reports whether a refresh was attempted.
func (c *Client) RefreshIfExpiring(ctx context.Context) (bool, error) {
	refresh, stale := c.shouldRefresh(ctx)
	if !refresh {
		return false, nil
	}
	c.pause()
	defer c.resume()
	return true, c.refresh(ctx, stale)
}

// refresh joins the refresh in progress or starts a new one. stale is the access token the caller
// saw, if the stored token differs by the time the refresh starts it was already rotated and no
// call is made.
func (c *Client) refresh(ctx context.Context, stale string) error {
	ch := c.refreshGroup.DoChan(refreshKey, func() (interface{}, error) {
		return nil, c.doRefresh(stale)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) doRefresh(stale string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	if current := c.accessToken(ctx); current != stale {
		slog.Debug("HTTP CLIENT", "message", "access token was already rotated, skipping refresh")
		c.recorder.Refreshed(metrics.RefreshSkipped)
		return nil
	}

	headers, _ := c.authHeaders(ctx)
	res, err := c.transport.Do(ctx, string(MethodPost), c.refreshPath, transport.RequestOptions{Headers: headers})
	if err != nil {
		slog.Error("HTTP CLIENT", "message", "the refresh request failed", "error", err)
		c.recorder.Refreshed(metrics.RefreshFailed)
		return fmt.Errorf("%w: %w", gwerrors.ErrRefreshFailed, err)
	}
	if !res.OK() {
		slog.Info("HTTP CLIENT", "message", "the refresh token was rejected, logging out", "status", res.StatusCode)
		c.recorder.Refreshed(metrics.RefreshRejected)
		c.logout(ctx, headers)
		return gwerrors.ErrRefreshRejected
	}

	var body refreshResponse
	if err := res.JSON(&body); err != nil || body.Token == "" {
		slog.Info("HTTP CLIENT", "message", "the refresh response has no access token, logging out", "error", err)
		c.recorder.Refreshed(metrics.RefreshRejected)
		c.logout(ctx, headers)
		return gwerrors.ErrRefreshRejected
	}
	if err := c.store.SetAccessToken(ctx, body.Token); err != nil {
		c.recorder.Refreshed(metrics.RefreshFailed)
		return fmt.Errorf("%w: cannot store the access token: %w", gwerrors.ErrRefreshFailed, err)
	}
	c.recorder.Refreshed(metrics.RefreshSucceeded)
	slog.Info("HTTP CLIENT", "message", "access token refreshed")
	return nil
}

// logout tells the backend to end the session and wipes both tokens. Failures of the logout call
// are ignored.
func (c *Client) logout(ctx context.Context, headers http.Header) {
	res, err := c.transport.Do(ctx, string(MethodPost), c.logoutPath, transport.RequestOptions{Headers: headers})
	if err != nil {
		slog.Debug("HTTP CLIENT", "message", "the logout request failed", "error", err)
	} else if !res.OK() {
		slog.Debug("HTTP CLIENT", "message", "the logout request was rejected", "status", res.StatusCode)
	}
	if err := c.store.RemoveAccessToken(ctx); err != nil && !errors.Is(err, gwerrors.ErrTokenNotFound) {
		slog.Error("HTTP CLIENT", "message", "cannot remove the access token", "error", err)
	}
	if err := c.store.RemoveRefreshToken(ctx); err != nil && !errors.Is(err, gwerrors.ErrTokenNotFound) {
		slog.Error("HTTP CLIENT", "message", "cannot remove the refresh token", "error", err)
	}
	c.recorder.LoggedOut()
	if c.logoutHook != nil {
		c.logoutHook()
	}
}
