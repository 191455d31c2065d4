// Package tokenrefresher keeps the stored access token fresh in the background so that requests
// rarely have to wait for a refresh.
package tokenrefresher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/config"
	"github.com/go-co-op/gocron"
)

type TokenRefresher struct {
	Interval time.Duration

	refresher Refresher
}

// GetScheduler returns a scheduler running the refresh job at the configured interval. The job
// also runs as soon as the scheduler starts.
func (tr *TokenRefresher) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	refreshExpiringTokenTask := func(job gocron.Job) {
		err := tr.refreshExpiringToken(job.Context())
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "refreshExpiringToken failed", "error", err)
		}
	}

	_, err := s.Every(tr.Interval).
		SingletonMode().
		DoWithJobDetails(refreshExpiringTokenTask)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (tr *TokenRefresher) refreshExpiringToken(ctx context.Context) error {
	refreshed, err := tr.refresher.RefreshIfExpiring(ctx)
	if err != nil {
		return err
	}
	if refreshed {
		slog.Info("TOKEN REFRESHER", "message", "expiring access token refreshed")
	} else {
		slog.Debug("TOKEN REFRESHER", "message", "access token is not expiring yet")
	}
	return nil
}

type TokenRefresherOption func(*TokenRefresher) error

func WithInterval(interval time.Duration) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.Interval = interval
		return nil
	}
}

func WithConfig(keepFreshConfig config.KeepFreshConfig) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.Interval = time.Duration(keepFreshConfig.IntervalSeconds) * time.Second
		return nil
	}
}

func WithRefresher(refresher Refresher) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.refresher = refresher
		return nil
	}
}

// NewTokenRefresher creates a new TokenRefresher that refreshes the access token before it expires.
func NewTokenRefresher(options ...TokenRefresherOption) (TokenRefresher, error) {
	tr := TokenRefresher{}
	for _, opt := range options {
		err := opt(&tr)
		if err != nil {
			return TokenRefresher{}, err
		}
	}
	if tr.Interval <= 0 {
		return TokenRefresher{}, fmt.Errorf("invalid value for Interval (%s)", tr.Interval)
	}
	if tr.refresher == nil {
		return TokenRefresher{}, fmt.Errorf("refresher not initialized")
	}
	return tr, nil
}
