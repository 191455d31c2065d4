package tokenrefresher

import "context"

// Refresher rotates the access token when it is about to expire and reports whether it tried.
type Refresher interface {
	RefreshIfExpiring(ctx context.Context) (bool, error)
}
