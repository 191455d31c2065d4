package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/config"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/metrics"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
)

// Options are the per request settings supplied by callers.
type Options struct {
	// Method is only read by Client.Request, the verb methods set it themselves.
	Method  Method
	Headers http.Header
	Query   url.Values
	JSON    any
	Body    []byte
	// AllowErrorStatus resolves requests with non-2xx responses instead of failing them.
	AllowErrorStatus bool
}

type ClientOption func(*Client) error

func WithCredentialStore(store models.CredentialStore) ClientOption {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

func WithTransport(tr transport.Transport) ClientOption {
	return func(c *Client) error {
		c.transport = tr
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) ClientOption {
	return func(c *Client) error {
		c.idGenerator = generator
		return nil
	}
}

func WithRecorder(recorder metrics.Recorder) ClientOption {
	return func(c *Client) error {
		c.recorder = recorder
		return nil
	}
}

func WithEndpoints(refreshPath, logoutPath string) ClientOption {
	return func(c *Client) error {
		c.refreshPath = refreshPath
		c.logoutPath = logoutPath
		return nil
	}
}

func WithHeaderNames(refreshTokenHeader, requestIDHeader string) ClientOption {
	return func(c *Client) error {
		c.refreshTokenHeader = refreshTokenHeader
		c.requestIDHeader = requestIDHeader
		return nil
	}
}

func WithExpiryBuffer(buffer time.Duration) ClientOption {
	return func(c *Client) error {
		c.expiryBuffer = buffer
		return nil
	}
}

func WithRefreshTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		c.refreshTimeout = timeout
		return nil
	}
}

// WithLogoutHook registers a function called after the credentials were wiped because the
// refresh token was rejected.
func WithLogoutHook(hook func()) ClientOption {
	return func(c *Client) error {
		c.logoutHook = hook
		return nil
	}
}

func WithConfig(clientConfig config.ClientConfig) ClientOption {
	return func(c *Client) error {
		c.refreshPath = clientConfig.RefreshPath
		c.logoutPath = clientConfig.LogoutPath
		c.refreshTokenHeader = clientConfig.RefreshTokenHeader
		c.requestIDHeader = clientConfig.RequestIDHeader
		c.expiryBuffer = time.Duration(clientConfig.ExpiryBufferSeconds) * time.Second
		c.refreshTimeout = time.Duration(clientConfig.RefreshTimeoutSeconds) * time.Second
		switch clientConfig.IDGenerator {
		case config.IDGeneratorUUID, "":
			c.idGenerator = models.UUIDGenerator{}
		case config.IDGeneratorULID:
			c.idGenerator = models.ULIDGenerator{}
		default:
			return fmt.Errorf("unknown id generator %q", clientConfig.IDGenerator)
		}
		return nil
	}
}
