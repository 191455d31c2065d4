package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/mockapi"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/queue"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/tokenstore"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBackend struct {
	api    *mockapi.Server
	store  *tokenstore.MemoryStore
	client *Client
}

func newTestBackend(t *testing.T, options ...ClientOption) testBackend {
	api, err := mockapi.NewServer()
	require.NoError(t, err)
	server := httptest.NewServer(api.NewEcho())
	t.Cleanup(server.Close)
	baseURL, err := url.Parse(server.URL + mockapi.DefaultBasePath)
	require.NoError(t, err)
	tr, err := transport.NewHTTPTransport(transport.WithBaseURL(baseURL), transport.WithTimeout(5*time.Second))
	require.NoError(t, err)
	store := tokenstore.NewMemoryStore()
	return testBackend{api: api, store: store, client: newTestClient(t, store, tr, options...)}
}

// login authenticates through the client and saves the credential pair in the store.
func (b testBackend) login(t *testing.T, email string) mockapi.LoginResponse {
	tokens, err := PostJSON[mockapi.LoginResponse](testContext(t), b.client, "authentication/login", mockapi.LoginRequest{Email: email})
	require.NoError(t, err)
	require.NoError(t, b.store.SetAccessToken(context.Background(), tokens.Token))
	require.NoError(t, b.store.SetRefreshToken(context.Background(), tokens.RefreshToken))
	return tokens
}

func (b testBackend) expire(t *testing.T) {
	expired, err := b.api.Tokens().IssueAccessTokenWithLifetime(1, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, b.store.SetAccessToken(context.Background(), expired))
}

func TestIntegrationAuthenticatedRequest(t *testing.T) {
	b := newTestBackend(t)
	b.login(t, "john.doe@gmail.com")

	user, err := GetJSON[mockapi.User](testContext(t), b.client, "users/me", nil)

	require.NoError(t, err)
	assert.Equal(t, "john.doe@gmail.com", user.Email)
	assert.Equal(t, 0, b.api.Hits(http.MethodPost, "/api/tokens/refresh"))
}

func TestIntegrationBadCredentials(t *testing.T) {
	b := newTestBackend(t)

	_, err := PostJSON[mockapi.LoginResponse](testContext(t), b.client, "authentication/login", mockapi.LoginRequest{Email: "nobody@example.org"})

	var statusErr *gwerrors.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.JSONEq(t, `{"message":"Bad credentials"}`, string(statusErr.Body))
}

func TestIntegrationExpiredTokenIsRefreshed(t *testing.T) {
	b := newTestBackend(t)
	b.login(t, "john.doe@gmail.com")
	b.expire(t)

	users, err := GetJSON[[]mockapi.User](testContext(t), b.client, "users", nil)

	require.NoError(t, err)
	assert.NotEmpty(t, users)
	assert.Equal(t, 1, b.api.Hits(http.MethodPost, "/api/tokens/refresh"))
	assert.Equal(t, 1, b.api.Hits(http.MethodGet, "/api/users"))
}

func TestIntegrationUnauthorizedIsReplayed(t *testing.T) {
	b := newTestBackend(t)
	b.login(t, "john.doe@gmail.com")
	b.api.Fail(http.MethodGet, "/api/users/me", http.StatusUnauthorized, 1)

	user, err := GetJSON[mockapi.User](testContext(t), b.client, "users/me", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, 2, b.api.Hits(http.MethodGet, "/api/users/me"))
	assert.Equal(t, 1, b.api.Hits(http.MethodPost, "/api/tokens/refresh"))
}

func TestIntegrationRevokedRefreshTokenLogsOut(t *testing.T) {
	loggedOut := make(chan struct{}, 1)
	b := newTestBackend(t, WithLogoutHook(func() { loggedOut <- struct{}{} }))
	tokens := b.login(t, "john.doe@gmail.com")
	b.api.Tokens().RevokeRefreshToken(tokens.RefreshToken)
	b.expire(t)

	_, err := b.client.Get(testContext(t), "users/me", nil)

	assert.ErrorIs(t, err, gwerrors.ErrUnauthorized)
	<-loggedOut
	assert.Equal(t, 1, b.api.Hits(http.MethodPost, "/api/tokens/refresh"))
	assert.Equal(t, 1, b.api.Hits(http.MethodPost, "/api/authentication/logout"))
	_, err = b.store.GetAccessToken(context.Background())
	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
	_, err = b.store.GetRefreshToken(context.Background())
	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
}

func TestIntegrationTokenExpiringWhileQueued(t *testing.T) {
	b := newTestBackend(t)
	b.login(t, "john.doe@gmail.com")
	expired, err := b.api.Tokens().IssueAccessTokenWithLifetime(1, -time.Minute)
	require.NoError(t, err)
	lock := sync.Mutex{}
	signedWith := map[string]string{}
	b.client.Subscribe(func(e queue.Event[*QueueItem]) {
		if e.Type != queue.EventDequeued {
			return
		}
		order := e.Item.Options.Headers.Get("X-Order")
		if order == "2" {
			assert.NoError(t, b.store.SetAccessToken(context.Background(), expired))
		}
		access, _ := b.store.GetAccessToken(context.Background())
		lock.Lock()
		signedWith[order] = access
		lock.Unlock()
	})
	ctx := testContext(t)

	pendings := []*Pending{}
	for _, order := range []string{"1", "2", "3"} {
		p, err := b.client.Enqueue(ctx, MethodGet, "users/me", &Options{Headers: http.Header{"X-Order": []string{order}}})
		require.NoError(t, err)
		pendings = append(pendings, p)
	}
	for _, p := range pendings {
		res, err := p.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}

	assert.Equal(t, 1, b.api.Hits(http.MethodPost, "/api/tokens/refresh"))
	assert.Equal(t, 3, b.api.Hits(http.MethodGet, "/api/users/me"))
	current, err := b.store.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, expired, current)
	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, current, signedWith["3"])
}

func TestIntegrationUserLifecycle(t *testing.T) {
	b := newTestBackend(t)
	b.login(t, "john.doe@gmail.com")
	ctx := testContext(t)

	created, err := PostJSON[mockapi.CreatedResponse](ctx, b.client, "users", mockapi.CreateUser{Name: "test 123", Email: "test123@gmail.com"})
	require.NoError(t, err)

	_, err = b.client.Patch(ctx, "users/"+strconv.Itoa(created.ID), &Options{JSON: mockapi.CreateUser{Name: "renamed", Email: "test123@gmail.com"}})
	require.NoError(t, err)
	user, err := GetJSON[mockapi.User](ctx, b.client, "users/"+strconv.Itoa(created.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Name)

	res, err := b.client.Delete(ctx, "users/"+strconv.Itoa(created.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	_, err = b.client.Get(ctx, "users/"+strconv.Itoa(created.ID), nil)
	var statusErr *gwerrors.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestIntegrationQueryParameters(t *testing.T) {
	b := newTestBackend(t)
	b.login(t, "john.doe@gmail.com")

	users, err := GetJSON[[]mockapi.User](testContext(t), b.client, "users", &Options{Query: url.Values{"page": []string{"1"}}})

	require.NoError(t, err)
	assert.NotEmpty(t, users)
}
