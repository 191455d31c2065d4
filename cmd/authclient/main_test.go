package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/client"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/mockapi"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/tokenstore"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T, tr transport.Transport) (*client.Client, *tokenstore.MemoryStore) {
	store := tokenstore.NewMemoryStore()
	c, err := client.New(client.WithCredentialStore(store), client.WithTransport(tr))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, store
}

func mockAPITransport(t *testing.T) transport.Transport {
	api, err := mockapi.NewServer()
	require.NoError(t, err)
	server := httptest.NewServer(api.NewEcho())
	t.Cleanup(server.Close)
	baseURL, err := url.Parse(server.URL + mockapi.DefaultBasePath)
	require.NoError(t, err)
	tr, err := transport.NewHTTPTransport(transport.WithBaseURL(baseURL), transport.WithTimeout(5*time.Second))
	require.NoError(t, err)
	return tr
}

func TestSaveTokens(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()

	require.NoError(t, saveTokens(ctx, store, "", ""))
	_, err := store.GetAccessToken(ctx)
	assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)

	require.NoError(t, saveTokens(ctx, store, "access", "refresh"))
	access, err := store.GetAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", access)
	refresh, err := store.GetRefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refresh)
}

func TestRunLogsInAndSendsRequest(t *testing.T) {
	c, store := newMockClient(t, mockAPITransport(t))
	opts, err := parse(t, "--login", "john.doe@gmail.com", "-t", "users/me")
	require.NoError(t, err)

	assert.Equal(t, 0, run(context.Background(), c, store, opts))

	access, err := store.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	refresh, err := store.GetRefreshToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)
}

func TestRunExitCodes(t *testing.T) {
	c, store := newMockClient(t, mockAPITransport(t))

	opts, err := parse(t, "--login", "nobody@example.org")
	require.NoError(t, err)
	assert.Equal(t, 1, run(context.Background(), c, store, opts))

	opts, err = parse(t, "--login", "john.doe@gmail.com", "-t", "users/999")
	require.NoError(t, err)
	assert.Equal(t, 1, run(context.Background(), c, store, opts))

	opts, err = parse(t, "-X", "POST", "-t", "users", "-d", "{not json")
	require.NoError(t, err)
	assert.Equal(t, 2, run(context.Background(), c, store, opts))
}

func TestRunTransportFailure(t *testing.T) {
	tr := transport.TransportFunc(func(context.Context, string, string, transport.RequestOptions) (*transport.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})
	c, store := newMockClient(t, tr)
	opts, err := parse(t, "-t", "users")
	require.NoError(t, err)

	assert.Equal(t, 1, run(context.Background(), c, store, opts))
}
