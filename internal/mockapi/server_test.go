package mockapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, server *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.NewEcho().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, server *Server, email string) LoginResponse {
	rec := doRequest(t, server, http.MethodPost, "/api/authentication/login", LoginRequest{Email: email}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestDefaultUsers(t *testing.T) {
	users := DefaultUsers()
	require.NotEmpty(t, users)
	assert.Equal(t, User{ID: 1, Name: "John Doe", Email: "john.doe@gmail.com"}, users[0])
}

func TestLoadUsersErrors(t *testing.T) {
	_, err := LoadUsers([]byte("users:\n  - id: 0\n    email: a@b.c\n"))
	assert.Error(t, err)
	_, err = LoadUsers([]byte("users:\n  - id: 1\n  - id: 1\n"))
	assert.ErrorContains(t, err, "duplicate")
	_, err = LoadUsers([]byte("users: [[["))
	assert.Error(t, err)
}

func TestLoginAndGetCurrentUser(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)

	tokens := login(t, server, "john.doe@gmail.com")
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	rec := doRequest(t, server, http.MethodGet, "/api/users/me", nil, map[string]string{"Authorization": "Bearer " + tokens.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	var user User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, 1, user.ID)
}

func TestLoginBadCredentials(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodPost, "/api/authentication/login", LoginRequest{Email: "nobody@example.org"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthorized(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/api/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())

	expired, err := server.Tokens().IssueAccessTokenWithLifetime(1, -time.Minute)
	require.NoError(t, err)
	rec = doRequest(t, server, http.MethodGet, "/api/users", nil, map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := NewTokenIssuer("other-secret", time.Minute, time.Minute)
	forged, err := other.IssueAccessToken(1)
	require.NoError(t, err)
	rec = doRequest(t, server, http.MethodGet, "/api/users", nil, map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)
	tokens := login(t, server, "john.doe@gmail.com")

	rec := doRequest(t, server, http.MethodPost, "/api/tokens/refresh", nil, map[string]string{RefreshTokenHeader: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var res RefreshTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, tokens.Token, res.Token)
	userID, err := server.Tokens().VerifyAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, userID)

	rec = doRequest(t, server, http.MethodPost, "/api/tokens/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doRequest(t, server, http.MethodPost, "/api/tokens/refresh", nil, map[string]string{RefreshTokenHeader: "unknown"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredRefreshToken(t *testing.T) {
	issuer := NewTokenIssuer(DefaultSecret, time.Minute, -time.Second)
	server, err := NewServer(WithTokenIssuer(issuer))
	require.NoError(t, err)
	tokens := login(t, server, "john.doe@gmail.com")

	rec := doRequest(t, server, http.MethodPost, "/api/tokens/refresh", nil, map[string]string{RefreshTokenHeader: tokens.RefreshToken})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)
	tokens := login(t, server, "john.doe@gmail.com")

	rec := doRequest(t, server, http.MethodPost, "/api/authentication/logout", nil, map[string]string{RefreshTokenHeader: tokens.RefreshToken})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/tokens/refresh", nil, map[string]string{RefreshTokenHeader: tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserCRUD(t *testing.T) {
	server, err := NewServer(WithUsers(User{ID: 1, Name: "John Doe", Email: "john.doe@gmail.com"}))
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + login(t, server, "john.doe@gmail.com").Token}

	rec := doRequest(t, server, http.MethodPost, "/api/users", CreateUser{Name: "test 123", Email: "test123@gmail.com"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 2, created.ID)

	rec = doRequest(t, server, http.MethodPost, "/api/users", CreateUser{Name: "", Email: "invalid"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodPatch, "/api/users/2", CreateUser{Name: "renamed", Email: "test123@gmail.com"}, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, server, http.MethodGet, "/api/users/2", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var user User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "renamed", user.Name)

	rec = doRequest(t, server, http.MethodGet, "/api/users", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Equal(t, []int{1, 2}, []int{users[0].ID, users[1].ID})

	rec = doRequest(t, server, http.MethodDelete, "/api/users/2", nil, auth)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(t, server, http.MethodGet, "/api/users/2", nil, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, server, http.MethodPut, "/api/users/2", CreateUser{Name: "ghost", Email: "ghost@example.org"}, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInjectedFailuresAndHits(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + login(t, server, "john.doe@gmail.com").Token}
	server.Fail(http.MethodGet, "/api/users/me", http.StatusUnauthorized, 1)

	rec := doRequest(t, server, http.MethodGet, "/api/users/me", nil, auth)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doRequest(t, server, http.MethodGet, "/api/users/me", nil, auth)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, server.Hits(http.MethodGet, "/api/users/me"))
	assert.Equal(t, 1, server.Hits(http.MethodPost, "/api/authentication/login"))

	server.Reset()
	assert.Equal(t, 0, server.Hits(http.MethodGet, "/api/users/me"))
}

func TestRateLimit(t *testing.T) {
	server, err := NewServer(WithRateLimit(0.001, 1))
	require.NoError(t, err)
	e := server.NewEcho()

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/authentication/login", bytes.NewReader([]byte(`{"email":"john.doe@gmail.com"}`)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	_, err = NewServer(WithRateLimit(-1, 1))
	assert.Error(t, err)
}

func TestRequestAttrs(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "abc")

	assert.Equal(t, []any{"requestID", "abc"}, requestAttrs(c))

	span := sentry.StartTransaction(req.Context(), "GET /api/users")
	defer span.Finish()
	c.SetRequest(req.WithContext(span.Context()))

	assert.Equal(t, []any{"requestID", "abc", "traceID", span.TraceID.String()}, requestAttrs(c))
}
