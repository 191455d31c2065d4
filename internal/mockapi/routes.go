package mockapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

// RefreshTokenHeader carries the refresh token on refresh and logout requests.
const RefreshTokenHeader string = "X-Refresh-Token"

type message struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

type CreatedResponse struct {
	ID int `json:"id"`
}

// requestAttrs returns the request id and, when sentry tracing is on, the trace id as log attributes.
func requestAttrs(c echo.Context) []any {
	attrs := []any{"requestID", c.Response().Header().Get(echo.HeaderXRequestID)}
	if span := sentry.TransactionFromContext(c.Request().Context()); span != nil {
		attrs = append(attrs, "traceID", span.TraceID.String())
	}
	return attrs
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, message{Message: "Unauthorized"})
}

// authenticate verifies the bearer token and returns the id of the user it was issued to.
func (s *Server) authenticate(c echo.Context) (int, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return 0, fmt.Errorf("missing bearer token")
	}
	return s.tokens.VerifyAccessToken(token)
}

func (s *Server) userID(c echo.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) getUsers(c echo.Context) error {
	if _, err := s.authenticate(c); err != nil {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, s.users.List())
}

func (s *Server) createUser(c echo.Context) error {
	var data CreateUser
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	if err := data.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	user := s.users.Create(data)
	return c.JSON(http.StatusCreated, CreatedResponse{ID: user.ID})
}

func (s *Server) getCurrentUser(c echo.Context) error {
	id, err := s.authenticate(c)
	if err != nil {
		return unauthorized(c)
	}
	user, found := s.users.Get(id)
	if !found {
		return c.JSON(http.StatusNotFound, message{Message: fmt.Sprintf("User with id %d not found", id)})
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) getUserByID(c echo.Context) error {
	if _, err := s.authenticate(c); err != nil {
		return unauthorized(c)
	}
	id, ok := s.userID(c)
	user, found := s.users.Get(id)
	if !ok || !found {
		return c.JSON(http.StatusNotFound, message{Message: fmt.Sprintf("User with id %s not found", c.Param("id"))})
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) updateUser(c echo.Context) error {
	if _, err := s.authenticate(c); err != nil {
		return unauthorized(c)
	}
	var data CreateUser
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	if err := data.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	id, ok := s.userID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, message{Message: fmt.Sprintf("User with id %s not found", c.Param("id"))})
	}
	user, found := s.users.Update(id, data)
	if !found {
		return c.JSON(http.StatusNotFound, message{Message: fmt.Sprintf("User with id %d not found", id)})
	}
	return c.JSON(http.StatusOK, CreatedResponse{ID: user.ID})
}

func (s *Server) deleteUser(c echo.Context) error {
	if _, err := s.authenticate(c); err != nil {
		return unauthorized(c)
	}
	if id, ok := s.userID(c); ok {
		s.users.Delete(id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) login(c echo.Context) error {
	var data LoginRequest
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	user, found := s.users.GetByEmail(data.Email)
	if !found {
		return c.JSON(http.StatusBadRequest, message{Message: "Bad credentials"})
	}
	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return err
	}
	slog.Debug("MOCK API", append([]any{"message", "user logged in", "userID", user.ID}, requestAttrs(c)...)...)
	return c.JSON(http.StatusOK, LoginResponse{
		Token:        accessToken,
		RefreshToken: s.tokens.IssueRefreshToken(user.ID),
	})
}

func (s *Server) logout(c echo.Context) error {
	if refreshToken := c.Request().Header.Get(RefreshTokenHeader); refreshToken != "" {
		s.tokens.RevokeRefreshToken(refreshToken)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) refreshToken(c echo.Context) error {
	refreshToken := c.Request().Header.Get(RefreshTokenHeader)
	if refreshToken == "" {
		return unauthorized(c)
	}
	userID, found := s.tokens.LookupRefreshToken(refreshToken)
	if !found {
		slog.Debug("MOCK API", append([]any{"message", "unknown or expired refresh token"}, requestAttrs(c)...)...)
		return unauthorized(c)
	}
	accessToken, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RefreshTokenResponse{Token: accessToken})
}
