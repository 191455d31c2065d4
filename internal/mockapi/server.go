// Package mockapi is a small user API with token based authentication. It is used to exercise the
// client end to end and can be started on its own with cmd/mockapi.
package mockapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const DefaultBasePath string = "/api"

type failure struct {
	status    int
	remaining int
}

type Server struct {
	users    *UserStore
	tokens   *TokenIssuer
	basePath string

	rateLimit rate.Limit
	burst     int

	lock     sync.Mutex
	hits     map[string]int
	failures map[string]*failure
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Hits returns how many times the route was requested. The path includes the base path.
func (s *Server) Hits(method, path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.hits[routeKey(method, path)]
}

// Fail makes the next requests to the route respond with the given status. A negative number of
// times makes the route fail until Reset is called.
func (s *Server) Fail(method, path string, status, times int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures[routeKey(method, path)] = &failure{status: status, remaining: times}
}

// Reset removes every injected failure and clears the hit counters.
func (s *Server) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures = map[string]*failure{}
	s.hits = map[string]int{}
}

func (s *Server) Users() *UserStore {
	return s.users
}

func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// instrument counts the requests per route and applies injected failures.
func (s *Server) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := routeKey(c.Request().Method, c.Path())
		s.lock.Lock()
		s.hits[key]++
		f, found := s.failures[key]
		status := 0
		if found && f.remaining != 0 {
			status = f.status
			if f.remaining > 0 {
				f.remaining--
			}
		}
		s.lock.Unlock()
		if status != 0 {
			return c.JSON(status, message{Message: http.StatusText(status)})
		}
		return next(c)
	}
}

func (s *Server) RegisterHandlers(server *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	e := server.Group(s.basePath)
	e.Use(commonMiddlewares...)
	if s.rateLimit > 0 {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      s.rateLimit,
					Burst:     s.burst,
					ExpiresIn: 3 * time.Minute,
				}),
		))
	}
	e.Use(s.instrument)

	e.GET("/users", s.getUsers)
	e.POST("/users", s.createUser)
	e.GET("/users/me", s.getCurrentUser)
	e.GET("/users/:id", s.getUserByID)
	e.PUT("/users/:id", s.updateUser)
	e.PATCH("/users/:id", s.updateUser)
	e.DELETE("/users/:id", s.deleteUser)
	e.POST("/authentication/login", s.login)
	e.POST("/authentication/logout", s.logout)
	e.POST("/tokens/refresh", s.refreshToken)
}

// NewEcho creates an echo server with the mock backend registered on it.
func (s *Server) NewEcho(commonMiddlewares ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.RequestID())
	e.Use(middleware.Recover())
	s.RegisterHandlers(e, commonMiddlewares...)
	return e
}

type ServerOption func(*Server) error

func WithUsers(users ...User) ServerOption {
	return func(s *Server) error {
		s.users = NewUserStore(users...)
		return nil
	}
}

func WithTokenIssuer(issuer *TokenIssuer) ServerOption {
	return func(s *Server) error {
		s.tokens = issuer
		return nil
	}
}

func WithBasePath(basePath string) ServerOption {
	return func(s *Server) error {
		s.basePath = basePath
		return nil
	}
}

// WithRateLimit limits the requests per client IP, requests over the limit get a 429.
func WithRateLimit(requestsPerSecond float64, burst int) ServerOption {
	return func(s *Server) error {
		if requestsPerSecond < 0 || burst < 0 {
			return fmt.Errorf("invalid rate limit %f with burst %d", requestsPerSecond, burst)
		}
		s.rateLimit = rate.Limit(requestsPerSecond)
		s.burst = burst
		return nil
	}
}

// NewServer creates the mock backend. Without options it is seeded with the default users and
// issues tokens signed with DefaultSecret.
func NewServer(options ...ServerOption) (*Server, error) {
	server := Server{
		basePath: DefaultBasePath,
		hits:     map[string]int{},
		failures: map[string]*failure{},
	}
	for _, opt := range options {
		err := opt(&server)
		if err != nil {
			return &Server{}, err
		}
	}
	if server.users == nil {
		server.users = NewUserStore(DefaultUsers()...)
	}
	if server.tokens == nil {
		server.tokens = NewTokenIssuer(DefaultSecret, DefaultAccessTokenLifetime, DefaultRefreshTokenLifetime)
	}
	return &server, nil
}
