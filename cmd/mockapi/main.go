package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/mockapi"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	host := pflag.String("host", "", "address the server listens on")
	port := pflag.Int("port", 3000, "port the server listens on")
	usersFile := pflag.String("users", "", "yaml file with the users the server is seeded with")
	secret := pflag.String("secret", mockapi.DefaultSecret, "secret used to sign the access tokens")
	accessTokenLifetime := pflag.Duration("access-token-lifetime", mockapi.DefaultAccessTokenLifetime, "lifetime of the access tokens")
	refreshTokenLifetime := pflag.Duration("refresh-token-lifetime", mockapi.DefaultRefreshTokenLifetime, "lifetime of the refresh tokens")
	rateLimit := pflag.Float64("rate-limit", 0, "requests per second allowed per client, 0 disables the limit")
	rateBurst := pflag.Int("rate-burst", 10, "burst of requests allowed over the rate limit")
	debug := pflag.Bool("debug", false, "enable debug logs")
	sentryDsn := pflag.String("sentry-dsn", os.Getenv("SENTRY_DSN"), "report errors to sentry")
	metricsPort := pflag.Int("metrics-port", 0, "serve prometheus metrics on this port, 0 disables them")
	pflag.Parse()
	if *debug {
		logLevel.Set(slog.LevelDebug)
	}
	// Setup
	options := []mockapi.ServerOption{
		mockapi.WithTokenIssuer(mockapi.NewTokenIssuer(*secret, *accessTokenLifetime, *refreshTokenLifetime)),
		mockapi.WithRateLimit(*rateLimit, *rateBurst),
	}
	if *usersFile != "" {
		data, err := os.ReadFile(*usersFile)
		if err != nil {
			slog.Error("reading the users file failed", "error", err)
			os.Exit(1)
		}
		users, err := mockapi.LoadUsers(data)
		if err != nil {
			slog.Error("parsing the users file failed", "error", err)
			os.Exit(1)
		}
		options = append(options, mockapi.WithUsers(users...))
	}
	server, err := mockapi.NewServer(options...)
	if err != nil {
		slog.Error("mock server initialization failed", "error", err)
		os.Exit(1)
	}
	middlewares := commonMiddlewares
	// Sentry
	if *sentryDsn != "" {
		err := sentry.Init(sentry.ClientOptions{Dsn: *sentryDsn})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		} else {
			middlewares = append(middlewares, sentryecho.New(sentryecho.Options{}))
		}
	}
	// Prometheus
	if *metricsPort > 0 {
		p := prometheus.NewPrometheus("mockapi", nil)
		middlewares = append(middlewares, p.HandlerFunc)
		go func() {
			metrics := echo.New()
			metrics.HideBanner = true
			metrics.HidePort = true
			p.SetMetricsPath(metrics)
			err := metrics.Start(fmt.Sprintf(":%d", *metricsPort))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	e := server.NewEcho(middlewares...)
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	// Start server
	address := fmt.Sprintf("%s:%d", *host, *port)
	slog.Info("starting the mock server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("starting the mock server failed", "error", err)
			os.Exit(1)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
