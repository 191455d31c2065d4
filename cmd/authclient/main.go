package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/client"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/config"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/metrics"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/mockapi"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/models"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/tokenrefresher"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/tokenstore"
	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(realMain())
}

// realMain wires and runs the client and returns the exit code once every deferred cleanup ran.
func realMain() int {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Flags
	opts := NewOptions()
	opts.AddFlags(pflag.CommandLine)
	pflag.Parse()
	if err := opts.Complete(); err != nil {
		slog.Error("invalid flags", "error", err)
		return 2
	}
	// Load configuration
	ch := config.NewConfigHandler()
	clientConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		return 1
	}
	logFile := setupLogging(clientConfig.Logging)
	if logFile != nil {
		defer logFile.Close()
	}
	slog.Info("loaded config", "config", clientConfig)
	// Only the log level can change at runtime
	ch.HandleChanges(func(c config.Config, err error) {
		if err != nil {
			slog.Error("the changed config is invalid, keeping the previous one", "error", err)
			return
		}
		setLogLevel(c.Logging)
	})
	ch.Watch()
	// Sentry
	if clientConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(clientConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: clientConfig.Monitoring.Sentry.SampleRate,
			Environment:      clientConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	// Prometheus
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var metricsServer *echo.Echo
	if clientConfig.Monitoring.Prometheus.Enabled {
		prometheusRecorder, err := metrics.NewPrometheusRecorder("authclient")
		if err != nil {
			slog.Error("prometheus recorder initialization failed", "error", err)
			return 1
		}
		recorder = prometheusRecorder
		metricsServer = echo.New()
		metricsServer.HideBanner = true
		metricsServer.HidePort = true
		metricsServer.GET("/metrics", echo.WrapHandler(prometheusRecorder.Handler()))
		go func() {
			err := metricsServer.Start(fmt.Sprintf(":%d", clientConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Credential store
	store, err := tokenstore.NewCredentialStore(clientConfig.Credentials)
	if err != nil {
		slog.Error("credential store initialization failed", "error", err)
		return 1
	}
	if redisStore, ok := store.(*tokenstore.RedisStore); ok {
		slog.Info("using the redis credential store", "pairID", redisStore.PairID)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := saveTokens(ctx, store, opts.AccessToken, opts.RefreshToken); err != nil {
		slog.Error("saving the provided tokens failed", "error", err)
		return 1
	}
	// Client
	httpTransport, err := transport.NewHTTPTransport(
		transport.WithBaseURL(clientConfig.Client.BaseURL),
		transport.WithTimeout(time.Duration(clientConfig.Client.RequestTimeoutSeconds)*time.Second),
	)
	if err != nil {
		slog.Error("transport initialization failed", "error", err)
		return 1
	}
	c, err := client.New(
		client.WithConfig(clientConfig.Client),
		client.WithCredentialStore(store),
		client.WithTransport(httpTransport),
		client.WithRecorder(recorder),
		client.WithLogoutHook(func() {
			slog.Warn("the refresh token was rejected, the credentials were removed")
			if clientConfig.Monitoring.Sentry.Enabled {
				sentry.CaptureMessage("refresh token rejected, credentials removed")
			}
		}),
	)
	if err != nil {
		slog.Error("client initialization failed", "error", err)
		return 1
	}
	defer c.Close()
	// Keep fresh job
	if clientConfig.KeepFresh.Enabled {
		tr, err := tokenrefresher.NewTokenRefresher(tokenrefresher.WithConfig(clientConfig.KeepFresh), tokenrefresher.WithRefresher(c))
		if err != nil {
			slog.Error("token refresher initialization failed", "error", err)
			return 1
		}
		scheduler, err := tr.GetScheduler()
		if err != nil {
			slog.Error("token refresher scheduling failed", "error", err)
			return 1
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	exitCode := run(ctx, c, store, opts)
	if exitCode == 0 && opts.KeepRunning {
		slog.Info("running until interrupted")
		<-ctx.Done()
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutting down the metrics server gracefully failed", "error", err)
		}
	}
	return exitCode
}

func saveTokens(ctx context.Context, store models.CredentialStore, accessToken, refreshToken string) error {
	if accessToken != "" {
		if err := store.SetAccessToken(ctx, accessToken); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := store.SetRefreshToken(ctx, refreshToken); err != nil {
			return err
		}
	}
	return nil
}

// run logs in, sends the request and prints the results. It returns the exit code.
func run(ctx context.Context, c *client.Client, store models.CredentialStore, opts *Options) int {
	if opts.LoginEmail != "" {
		tokens, err := client.PostJSON[mockapi.LoginResponse](ctx, c, opts.LoginPath, mockapi.LoginRequest{Email: opts.LoginEmail})
		if err != nil {
			slog.Error("login failed", "error", err)
			return 1
		}
		if err := saveTokens(ctx, store, tokens.Token, tokens.RefreshToken); err != nil {
			slog.Error("saving the login tokens failed", "error", err)
			return 1
		}
		slog.Info("logged in", "email", opts.LoginEmail)
	}
	if opts.Target != "" {
		requestOptions := &client.Options{Method: opts.method, AllowErrorStatus: true}
		if opts.Body != "" {
			if !json.Valid([]byte(opts.Body)) {
				slog.Error("the request body is not valid JSON")
				return 2
			}
			requestOptions.Body = []byte(opts.Body)
			requestOptions.Headers = http.Header{"Content-Type": []string{"application/json"}}
		}
		res, err := c.Request(ctx, opts.Target, requestOptions)
		if err != nil {
			slog.Error("the request failed", "error", err)
			return 1
		}
		slog.Info("request completed", "method", res.Method, "url", res.URL, "status", res.StatusCode)
		fmt.Fprintln(os.Stdout, string(res.Body))
		if !res.OK() {
			return 1
		}
	}
	if opts.PrintToken {
		token, err := tokenstore.NewTokenSource(ctx, store, c).Token()
		if err != nil {
			slog.Error("reading the access token failed", "error", err)
			return 1
		}
		output, err := json.Marshal(token)
		if err != nil {
			slog.Error("encoding the access token failed", "error", err)
			return 1
		}
		fmt.Fprintln(os.Stdout, string(output))
	}
	return 0
}
