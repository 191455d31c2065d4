package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPTransport is a Transport backed by net/http. Relative targets are resolved against the base URL.
type HTTPTransport struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func (t *HTTPTransport) Do(ctx context.Context, method, target string, opts RequestOptions) (*Response, error) {
	reqURL, err := t.resolve(target)
	if err != nil {
		return nil, err
	}
	if len(opts.Query) > 0 {
		query := reqURL.Query()
		for key, values := range opts.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		reqURL.RawQuery = query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case opts.JSON != nil:
		raw, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("cannot encode the request body: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	case opts.Body != nil:
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range opts.Headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	start := time.Now()
	res, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read the response body: %w", err)
	}
	slog.Debug(
		"TRANSPORT",
		"message", "request completed",
		"method", method,
		"url", reqURL.String(),
		"status", res.StatusCode,
		"duration", time.Since(start),
	)
	return &Response{
		Method:     method,
		URL:        reqURL.String(),
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       resBody,
	}, nil
}

func (t *HTTPTransport) resolve(target string) (*url.URL, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if parsed.IsAbs() {
		return parsed, nil
	}
	if t.baseURL == nil {
		return nil, fmt.Errorf("cannot resolve the relative target %q without a base URL", target)
	}
	output := *t.baseURL
	output.Path = strings.TrimSuffix(output.Path, "/") + "/" + strings.TrimPrefix(parsed.Path, "/")
	output.RawPath = ""
	output.RawQuery = parsed.RawQuery
	return &output, nil
}

type HTTPTransportOption func(*HTTPTransport) error

func WithBaseURL(baseURL *url.URL) HTTPTransportOption {
	return func(t *HTTPTransport) error {
		if baseURL == nil {
			return fmt.Errorf("the base URL cannot be nil")
		}
		if !baseURL.IsAbs() {
			return fmt.Errorf("the base URL %q must be absolute", baseURL.String())
		}
		t.baseURL = baseURL
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) error {
		t.httpClient = httpClient
		return nil
	}
}

func WithTimeout(timeout time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) error {
		if timeout < 0 {
			return fmt.Errorf("invalid value for the timeout (%s)", timeout)
		}
		t.httpClient = &http.Client{Timeout: timeout}
		return nil
	}
}

// NewHTTPTransport creates a new HTTPTransport, http.DefaultClient is used when no client is set.
func NewHTTPTransport(options ...HTTPTransportOption) (*HTTPTransport, error) {
	t := HTTPTransport{}
	for _, opt := range options {
		err := opt(&t)
		if err != nil {
			return &HTTPTransport{}, err
		}
	}
	if t.httpClient == nil {
		t.httpClient = http.DefaultClient
	}
	return &t, nil
}
