// Package transport performs single HTTP calls for the client.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// RequestOptions are the per request settings passed to a Transport.
type RequestOptions struct {
	Headers http.Header
	Query   url.Values
	// JSON is marshalled as the request body, it takes precedence over Body.
	JSON any
	Body []byte
}

// Response is a fully read HTTP response.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Transport performs one HTTP call. Error status codes are returned as responses, only failures
// to complete the call are returned as errors.
type Transport interface {
	Do(ctx context.Context, method, target string, opts RequestOptions) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, method, target string, opts RequestOptions) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, method, target string, opts RequestOptions) (*Response, error) {
	return f(ctx, method, target, opts)
}
