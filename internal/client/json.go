package client

import (
	"context"
	"fmt"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
)

// DecodeJSON decodes the body of a response into a value of type T.
func DecodeJSON[T any](res *transport.Response) (T, error) {
	var value T
	if res == nil {
		return value, fmt.Errorf("cannot decode a nil response")
	}
	if err := res.JSON(&value); err != nil {
		return value, fmt.Errorf("cannot decode the response of %s %s: %w", res.Method, res.URL, err)
	}
	return value, nil
}

// GetJSON sends a GET request through the client and decodes the response body.
func GetJSON[T any](ctx context.Context, c *Client, target string, opts *Options) (T, error) {
	res, err := c.Get(ctx, target, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeJSON[T](res)
}

// PostJSON sends a POST request with a JSON body through the client and decodes the response body.
func PostJSON[T any](ctx context.Context, c *Client, target string, body any) (T, error) {
	res, err := c.Post(ctx, target, &Options{JSON: body})
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeJSON[T](res)
}
