// Package gwerrors contains all common errors used by the client.
package gwerrors

import (
	"fmt"
	"net/http"
)

var ErrInvalidMethod = fmt.Errorf("the request method is missing or not supported")
var ErrTransport = fmt.Errorf("the request could not be completed")
var ErrHTTPStatus = fmt.Errorf("the server responded with an error status")
var ErrUnauthorized = fmt.Errorf("the request was not authorized")
var ErrRefreshRejected = fmt.Errorf("the refresh token was rejected")
var ErrRefreshFailed = fmt.Errorf("the access token could not be refreshed")
var ErrQueueCleared = fmt.Errorf("the request was dropped because the queue was cleared")
var ErrClientClosed = fmt.Errorf("the client is closed")
var ErrTokenNotFound = fmt.Errorf("the token cannot be found")
var ErrTokenParse = fmt.Errorf("the token cannot be parsed")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")

// StatusError is returned to callers when a request ends with a non-successful status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is makes errors.Is match ErrHTTPStatus for every status error and ErrUnauthorized for 401s.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrHTTPStatus:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	default:
		return false
	}
}
