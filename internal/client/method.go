package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/gwerrors"
)

type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
	MethodHead   Method = http.MethodHead
)

func (m Method) Validate() error {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead:
		return nil
	case "":
		return fmt.Errorf("%w: no method provided", gwerrors.ErrInvalidMethod)
	default:
		return fmt.Errorf("%w: %q", gwerrors.ErrInvalidMethod, string(m))
	}
}

// ParseMethod parses a case-insensitive HTTP method name into one of the supported methods.
func ParseMethod(value string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(value)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}
