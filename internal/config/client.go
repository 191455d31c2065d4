package config

import (
	"fmt"
	"net/url"
)

const IDGeneratorUUID string = "uuid"
const IDGeneratorULID string = "ulid"

type ClientConfig struct {
	BaseURL               *url.URL
	RefreshPath           string
	LogoutPath            string
	RefreshTokenHeader    string
	RequestIDHeader       string
	ExpiryBufferSeconds   int
	RefreshTimeoutSeconds int
	RequestTimeoutSeconds int
	IDGenerator           string
}

func (c *ClientConfig) Validate() error {
	if c.BaseURL == nil || !c.BaseURL.IsAbs() {
		return fmt.Errorf("the client base URL has to be an absolute URL")
	}
	if c.RefreshPath == "" || c.LogoutPath == "" {
		return fmt.Errorf("the refresh and logout paths cannot be empty")
	}
	if c.RefreshTokenHeader == "" || c.RequestIDHeader == "" {
		return fmt.Errorf("the refresh token and request id header names cannot be empty")
	}
	if c.ExpiryBufferSeconds < 0 {
		return fmt.Errorf("the expiry buffer cannot be negative, the provided one is %d", c.ExpiryBufferSeconds)
	}
	if c.RefreshTimeoutSeconds <= 0 {
		return fmt.Errorf("the refresh timeout has to be positive, the provided one is %d", c.RefreshTimeoutSeconds)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("the request timeout cannot be negative, the provided one is %d", c.RequestTimeoutSeconds)
	}
	if c.IDGenerator != IDGeneratorUUID && c.IDGenerator != IDGeneratorULID {
		return fmt.Errorf("unknown id generator %q (must be one of %s, %s)", c.IDGenerator, IDGeneratorUUID, IDGeneratorULID)
	}
	return nil
}
