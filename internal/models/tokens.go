package models

import (
	"fmt"
	"time"
)

// AuthToken is a struct used to persist access and refresh tokens
type AuthToken struct {
	ID        string
	Value     string
	ExpiresAt time.Time
	Type      TokenType
}

// Encrypt encrypts the value of the token if an encryptor is provided
func (t AuthToken) Encrypt(enc Encryptor) (AuthToken, error) {
	if enc == nil {
		return t, nil
	}
	encValue, err := enc.Encrypt(t.Value)
	if err != nil {
		return AuthToken{}, err
	}
	output := t
	output.Value = encValue
	return output, nil
}

// Decrypt decrypts the value of the token if an encryptor is provided
func (t AuthToken) Decrypt(enc Encryptor) (AuthToken, error) {
	if enc == nil {
		return t, nil
	}
	decValue, err := enc.Decrypt(t.Value)
	if err != nil {
		return AuthToken{}, err
	}
	output := t
	output.Value = decValue
	return output, nil
}

// String immplements the Stringer interface for printing the token in logs
func (t AuthToken) String() string {
	return fmt.Sprintf(
		"%s<ID: %s, Value: redacted, ExpiresAt: %s>",
		t.Type,
		t.ID,
		t.ExpiresAt,
	)
}

// Expired returns true if the token has an expiry and it is in the past.
func (t AuthToken) Expired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().UTC().After(t.ExpiresAt)
}

// ExpiresSoon returns true if the token expires within the given margin.
func (t AuthToken) ExpiresSoon(margin time.Duration) bool {
	return !t.ExpiresAt.IsZero() && time.Now().UTC().Add(margin).After(t.ExpiresAt)
}
