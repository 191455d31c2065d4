package models

import "fmt"

type TokenType string

const AccessTokenType TokenType = "AccessToken"
const RefreshTokenType TokenType = "RefreshToken"

func (o TokenType) MarshalText() (data []byte, err error) {
	return []byte(o), nil
}

func (o TokenType) MarshalBinary() (data []byte, err error) {
	return []byte(o), nil
}

func (o *TokenType) UnmarshalText(data []byte) error {
	return o.parse(string(data))
}

func (o *TokenType) UnmarshalBinary(data []byte) error {
	return o.parse(string(data))
}

func (o *TokenType) parse(value string) error {
	switch TokenType(value) {
	case AccessTokenType, RefreshTokenType:
		*o = TokenType(value)
		return nil
	default:
		return fmt.Errorf("unknown token type: %s", value)
	}
}
