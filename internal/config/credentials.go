package config

import "fmt"

const CredentialsTypeMemory string = "memory"
const CredentialsTypeRedis string = "redis"

type TokenEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

func (c *TokenEncryptionConfig) Validate() error {
	if c.Enabled && len(c.SecretKey) != 32 {
		return fmt.Errorf(
			"token encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.SecretKey),
		)
	}
	return nil
}

type CredentialsConfig struct {
	Type string
	// PairID selects the stored credential pair when several clients share one Redis database.
	PairID          string
	Redis           RedisConfig
	TokenEncryption TokenEncryptionConfig
}

func (c *CredentialsConfig) Validate(e RunningEnvironment) error {
	switch c.Type {
	case CredentialsTypeMemory:
		return nil
	case CredentialsTypeRedis:
		err := c.Redis.Validate(e)
		if err != nil {
			return err
		}
		return c.TokenEncryption.Validate()
	default:
		return fmt.Errorf("unknown credentials type %q (must be one of %s, %s)", c.Type, CredentialsTypeMemory, CredentialsTypeRedis)
	}
}
