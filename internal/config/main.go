package config

import "fmt"

type RunningEnvironment string

const Development RunningEnvironment = "development"
const Production RunningEnvironment = "production"

type Config struct {
	RunningEnvironment RunningEnvironment
	Client             ClientConfig
	Credentials        CredentialsConfig
	Monitoring         MonitoringConfig
	Logging            LoggingConfig
	KeepFresh          KeepFreshConfig
}

func (c *Config) Validate() error {
	if c.RunningEnvironment != Development && c.RunningEnvironment != Production {
		return fmt.Errorf("unknown running environment %q (must be one of %s, %s)", c.RunningEnvironment, Development, Production)
	}
	err := c.Client.Validate()
	if err != nil {
		return err
	}
	err = c.Credentials.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Monitoring.Validate()
	if err != nil {
		return err
	}
	err = c.Logging.Validate()
	if err != nil {
		return err
	}
	err = c.KeepFresh.Validate()
	if err != nil {
		return err
	}
	return nil
}
