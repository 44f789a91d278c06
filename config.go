package routemap

import "time"

type BootConfig struct {
	Retries       int           `mapstructure:"retries,omitempty" yaml:"retries,omitempty"`
	RetryCooldown time.Duration `mapstructure:"retry_cooldown,omitempty" yaml:"retry_cooldown,omitempty"`
}

type PollConfig struct {
	Period  time.Duration `mapstructure:"period,omitempty" yaml:"period,omitempty"`
	Timeout time.Duration `mapstructure:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// WithDefaults returns a copy with zero fields replaced by the given values.
func (c PollConfig) WithDefaults(period, timeout time.Duration) PollConfig {
	if c.Period <= 0 {
		c.Period = period
	}
	if c.Timeout <= 0 {
		c.Timeout = timeout
	}
	return c
}

func (c BootConfig) WithDefaults(retries int, cooldown time.Duration) BootConfig {
	if c.Retries <= 0 {
		c.Retries = retries
	}
	if c.RetryCooldown <= 0 {
		c.RetryCooldown = cooldown
	}
	return c
}
