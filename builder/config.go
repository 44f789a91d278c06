package builder

import "time"

type Config struct {
	// AirlinesURL points at an OpenFlights airlines.dat (url or path).
	AirlinesURL string        `mapstructure:"airlines_url,omitempty" yaml:"airlines_url,omitempty"`
	Timeout     time.Duration `mapstructure:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Output is where the built airports.json is written.
	Output string `mapstructure:"output,omitempty" yaml:"output,omitempty"`
}
