package dataset

import (
	"github.com/vatsimnerd/routemap"
)

type Config struct {
	URL  string              `mapstructure:"url,omitempty" yaml:"url,omitempty"`
	Poll routemap.PollConfig `mapstructure:"poll" yaml:"poll"`
	Boot routemap.BootConfig `mapstructure:"boot,omitempty" yaml:"boot,omitempty"`
}
