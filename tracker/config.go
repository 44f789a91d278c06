package tracker

import (
	"github.com/vatsimnerd/routemap"
)

type Config struct {
	// URL is the OpenSky API base url.
	URL      string              `mapstructure:"url,omitempty" yaml:"url,omitempty"`
	Username string              `mapstructure:"username,omitempty" yaml:"username,omitempty"`
	Password string              `mapstructure:"password,omitempty" yaml:"password,omitempty"`
	Poll     routemap.PollConfig `mapstructure:"poll" yaml:"poll"`
	Boot     routemap.BootConfig `mapstructure:"boot,omitempty" yaml:"boot,omitempty"`
	// PlanesFile receives the active aircraft snapshot after every run.
	PlanesFile string `mapstructure:"planes_file,omitempty" yaml:"planes_file,omitempty"`
}
