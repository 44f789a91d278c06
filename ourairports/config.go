package ourairports

import (
	"github.com/vatsimnerd/routemap"
)

type Config struct {
	AirportsURL  string              `mapstructure:"airports_url,omitempty" yaml:"airports_url,omitempty"`
	CountriesURL string              `mapstructure:"countries_url,omitempty" yaml:"countries_url,omitempty"`
	Poll         routemap.PollConfig `mapstructure:"poll" yaml:"poll"`
	Boot         routemap.BootConfig `mapstructure:"boot,omitempty" yaml:"boot,omitempty"`
}
