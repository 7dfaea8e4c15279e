package driver

import (
	"fmt"
	"time"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Config is the yaml form of the driver options. Pass it to New through
// WithConfigurator.
type Config struct {
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Seconds  bool   `yaml:"seconds,omitempty" json:"seconds,omitempty"`
}

// Validate checks that Timezone names a known location.
func (c Config) Validate() error {
	if c.Timezone == "" {
		return nil
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fsmgen.NewError(fsmgen.ErrScheduleFailed, fmt.Sprintf("unknown timezone %q", c.Timezone), err,
			map[string]any{"timezone": c.Timezone})
	}
	return nil
}

// GetLocation returns time.Local when Timezone is empty or unknown.
func (c Config) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) GetParser() Parser {
	if c.Seconds {
		return SecondsParser
	}
	return DefaultParser
}
