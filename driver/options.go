//go:generate options-setters -input ./options.go -output ./options_setters.go
package driver

import "time"

// Parser selects the cron expression dialect.
type Parser int

const (
	// DefaultParser accepts five field expressions and descriptors such as @every.
	DefaultParser Parser = iota
	// SecondsParser requires a leading seconds field.
	SecondsParser
)

// Option configures a Driver.
type Option func(*Driver)

// WithLocation sets the time zone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(d *Driver) {
		d.location = loc
	}
}

// WithErrorHandler receives failed ticks.
func WithErrorHandler(handler func(error)) Option {
	return func(d *Driver) {
		d.errorHandler = handler
	}
}

// WithParser sets the cron expression dialect.
func WithParser(p Parser) Option {
	return func(d *Driver) {
		d.parser = p
	}
}
