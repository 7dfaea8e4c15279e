package driver

import (
	"fmt"
	"strings"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// WithLogger sets the driver logger. The cron scheduler logs through it too.
func WithLogger(logger fsmgen.Logger) Option {
	return func(d *Driver) {
		d.logger = fsmgen.NormalizeLogger(logger)
	}
}

// cronLogger adapts fsmgen.Logger to robfig/cron's key/value logger.
type cronLogger struct {
	logger fsmgen.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron %s%s", msg, formatPairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron %s%s: %v", msg, formatPairs(keysAndValues), err)
}

func formatPairs(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}
