// Package cli implements the deputy command-line interface.
//
// Deputy answers the version questions a package-manifest language server
// asks: which versions a dependency has, which one is the latest compatible
// one and how partially typed version text should be completed. The CLI is
// built using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - resolve: Parse a version requirement and test versions against it
//   - versions: List the published versions of a package
//   - latest: Find the latest version for dependencies
//   - complete: Rank version completions for partially typed text
//   - search, info: Look packages up on their registry
//   - wally: Browse the scopes and packages of a Wally index
//   - config: Inspect the configuration file
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger. Lines carry an "HH:MM:SS.cc" timestamp.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress reports how long a batch of registry lookups took.
type progress struct {
	logger *log.Logger
	now    func() time.Time
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return newProgressAt(l, time.Now)
}

func newProgressAt(l *log.Logger, now func() time.Time) *progress {
	return &progress{logger: l, now: now, start: now()}
}

// donef logs the formatted message followed by the elapsed time in
// milliseconds, e.g. "Checked 3 packages (412ms)".
func (p *progress) donef(format string, args ...any) {
	elapsed := p.now().Sub(p.start).Round(time.Millisecond)
	p.logger.Infof("%s (%s)", fmt.Sprintf(format, args...), elapsed)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches the command logger to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default() outside a command run.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
