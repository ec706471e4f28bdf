// Package cli implements the deputy command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/deputy/pkg/buildinfo"
	"github.com/matzehuels/deputy/pkg/clients"
	"github.com/matzehuels/deputy/pkg/config"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/httputil"
	"github.com/matzehuels/deputy/pkg/observability/metrics"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "deputy"

// Transient registry failures are retried this many times, with the delay
// doubling between attempts.
const (
	retryAttempts = 3
	retryDelay    = 250 * time.Millisecond
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// In is read when prompting for a GitHub token. Nil disables prompts.
	In io.Reader

	stderr io.Writer

	configPath  string
	githubToken string
	wallyIndex  string
	stats       bool
	metrics     *metrics.Metrics

	promptMu sync.Mutex

	once    sync.Once
	clients *clients.Clients
	cfg     config.Config
	err     error
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), stderr: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Deputy answers version questions about package dependencies",
		Long:          `Deputy queries crates.io, npm, GitHub releases and Wally indexes to resolve version requirements, find the latest compatible version of a dependency and rank version completions.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.stats && c.metrics == nil {
				c.metrics = metrics.New()
				c.metrics.Install()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.metrics == nil {
				return nil
			}
			return c.printStats()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/deputy/config.toml)")
	flags.StringVar(&c.githubToken, "github-token", "", "GitHub token (overrides config and "+config.TokenEnv+")")
	flags.StringVar(&c.wallyIndex, "index", "", "Wally index URL")
	flags.BoolVar(&c.stats, "stats", false, "print cache and request metrics to stderr when done")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.latestCommand())
	root.AddCommand(c.completeCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.wallyCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Clients Factory
// =============================================================================

// loadConfig reads the config file once, applying command-line overrides.
func (c *CLI) loadConfig() (config.Config, error) {
	c.init()
	return c.cfg, c.err
}

// registryClients builds the registry clients on first use.
func (c *CLI) registryClients() (*clients.Clients, error) {
	c.init()
	if c.err != nil {
		return nil, c.err
	}
	return c.clients, nil
}

func (c *CLI) init() {
	c.once.Do(func() {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			c.err = err
			return
		}
		if c.githubToken != "" {
			cfg.GitHub.Token = c.githubToken
		}
		if c.wallyIndex != "" {
			cfg.Wally.IndexURL = c.wallyIndex
		}
		c.cfg = cfg
		c.clients, c.err = clients.New(cfg, clients.Options{Logger: c.Logger})
	})
}

// withRegistry runs fn, and if GitHub refused it because of its rate limit,
// asks for a token through the rate limit watcher and runs it once more.
func (c *CLI) withRegistry(ctx context.Context, fn func(*clients.Clients) error) error {
	cl, err := c.registryClients()
	if err != nil {
		return err
	}
	run := func() error {
		return httputil.Retry(ctx, retryAttempts, retryDelay, func() error { return fn(cl) })
	}
	err = run()
	if !errors.IsRateLimited(err) || !cl.IsRateLimited() || c.In == nil {
		return err
	}

	c.promptMu.Lock()
	defer c.promptMu.Unlock()
	if !cl.IsRateLimited() {
		return run()
	}

	answered := make(chan string, 1)
	src := clients.TokenSourceFunc(func(ctx context.Context) (string, error) {
		token, perr := promptToken(c.In, c.stderr)
		select {
		case answered <- token:
		default:
		}
		return token, perr
	})

	changed := cl.GitHub.RateLimitChanged()
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = cl.WatchRateLimit(watchCtx, src) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case token := <-answered:
		if token == "" {
			return err
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-changed:
	}
	return run()
}

// printStats writes the non-zero metrics gathered during the command.
func (c *CLI) printStats() error {
	samples, err := c.metrics.Snapshot()
	if err != nil {
		return err
	}
	printNewline(c.stderr)
	fmt.Fprintln(c.stderr, StyleTitle.Render("Stats"))
	for _, s := range samples {
		printDetail(c.stderr, "%s", s)
	}
	return nil
}

// startSpinner starts a spinner on stderr when the CLI is interactive. The
// returned stop function is always safe to call.
func (c *CLI) startSpinner(ctx context.Context, message string) func() {
	if c.In == nil {
		return func() {}
	}
	s := newSpinnerWithContext(ctx, c.stderr, message)
	s.Start()
	return s.Stop
}

// StdinIsTerminal reports whether os.Stdin is an interactive terminal.
func StdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
