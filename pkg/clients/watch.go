package clients

import (
	"context"
)

// TokenSource supplies a GitHub token once the anonymous rate limit has
// been hit. In an editor this asks the user; on the command line it reads
// a prompt or the environment.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// WatchRateLimit asks src for a token every time GitHub becomes rate
// limited and applies it with SetAuthToken. It blocks until ctx is done and
// returns ctx.Err().
//
// A failed or empty token leaves the client limited, and src is not asked
// again until the limit has been lifted some other way and hit again.
func (c *Clients) WatchRateLimit(ctx context.Context, src TokenSource) error {
	for {
		changed := c.GitHub.RateLimitChanged()
		if c.IsRateLimited() {
			c.requestToken(ctx, src)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (c *Clients) requestToken(ctx context.Context, src TokenSource) {
	c.logger.Warn("GitHub rate limit reached, requesting a token")
	token, err := src.Token(ctx)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			c.logger.Error("token request failed", "err", err)
		}
	case token == "":
		c.logger.Warn("no token supplied, GitHub stays rate limited")
	default:
		c.SetAuthToken(token)
	}
}
