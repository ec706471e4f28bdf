// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about cache operations, registry HTTP calls, and rate
// limit transitions.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so library packages can
// emit events without importing a metrics framework.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    observability.SetRateLimitHooks(&myRateLimitHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Cache().OnCacheMiss(ctx, "crates.index")
//	observability.RateLimit().OnLimited("github")
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from in-memory cache maps.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, cache string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, cache string)

	// OnCacheSet records a cache write and the resulting entry count.
	OnCacheSet(ctx context.Context, cache string, entries int)

	// OnCacheInvalidate records a full invalidation.
	OnCacheInvalidate(cache string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// Rate Limit Hooks
// =============================================================================

// RateLimitHooks receives rate limit state transitions.
type RateLimitHooks interface {
	// OnLimited records an Open to Limited transition.
	OnLimited(limiter string)

	// OnOpen records a Limited to Open transition.
	OnOpen(limiter string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}
func (NoopCacheHooks) OnCacheInvalidate(string)                {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// NoopRateLimitHooks is a no-op implementation of RateLimitHooks.
type NoopRateLimitHooks struct{}

func (NoopRateLimitHooks) OnLimited(string) {}
func (NoopRateLimitHooks) OnOpen(string)    {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	rateLimitHooks RateLimitHooks = NoopRateLimitHooks{}
	hooksMu        sync.RWMutex
)

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// SetRateLimitHooks registers custom rate limit hooks.
func SetRateLimitHooks(h RateLimitHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		rateLimitHooks = h
	}
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// RateLimit returns the registered rate limit hooks.
func RateLimit() RateLimitHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return rateLimitHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
	rateLimitHooks = NoopRateLimitHooks{}
}
