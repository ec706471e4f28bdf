// Package ratelimit coordinates registry rate limits.
//
// # Overview
//
// A [Coordinator] is a two-state machine (Open, Limited) with a broadcast
// wake-up. Two kinds of limits are built on it:
//
//   - Hard limits imposed by a server (GitHub). A facade calls
//     [Coordinator.EnterLimited] when a response is classified as rate
//     limited and [Coordinator.Open] when fresh credentials arrive.
//   - Soft crawl limits the client imposes on itself (crates.io API).
//     [CrawlLimiter.Acquire] enters Limited and schedules a timer that
//     reopens it, so requests are spaced at least one interval apart.
//
// Waiting is always cancellable through a context. Cancelling a waiter only
// affects that waiter.
package ratelimit
