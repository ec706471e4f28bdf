// Package httputil provides HTTP utilities for package registry clients.
//
// # Overview
//
// This package provides infrastructure used by all registry API clients:
//
//   - [CheckResponse]: status and body classification into error codes
//   - [TransportError], [DecodeError]: classification of client-side failures
//   - [UserAgent], [NewRequestID]: request identification
//   - [Retry]: opt-in retry with exponential backoff for callers
//
// # Classification
//
// Every registry failure ends up as a [github.com/matzehuels/deputy/pkg/errors.Error]
// with one of these codes:
//
//   - NOT_FOUND: HTTP 404
//   - RATE_LIMITED: HTTP 429, or a body containing "rate limit exceeded",
//     "higher rate limit" or "#rate-limiting"
//   - TIMEOUT, NETWORK_ERROR: transport failures and other error statuses
//   - DECODE_ERROR: invalid UTF-8 or JSON
//
// # Retry
//
// Registry clients do not retry. A caller that wants to can wrap a call:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    _, err := client.SparseIndexMetadatas(ctx, "serde")
//	    return err
//	})
//
// Only NETWORK_ERROR and TIMEOUT are retried.
package httputil
