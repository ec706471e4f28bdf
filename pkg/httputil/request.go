package httputil

import (
	"github.com/google/uuid"

	"github.com/matzehuels/deputy/pkg/buildinfo"
)

// RequestIDHeader carries a per-request identifier, echoed in debug logs.
const RequestIDHeader = "X-Request-Id"

// UserAgent identifies deputy to registries. crates.io rejects requests
// without a descriptive User-Agent.
func UserAgent() string {
	return "deputy/" + buildinfo.Version + " (https://github.com/matzehuels/deputy)"
}

// NewRequestID returns a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
