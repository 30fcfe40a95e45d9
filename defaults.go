package layercache

import "time"

const (
	// DefaultAutoPrefixSep separates the counter-derived prefix from user keys.
	DefaultAutoPrefixSep = "."
	// DefaultAutoPrefixEncoding is the counter encoding used by AutoPrefixed.
	DefaultAutoPrefixEncoding = "b64"

	// defaultDebugName labels Debug log lines when no name is given.
	defaultDebugName = "cache"
)

// DefaultTTL is used by remote stores when Set is called with ttl <= 0.
const DefaultTTL = 10 * time.Minute

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
