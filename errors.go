package layercache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get and Delete when the key is absent.
	ErrNotFound = errors.New("layercache: not found")

	// ErrKeyTooLong is returned when an encoded key exceeds the store's key limit.
	ErrKeyTooLong = errors.New("layercache: key too long")

	// ErrValueTooLarge is returned when a value exceeds the store's size ceiling.
	ErrValueTooLarge = errors.New("layercache: value too large")
)

// BackendError wraps a failure reported by a store client (network, protocol,
// or store-side rejection). Two-Level resilient mode absorbs it for the
// secondary tier; every other layer propagates it.
type BackendError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError returns nil when err is nil.
func NewBackendError(backend, op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Op: op, Key: key, Err: err}
}

// IsBackendError reports whether err carries a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IntegrityError is returned when a stored value fails authentication or cannot
// be parsed. No plaintext is ever returned alongside it.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "layercache: integrity check failed: " + e.Reason
}

// ConfigError reports an invalid constructor option, or a value a byte-only
// layer cannot represent. Raised at construction or first use.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("layercache: invalid %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
