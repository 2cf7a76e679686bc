package blob

import "errors"

var (
	// ErrInvalidConfig is returned when a backend is created with incomplete configuration.
	ErrInvalidConfig = errors.New("invalid blob store config")
	// ErrInvalidKey is returned for empty keys, absolute keys or keys containing traversal segments.
	ErrInvalidKey = errors.New("invalid blob key")
	// ErrNotFound is returned by Get and Delete when no object exists under the key.
	ErrNotFound = errors.New("blob not found")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("blob store unavailable")
)
