package blob

import (
	"context"
	"io"
	"strings"
)

// Store is the content-storage capability injected into the namespace layer.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put streams content into the store under key. A failed or canceled
	// Put must not leave a readable object under the key.
	Put(ctx context.Context, key string, r io.Reader) error
	// Get returns a reader for the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// PrefixCreator is an optional capability for backends with real directories.
// Backends with virtual prefixes (S3, badger, memory) do not implement it.
type PrefixCreator interface {
	EnsurePrefix(ctx context.Context, prefix string) error
}

// ValidateKey rejects keys that are empty, absolute, contain traversal
// segments, backslashes or NUL bytes. Every backend calls it before touching
// storage so a corrupted stored key can never escape the store's root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, "\\\x00") {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
