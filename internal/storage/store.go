package storage

import "context"

// Store persists finished output images under relative keys
type Store interface {
	// Put writes the encoded image at key, creating parents as needed.
	Put(ctx context.Context, key string, data []byte) error
	// Exists reports whether an output is already present at key.
	Exists(ctx context.Context, key string) (bool, error)
}
