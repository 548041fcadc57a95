package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Storage.Get when the key holds no value.
var ErrKeyNotFound = errors.New("storage key not found")

// Storage is the durable key-value store that survives restarts of the client.
// The session manager is its only writer for the session keys.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes all given keys in one step. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
	Close() error
}
