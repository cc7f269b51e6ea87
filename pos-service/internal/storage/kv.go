package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the terminal's durable key-value storage. Set replaces the whole value
// in one write, so readers see either the old or the new value. Concurrent
// writers from other devices are last-writer-wins.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
