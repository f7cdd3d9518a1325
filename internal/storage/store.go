// Package storage provides abstractions for persisting the snapshot blob.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by an insert-only save when the key already exists.
var ErrConflict = errors.New("record already exists")

// BlobStore is the local key-value store. It holds one blob per key and is
// read once at startup and written after every change.
type BlobStore interface {
	// Load returns the blob stored under key, or nil and no error if there
	// is none.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores blob under key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Record is a blob as held by a remote store.
type Record struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// SaveOptions tune a remote save.
type SaveOptions struct {
	// InsertOnly creates the record without merging into an existing one.
	// The save fails with ErrConflict if the key is already taken.
	InsertOnly bool
}

// RemoteStore is the optional remote mirror of the blob. Writes are
// last-write-wins.
type RemoteStore interface {
	// Load returns the record stored under key, or nil and no error if there
	// is none.
	Load(ctx context.Context, key string) (*Record, error)

	// Save upserts data under key, or inserts it when opts.InsertOnly is set.
	Save(ctx context.Context, key string, data []byte, opts SaveOptions) error

	// Close releases any resources held by the store.
	Close() error
}
