// Package memory provides in-memory stores, useful for tests and for
// running without any disk or network.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kotlinhustle/power-split/internal/storage"
)

var (
	_ storage.BlobStore   = (*BlobStore)(nil)
	_ storage.RemoteStore = (*RemoteStore)(nil)
)

// BlobStore is an in-memory storage.BlobStore.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	err   error
}

// NewBlobStore returns an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// FailWith makes every later call return err. A nil err heals the store.
func (m *BlobStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Load returns a copy of the blob under key, or nil if there is none.
func (m *BlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	blob, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, blob...), nil
}

// Save stores a copy of blob under key.
func (m *BlobStore) Save(ctx context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.blobs[key] = append([]byte{}, blob...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *BlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.blobs, key)
	return nil
}

// Close is a no-op.
func (m *BlobStore) Close() error { return nil }

// Save is one call made to a RemoteStore.
type Save struct {
	Key        string
	Data       []byte
	InsertOnly bool
}

// RemoteStore is an in-memory storage.RemoteStore that records every save.
type RemoteStore struct {
	mu      sync.RWMutex
	records map[string]storage.Record
	saves   []Save
	err     error
	now     func() time.Time
}

// NewRemoteStore returns an empty RemoteStore.
func NewRemoteStore() *RemoteStore {
	return &RemoteStore{records: make(map[string]storage.Record), now: time.Now}
}

// FailWith makes every later call return err. A nil err heals the store.
func (m *RemoteStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Saves returns the successful saves in the order they happened.
func (m *RemoteStore) Saves() []Save {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Save(nil), m.saves...)
}

// Load returns a copy of the record under key, or nil if there is none.
func (m *RemoteStore) Load(ctx context.Context, key string) (*storage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	rec.Data = append([]byte{}, rec.Data...)
	return &rec, nil
}

// Save stores data under key and records the call for Saves. InsertOnly
// saves fail with storage.ErrConflict when key exists.
func (m *RemoteStore) Save(ctx context.Context, key string, data []byte, opts storage.SaveOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, exists := m.records[key]; exists && opts.InsertOnly {
		return fmt.Errorf("%w: %s", storage.ErrConflict, key)
	}
	data = append([]byte{}, data...)
	m.records[key] = storage.Record{Key: key, Data: data, UpdatedAt: m.now()}
	m.saves = append(m.saves, Save{Key: key, Data: data, InsertOnly: opts.InsertOnly})
	return nil
}

// Close is a no-op.
func (m *RemoteStore) Close() error { return nil }
