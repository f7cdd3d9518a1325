// Package redis implements storage.RemoteStore on Redis. Each key holds a
// JSON envelope with the blob and the time it was written.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kotlinhustle/power-split/internal/storage"
)

// DefaultPrefix namespaces keys.
const DefaultPrefix = "powersplit:"

var _ storage.RemoteStore = (*Store)(nil)

// Config holds the connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is a RemoteStore backed by a go-redis client.
type Store struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// New connects to the server at cfg.Addr and checks it with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Password),
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Load returns the record for key, or nil when there is none.
func (s *Store) Load(ctx context.Context, key string) (*storage.Record, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &storage.Record{Key: key, Data: []byte(env.Data), UpdatedAt: env.UpdatedAt}, nil
}

// Save writes the envelope with SET, or SETNX when opts.InsertOnly is set.
func (s *Store) Save(ctx context.Context, key string, data []byte, opts storage.SaveOptions) error {
	raw, err := json.Marshal(envelope{Data: json.RawMessage(data), UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if !opts.InsertOnly {
		if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	}

	ok, err := s.client.SetNX(ctx, s.prefix+key, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrConflict, key)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
