// Package postgrest implements storage.RemoteStore on top of a hosted
// PostgREST endpoint, one row per key in a (key, data, updated_at) table.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kotlinhustle/power-split/internal/storage"
)

// DefaultTable is the table the blob lives in.
const DefaultTable = "apartments"

var _ storage.RemoteStore = (*Store)(nil)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, e.Body)
}

// Config holds the endpoint settings.
type Config struct {
	// URL is the project base URL; requests go to {URL}/rest/v1/{Table}.
	URL    string
	APIKey string
	Table  string

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
}

// Store talks to PostgREST over HTTP.
type Store struct {
	endpoint string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

type row struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// New validates cfg and returns a Store.
func New(cfg Config) (*Store, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("postgrest url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("postgrest api key is required")
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		endpoint: base + "/rest/v1/" + url.PathEscape(table),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}, nil
}

// Load fetches the row for key.
func (s *Store) Load(ctx context.Context, key string) (*storage.Record, error) {
	query := url.Values{}
	query.Set("key", "eq."+key)
	query.Set("select", "key,data,updated_at")
	query.Set("limit", "1")

	req, err := s.newRequest(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	body, err := s.do(req, "load")
	if err != nil {
		return nil, err
	}

	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode load response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rec := &storage.Record{Key: rows[0].Key, Data: []byte(rows[0].Data)}
	if rows[0].UpdatedAt != nil {
		rec.UpdatedAt = *rows[0].UpdatedAt
	}
	return rec, nil
}

// Save posts the row. Upserts merge on key; insert-only saves fail with
// storage.ErrConflict when the row exists.
func (s *Store) Save(ctx context.Context, key string, data []byte, opts storage.SaveOptions) error {
	now := s.now().UTC()
	payload, err := json.Marshal([]row{{Key: key, Data: json.RawMessage(data), UpdatedAt: &now}})
	if err != nil {
		return fmt.Errorf("failed to encode save payload: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if opts.InsertOnly {
		req.Header.Set("Prefer", "return=minimal")
	} else {
		req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	}

	if _, err := s.do(req, "save"); err != nil {
		var se *StatusError
		if opts.InsertOnly && errors.As(err, &se) && se.Status == http.StatusConflict {
			return fmt.Errorf("%w: %s", storage.ErrConflict, key)
		}
		return err
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *Store) do(req *http.Request, op string) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
