// Package syncer mirrors the snapshot blob to a remote store in the
// background.
//
// Edits call Schedule with the newest blob. A write happens once no new blob
// has arrived for the debounce window, so a burst of edits produces a single
// remote write carrying the last blob. Every write runs on one worker
// goroutine, which keeps writes in edit order.
//
// Remote failures never touch local state. They set the status to
// StatusError and keep the blob so Retry can resend it; the next Schedule
// supersedes it.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kotlinhustle/power-split/internal/metrics"
	"github.com/kotlinhustle/power-split/internal/storage"
)

// DefaultDebounce is the quiet window before a scheduled blob is written.
const DefaultDebounce = 800 * time.Millisecond

// Status is the state of the most recent remote operation.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

var statuses = []Status{StatusLoading, StatusSynced, StatusError}

// ErrClosed is returned by operations on a closed Syncer.
var ErrClosed = errors.New("syncer closed")

// State is a snapshot of the syncer for display.
type State struct {
	Status       Status     `json:"status"`
	LastError    string     `json:"lastError,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`

	// Pending is true while a scheduled blob has not been written yet.
	Pending bool `json:"pending"`

	// Retryable is true when a failed blob is waiting for Retry.
	Retryable bool `json:"retryable"`
}

// Options tune a Syncer.
type Options struct {
	Debounce time.Duration

	// WriteTimeout bounds each background write. Defaults to 15s.
	WriteTimeout time.Duration
}

type job struct {
	ctx        context.Context
	blob       []byte
	insertOnly bool
	pending    bool // write whatever is pending instead of blob
	reply      chan error
}

// Syncer owns the remote copy of one key.
type Syncer struct {
	store        storage.RemoteStore
	key          string
	debounce     time.Duration
	writeTimeout time.Duration

	mu       sync.Mutex
	pending  []byte
	failed   []byte
	timer    *time.Timer
	status   Status
	lastErr  error
	lastSync time.Time
	closed   bool

	kick     chan struct{}
	jobs     chan job
	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	now      func() time.Time
}

// New starts a Syncer for key on store.
func New(store storage.RemoteStore, key string, opts Options) *Syncer {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	s := &Syncer{
		store:        store,
		key:          key,
		debounce:     opts.Debounce,
		writeTimeout: opts.WriteTimeout,
		status:       StatusLoading,
		kick:         make(chan struct{}, 1),
		jobs:         make(chan job),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		now:          time.Now,
	}
	s.publishStatus(StatusLoading)
	go s.run()
	return s
}

// Load reads the remote record. A nil record means the key does not exist.
func (s *Syncer) Load(ctx context.Context) (*storage.Record, error) {
	s.setStatus(StatusLoading, nil)
	rec, err := s.store.Load(ctx, s.key)
	metrics.SyncOperationsTotal.WithLabelValues("load", metrics.ResultLabel(err)).Inc()
	if err != nil {
		slog.Error("Remote load failed", "key", s.key, "error", err)
		s.setStatus(StatusError, err)
		return nil, err
	}
	slog.Info("Remote load completed", "key", s.key, "found", rec != nil)
	s.setStatus(StatusSynced, nil)
	return rec, nil
}

// Insert creates the remote record with an insert-only save. It runs on the
// worker and waits for the result. On failure the blob is kept for Retry,
// which resends it as an ordinary upsert.
func (s *Syncer) Insert(ctx context.Context, blob []byte) error {
	return s.submit(ctx, job{ctx: ctx, blob: blob, insertOnly: true})
}

// Schedule makes blob the next one to write and restarts the debounce
// window. Earlier unwritten blobs are dropped.
func (s *Syncer) Schedule(blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append([]byte(nil), blob...)
	s.failed = nil
	s.armLocked()
}

// Retry schedules the last failed blob again. It reports false when there is
// nothing to retry.
func (s *Syncer) Retry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed == nil || s.pending != nil {
		return false
	}
	s.pending, s.failed = s.failed, nil
	s.armLocked()
	return true
}

// Flush writes the pending blob now, if any, and waits for the result.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.submit(ctx, job{ctx: ctx, pending: true})
}

// Close flushes the pending blob and stops the worker. The store is not
// closed.
func (s *Syncer) Close(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}

	err := s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
	return err
}

// State returns the current status.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Status:    s.status,
		Pending:   s.pending != nil,
		Retryable: s.failed != nil,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if !s.lastSync.IsZero() {
		t := s.lastSync
		st.LastSyncedAt = &t
	}
	return st
}

func (s *Syncer) armLocked() {
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.fire)
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *Syncer) fire() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Syncer) submit(ctx context.Context, j job) error {
	j.reply = make(chan error, 1)
	select {
	case s.jobs <- j:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-s.kick:
			ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
			s.writePending(ctx)
			cancel()
		case j := <-s.jobs:
			if j.pending {
				j.reply <- s.writePending(j.ctx)
				continue
			}
			err := s.write(j.ctx, j.blob, j.insertOnly)
			if err != nil {
				s.keepFailed(j.blob)
			}
			j.reply <- err
		}
	}
}

func (s *Syncer) writePending(ctx context.Context) error {
	s.mu.Lock()
	blob := s.pending
	s.pending = nil
	s.mu.Unlock()
	if blob == nil {
		return nil
	}

	err := s.write(ctx, blob, false)
	if err != nil {
		s.keepFailed(blob)
	}
	return err
}

// keepFailed holds blob for Retry unless a newer blob is already pending.
func (s *Syncer) keepFailed(blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.failed = append([]byte(nil), blob...)
	}
}

func (s *Syncer) write(ctx context.Context, blob []byte, insertOnly bool) error {
	op := "save"
	if insertOnly {
		op = "insert"
	}
	s.setStatus(StatusLoading, nil)

	start := s.now()
	err := s.store.Save(ctx, s.key, blob, storage.SaveOptions{InsertOnly: insertOnly})
	metrics.SyncOperationsTotal.WithLabelValues(op, metrics.ResultLabel(err)).Inc()
	if err != nil {
		slog.Error("Remote "+op+" failed", "key", s.key, "error", err)
		s.setStatus(StatusError, err)
		return err
	}

	slog.Debug("Remote "+op+" completed", "key", s.key, "bytes", len(blob), "duration_ms", s.now().Sub(start).Milliseconds())
	s.mu.Lock()
	s.lastSync = s.now()
	s.mu.Unlock()
	s.setStatus(StatusSynced, nil)
	return nil
}

func (s *Syncer) setStatus(st Status, err error) {
	s.mu.Lock()
	s.status = st
	if st != StatusLoading {
		s.lastErr = err
	}
	s.mu.Unlock()
	s.publishStatus(st)
}

func (s *Syncer) publishStatus(current Status) {
	for _, st := range statuses {
		v := 0.0
		if st == current {
			v = 1
		}
		metrics.SyncStatus.WithLabelValues(string(st)).Set(v)
	}
}
