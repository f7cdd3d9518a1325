// Package state holds the current snapshot and applies edits to it.
//
// The in-memory snapshot is the source of truth. Every edit produces a new
// validated snapshot, which is written to the local store right away and
// handed to the syncer for a debounced remote write. Neither write can undo
// an edit: local failures are logged and remote failures show up in the
// sync status.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kotlinhustle/power-split/internal/calculator"
	"github.com/kotlinhustle/power-split/internal/metrics"
	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/storage"
	"github.com/kotlinhustle/power-split/internal/syncer"
)

// DefaultKey is the key the blob is stored under.
const DefaultKey = "power-split"

// ErrSyncDisabled is returned by sync operations without a remote store.
var ErrSyncDisabled = errors.New("remote sync is not configured")

// Edit transforms a snapshot. It receives a private copy.
type Edit func(models.Snapshot) (models.Snapshot, error)

// Options configure a Container.
type Options struct {
	Local storage.BlobStore

	// Remote is optional. Without it the container runs local-only.
	Remote storage.RemoteStore

	Key  string
	Sync syncer.Options
}

// Container owns the current snapshot.
type Container struct {
	local  storage.BlobStore
	syncer *syncer.Syncer
	key    string
	newID  func() string

	mu          sync.RWMutex
	snap        models.Snapshot
	fingerprint string

	resultMu    sync.Mutex
	result      calculator.Result
	resultFor   string
	resultValid bool
}

// Open loads the snapshot and, with a remote configured, reconciles it with
// the remote copy: a remote record wins, a missing one is created from the
// local snapshot. A remote failure leaves the local snapshot in place.
func Open(ctx context.Context, opts Options) (*Container, error) {
	if opts.Local == nil {
		return nil, errors.New("local store is required")
	}
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}

	c := &Container{local: opts.Local, key: key, newID: uuid.NewString}

	raw, err := c.local.Load(ctx, key)
	if err != nil {
		slog.Error("Local load failed, starting from defaults", "key", key, "error", err)
	}
	c.set(models.Decode(raw))
	slog.Info("State loaded", "key", key, "found", raw != nil, "fingerprint", c.fingerprint)

	if opts.Remote == nil {
		return c, nil
	}

	c.syncer = syncer.New(opts.Remote, key, opts.Sync)
	rec, err := c.syncer.Load(ctx)
	switch {
	case err != nil:
		// Status is already StatusError; the local snapshot stays.
	case rec != nil:
		c.set(models.Decode(rec.Data))
		c.saveLocal(ctx, c.blob())
		slog.Info("Remote state adopted", "key", key, "fingerprint", c.fingerprint)
	default:
		if err := c.syncer.Insert(ctx, c.blob()); err != nil {
			slog.Error("Remote insert failed", "key", key, "error", err)
		}
	}
	return c, nil
}

// Snapshot returns a copy of the current snapshot.
func (c *Container) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone()
}

// Fingerprint identifies the current snapshot.
func (c *Container) Fingerprint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fingerprint
}

// NewID returns an identifier for a new sub-meter or group.
func (c *Container) NewID() string {
	return c.newID()
}

// Apply runs edit on a copy of the current snapshot and makes the validated
// outcome current. The edit's error is returned unchanged and leaves the
// snapshot as it was.
func (c *Container) Apply(ctx context.Context, edit Edit) (models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := edit(c.snap.Clone())
	if err != nil {
		return c.snap.Clone(), err
	}
	c.setLocked(models.Validate(next))

	blob := c.blobLocked()
	c.saveLocal(ctx, blob)
	if c.syncer != nil {
		c.syncer.Schedule(blob)
	}
	return c.snap.Clone(), nil
}

// Replace makes s the current snapshot.
func (c *Container) Replace(ctx context.Context, s models.Snapshot) (models.Snapshot, error) {
	return c.Apply(ctx, func(models.Snapshot) (models.Snapshot, error) { return s, nil })
}

// Reset removes the stored blob and returns to the default snapshot.
func (c *Container) Reset(ctx context.Context) (models.Snapshot, error) {
	if err := c.local.Delete(ctx, c.key); err != nil {
		slog.Error("Local delete failed", "key", c.key, "error", err)
	}
	slog.Info("State reset", "key", c.key)
	return c.Replace(ctx, models.Default())
}

// Result returns the computed result for the current snapshot. It is
// recomputed only when the snapshot changed.
func (c *Container) Result() calculator.Result {
	c.mu.RLock()
	snap, fp := c.snap, c.fingerprint
	c.mu.RUnlock()

	c.resultMu.Lock()
	defer c.resultMu.Unlock()
	if c.resultValid && c.resultFor == fp {
		return c.result.Clone()
	}

	res := calculator.Compute(snap)
	metrics.ComputationsTotal.WithLabelValues(string(res.Policy)).Inc()
	for _, w := range res.Warnings {
		metrics.WarningsTotal.WithLabelValues(string(w.Kind)).Inc()
	}
	c.result, c.resultFor, c.resultValid = res, fp, true
	return res.Clone()
}

// SyncEnabled reports whether a remote store is configured.
func (c *Container) SyncEnabled() bool {
	return c.syncer != nil
}

// SyncState returns the remote sync status.
func (c *Container) SyncState() (syncer.State, error) {
	if c.syncer == nil {
		return syncer.State{}, ErrSyncDisabled
	}
	return c.syncer.State(), nil
}

// RetrySync resends the last blob that failed to sync. It reports false when
// nothing was waiting.
func (c *Container) RetrySync() (bool, error) {
	if c.syncer == nil {
		return false, ErrSyncDisabled
	}
	return c.syncer.Retry(), nil
}

// Flush writes any pending remote change now.
func (c *Container) Flush(ctx context.Context) error {
	if c.syncer == nil {
		return nil
	}
	return c.syncer.Flush(ctx)
}

// Close flushes pending remote changes and stops the syncer. The stores stay
// open; they belong to the caller.
func (c *Container) Close(ctx context.Context) error {
	if c.syncer == nil {
		return nil
	}
	if err := c.syncer.Close(ctx); err != nil {
		return fmt.Errorf("failed to flush remote state: %w", err)
	}
	return nil
}

func (c *Container) set(s models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(s)
}

func (c *Container) setLocked(s models.Snapshot) {
	c.snap = s
	c.fingerprint = models.Fingerprint(s)
}

func (c *Container) blob() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blobLocked()
}

func (c *Container) blobLocked() []byte {
	data, err := models.Encode(c.snap)
	if err != nil {
		// Validated snapshots always encode.
		slog.Error("Snapshot encoding failed", "error", err)
		return nil
	}
	return data
}

func (c *Container) saveLocal(ctx context.Context, blob []byte) {
	err := c.local.Save(ctx, c.key, blob)
	metrics.LocalWritesTotal.WithLabelValues(metrics.ResultLabel(err)).Inc()
	if err != nil {
		slog.Error("Local save failed", "key", c.key, "error", err)
	}
}
