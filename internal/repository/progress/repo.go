// Package progress persists per-run ProgressRecords in a keyed store.
// Every write is a full overwrite of the run's record (last-writer-wins);
// readers may observe a record mid-update.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leadstack/leadscout/internal/db"
	"github.com/leadstack/leadscout/internal/domain"
)

// store is the consumer interface for progress persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements the orchestrator's ProgressStore contract.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a progress repository. ttl is the retention window applied
// to every record write.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Put overwrites the run's record and refreshes its retention TTL.
func (r *Repo) Put(ctx context.Context, rec domain.ProgressRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal progress %s: %w", rec.RunID, err)
	}
	if err := r.store.SetWithTTL(ctx, r.recordKey(rec.RunID), data, r.ttl); err != nil {
		return fmt.Errorf("progress SET %s: %w", rec.RunID, err)
	}
	return nil
}

// Get returns the run's record. Unknown runs surface as domain.ErrRunNotFound.
func (r *Repo) Get(ctx context.Context, runID string) (domain.ProgressRecord, error) {
	data, err := r.store.Get(ctx, r.recordKey(runID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ProgressRecord{}, domain.ErrRunNotFound
		}
		return domain.ProgressRecord{}, fmt.Errorf("progress GET %s: %w", runID, err)
	}
	var rec domain.ProgressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("unmarshal progress %s: %w", runID, err)
	}
	return rec, nil
}

// RequestStop marks a running run as stopped and raises the stop marker
// the orchestrator polls between page fetches. Stopping an already
// terminal run is a no-op; unknown runs surface domain.ErrRunNotFound.
func (r *Repo) RequestStop(ctx context.Context, runID, message string) error {
	rec, err := r.Get(ctx, runID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		return nil
	}

	if err := r.store.SetWithTTL(ctx, r.stopKey(runID), []byte("1"), r.ttl); err != nil {
		return fmt.Errorf("stop marker SET %s: %w", runID, err)
	}

	rec.Status = domain.StatusStopped
	rec.Message = message
	rec.UpdatedAt = time.Now().UTC()
	return r.Put(ctx, rec)
}

// StopRequested reports whether a stop marker exists for the run.
func (r *Repo) StopRequested(ctx context.Context, runID string) (bool, error) {
	ok, err := r.store.Exists(ctx, r.stopKey(runID))
	if err != nil {
		return false, fmt.Errorf("stop marker EXISTS %s: %w", runID, err)
	}
	return ok, nil
}

func (r *Repo) recordKey(runID string) string { return r.prefix + "progress:" + runID }
func (r *Repo) stopKey(runID string) string   { return r.prefix + "stop:" + runID }
