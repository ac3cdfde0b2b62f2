// Package results persists the final lead list of a finished run so a
// detached poller can retrieve it after the originating request is gone.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leadstack/leadscout/internal/db"
	"github.com/leadstack/leadscout/internal/domain"
)

// store is the consumer interface for result persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo implements the orchestrator's ResultStore contract.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a results repository with the given retention TTL.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Put stores the run's final lead list.
func (r *Repo) Put(ctx context.Context, runID string, leads []domain.Lead) error {
	data, err := json.Marshal(leads)
	if err != nil {
		return fmt.Errorf("marshal results %s: %w", runID, err)
	}
	if err := r.store.SetWithTTL(ctx, r.key(runID), data, r.ttl); err != nil {
		return fmt.Errorf("results SET %s: %w", runID, err)
	}
	return nil
}

// Get returns the run's lead list. Unknown runs surface as domain.ErrRunNotFound.
func (r *Repo) Get(ctx context.Context, runID string) ([]domain.Lead, error) {
	data, err := r.store.Get(ctx, r.key(runID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("results GET %s: %w", runID, err)
	}
	var leads []domain.Lead
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("unmarshal results %s: %w", runID, err)
	}
	return leads, nil
}

func (r *Repo) key(runID string) string { return r.prefix + "results:" + runID }
