package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pavelanni/examreport/internal/model"
)

// Cached is a read-through cache in front of a primary store. The primary is
// the source of truth; cache failures are logged and never fail a call.
type Cached struct {
	primary DocumentStore
	cache   DocumentStore
}

// NewCached wraps primary with cache.
func NewCached(primary, cache DocumentStore) *Cached {
	return &Cached{primary: primary, cache: cache}
}

// Load reads from the cache, falling back to the primary and refilling the cache.
func (c *Cached) Load(ctx context.Context, userID string) (model.TestDataset, error) {
	ds, err := c.cache.Load(ctx, userID)
	if err != nil {
		slog.Warn("dataset cache read failed", "user", userID, "error", err)
	}
	if ds != nil {
		return ds, nil
	}

	ds, err = c.primary.Load(ctx, userID)
	if err != nil || ds == nil {
		return ds, err
	}
	if err := c.cache.Save(ctx, userID, ds); err != nil {
		slog.Warn("dataset cache fill failed", "user", userID, "error", err)
	}
	return ds, nil
}

// Save writes the primary first, then the cache.
func (c *Cached) Save(ctx context.Context, userID string, ds model.TestDataset) error {
	if err := c.primary.Save(ctx, userID, ds); err != nil {
		return err
	}
	if err := c.cache.Save(ctx, userID, ds); err != nil {
		slog.Warn("dataset cache write failed, evicting", "user", userID, "error", err)
		if d, ok := c.cache.(interface {
			Delete(ctx context.Context, userID string) error
		}); ok {
			if err := d.Delete(ctx, userID); err != nil {
				slog.Error("dataset cache eviction failed", "user", userID, "error", err)
			}
		}
	}
	return nil
}

// Close closes both stores.
func (c *Cached) Close() error {
	return errors.Join(c.primary.Close(), c.cache.Close())
}
