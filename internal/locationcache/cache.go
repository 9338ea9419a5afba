// Package locationcache holds the most recently reported device location per
// worker on top of the shared store.
package locationcache

import (
	"encoding/json"
	"fmt"
	"time"

	"shramsetu/internal/models"
	"shramsetu/internal/store"
)

const keyPrefix = "worker_location:"

// Cache stores at most one location sample per worker, most-recent-wins.
// Backed by the shared store so that in multi-node deployments every node
// observes the same sample. Reads always return a fully written sample; the
// store contract rules out torn reads.
type Cache struct {
	store store.Store
	ttl   time.Duration
}

// NewCache creates a location cache. Samples expire after ttl so a worker
// who stops reporting eventually reads as "no location" rather than pinning
// a days-old coordinate.
func NewCache(s store.Store, ttl time.Duration) *Cache {
	return &Cache{store: s, ttl: ttl}
}

// Update overwrites the cached sample for the worker.
func (c *Cache) Update(sample *models.LocationSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to encode location sample: %w", err)
	}
	return c.store.Set(keyPrefix+sample.WorkerID, data, c.ttl)
}

// Latest returns the most recent sample for a worker, or store.ErrNotFound
// when none has been reported (or the last one expired).
func (c *Cache) Latest(workerID string) (*models.LocationSample, error) {
	data, err := c.store.Get(keyPrefix + workerID)
	if err != nil {
		return nil, err
	}
	var sample models.LocationSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, fmt.Errorf("failed to decode location sample: %w", err)
	}
	return &sample, nil
}

// Forget drops the cached sample for a worker.
func (c *Cache) Forget(workerID string) error {
	return c.store.Delete(keyPrefix + workerID)
}
