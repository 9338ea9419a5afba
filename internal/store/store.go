// Package store provides a shared key-value store with pub/sub, backed by
// memory for single-node deployments or Redis for multi-node ones.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Message represents a message received from a pub/sub channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription represents an active subscription to a pub/sub channel.
type Subscription interface {
	// Channel returns the channel for receiving messages.
	Channel() <-chan *Message
	// Close terminates the subscription.
	Close() error
}

// Store defines the interface for the shared store. The read contract is
// that a Get never observes a partially written value: writers replace
// values atomically, most-recent write wins.
type Store interface {
	// Set stores a key-value pair with an optional TTL (0 means no expiry).
	Set(key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key, returning ErrNotFound when absent or expired.
	Get(key string) ([]byte, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// Exists reports whether a key is present and unexpired.
	Exists(key string) (bool, error)

	// HIncrBy atomically increments a hash field, creating it as needed.
	HIncrBy(key, field string, incr int64) (int64, error)

	// HGetAll returns all fields of a hash. Missing keys yield an empty map.
	HGetAll(key string) (map[string]string, error)

	// Publish sends a message to all subscribers of a channel.
	Publish(channel string, message []byte) error

	// Subscribe listens for messages on a given channel.
	Subscribe(channel string) (Subscription, error)

	// Clear removes all data.
	Clear() error

	// Close releases any resources held by the store.
	Close() error
}
