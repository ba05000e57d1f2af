// Package store provides the reactive key-value store interface and its SQLite implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// Change describes one committed write.
type Change struct {
	// Version is the store-wide version the write produced.
	Version int64
	// Keys are the changed keys that matched the subscription.
	Keys []string
}

// Snapshot is a point-in-time read of several keys and collections.
type Snapshot struct {
	Version     int64
	Values      map[string]json.RawMessage
	Collections map[string]map[string]json.RawMessage
}

// Value returns the raw value of key, if present.
func (s *Snapshot) Value(key string) (json.RawMessage, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	Key    string
	cancel func()
}

// Unsubscribe stops delivery of further changes. It is safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	if sub != nil && sub.cancel != nil {
		sub.cancel()
	}
}

// Store defines the reactive key-value store interface.
type Store interface {
	// Get returns the value of key or ErrNotFound.
	Get(ctx context.Context, key string) (json.RawMessage, error)

	// GetCollection returns every key starting with prefix.
	GetCollection(ctx context.Context, prefix string) (map[string]json.RawMessage, error)

	// Set replaces the value of key. A JSON null removes it.
	Set(ctx context.Context, key string, value json.RawMessage) error

	// Merge merges patch into the current value of key.
	Merge(ctx context.Context, key string, patch json.RawMessage) error

	// MultiSet sets several keys in one write.
	MultiSet(ctx context.Context, values map[string]json.RawMessage) error

	// Remove deletes key.
	Remove(ctx context.Context, key string) error

	// Subscribe calls fn after every committed write that touches key, or
	// any key of the collection when key is a collection prefix. Callbacks
	// run in commit order and must not write to the store synchronously.
	Subscribe(key string, fn func(Change)) *Subscription

	// Snapshot reads keys and whole collections consistently.
	Snapshot(ctx context.Context, keys, prefixes []string) (*Snapshot, error)

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Close closes the store.
	Close() error
}

// matches reports whether a subscription on pattern covers key.
func matches(pattern string, collection bool, key string) bool {
	if collection {
		return strings.HasPrefix(key, pattern)
	}
	return key == pattern
}
