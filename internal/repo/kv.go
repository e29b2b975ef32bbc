// Package repo contains the durable key-value storage used by the managers.
// The KVStore interface has a SQLite implementation (device-local default),
// a Postgres implementation (shared deployments) and an in-memory one.
// No business logic lives here, only storage and key mapping.
package repo

import (
	"context"
	"strings"
)

// KVStore is durable local storage for UTF-8/JSON blobs.
// The service layer depends on this interface, not the concrete implementations,
// which allows the managers to be unit-tested with the in-memory store or a mock.
type KVStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key has never been set or was removed.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// namespaced prefixes every key so each manager owns a distinct key space.
type namespaced struct {
	prefix string
	next   KVStore
}

// Namespace returns a KVStore that stores key as "<prefix>:<key>" in next.
func Namespace(next KVStore, prefix string) KVStore {
	return &namespaced{prefix: strings.TrimSuffix(prefix, ":") + ":", next: next}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.next.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.next.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.next.Remove(ctx, n.prefix+key)
}
