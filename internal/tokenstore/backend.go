// Package tokenstore persists bearer tokens in durable key-value storage.
//
// A Backend is the raw key-value adapter (OS keyring, YAML file, sqlite or
// memory). Store layers the token semantics on top: one canonical access key,
// a refresh key, and a one-time migration away from legacy key names.
package tokenstore

import "errors"

// ErrNotFound is returned by a Backend when the key holds no value
var ErrNotFound = errors.New("token not found")

// Backend defines the interface for durable key-value storage.
// Delete must succeed when the key is already absent.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
