/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage defines the persistence interfaces used by the key
// manager and the message and thread stores.
package storage

import "errors"

// ErrDataNotFound is returned when a key has no value in the store.
var ErrDataNotFound = errors.New("data not found")

// Provider opens named stores.
type Provider interface {
	// OpenStore opens the store with the given name, creating it if needed.
	OpenStore(name string) (Store, error)

	// Close closes all stores opened under this provider.
	Close() error
}

// Tag is a queryable name-value pair attached to a stored entry.
type Tag struct {
	Name  string
	Value string
}

// Entry is a stored key-value pair with its tags.
type Entry struct {
	Key   string
	Value []byte
	Tags  []Tag
}

// Store is a key-value store with tag-based queries.
type Store interface {
	// Put stores the value under key, replacing any previous value and tags.
	Put(key string, value []byte, tags ...Tag) error

	// Get returns the value stored under key, or ErrDataNotFound.
	Get(key string) ([]byte, error)

	// Delete removes the value stored under key. Deleting a missing key
	// is not an error.
	Delete(key string) error

	// Query returns all entries matching the expression. The expression is
	// either a tag name, matching entries carrying that tag with any value,
	// or "name:value", matching entries carrying that exact tag. The value
	// part may itself contain colons.
	Query(expression string) ([]Entry, error)
}
