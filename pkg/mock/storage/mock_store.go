/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage provides error-injecting storage mocks for tests.
package storage

import (
	"github.com/operatecrypto/didcomm-go/pkg/storage"
	"github.com/operatecrypto/didcomm-go/pkg/storage/mem"
)

// MockProvider wraps the in-memory provider and can fail OpenStore.
type MockProvider struct {
	inner        *mem.Provider
	ErrOpenStore error

	// Stores overrides the store returned for a name.
	Stores map[string]storage.Store
}

// NewMockProvider returns a provider backed by in-memory stores.
func NewMockProvider() *MockProvider {
	return &MockProvider{inner: mem.NewProvider(), Stores: make(map[string]storage.Store)}
}

// OpenStore opens the named store, or fails with ErrOpenStore.
func (p *MockProvider) OpenStore(name string) (storage.Store, error) {
	if p.ErrOpenStore != nil {
		return nil, p.ErrOpenStore
	}

	if store, ok := p.Stores[name]; ok {
		return store, nil
	}

	return p.inner.OpenStore(name)
}

// Close closes the underlying provider.
func (p *MockProvider) Close() error {
	return p.inner.Close()
}

// MockStore wraps a store and injects errors per operation.
type MockStore struct {
	Inner    storage.Store
	ErrPut   error
	ErrGet   error
	ErrQuery error
}

// Put stores the value, or fails with ErrPut.
func (s *MockStore) Put(key string, value []byte, tags ...storage.Tag) error {
	if s.ErrPut != nil {
		return s.ErrPut
	}

	return s.Inner.Put(key, value, tags...)
}

// Get returns the value, or fails with ErrGet.
func (s *MockStore) Get(key string) ([]byte, error) {
	if s.ErrGet != nil {
		return nil, s.ErrGet
	}

	return s.Inner.Get(key)
}

// Delete removes the value under key.
func (s *MockStore) Delete(key string) error {
	return s.Inner.Delete(key)
}

// Query returns matching entries, or fails with ErrQuery.
func (s *MockStore) Query(expression string) ([]storage.Entry, error) {
	if s.ErrQuery != nil {
		return nil, s.ErrQuery
	}

	return s.Inner.Query(expression)
}
