/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem provides an in-memory storage provider.
package mem

import (
	"strings"
	"sync"

	"github.com/operatecrypto/didcomm-go/pkg/storage"
)

// Provider is an in-memory implementation of storage.Provider.
type Provider struct {
	dbs  map[string]*memStore
	lock sync.RWMutex
}

// NewProvider instantiates Provider.
func NewProvider() *Provider {
	return &Provider{dbs: make(map[string]*memStore)}
}

// OpenStore opens and returns the store for the given name space.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	if store := p.getMemStore(name); store != nil {
		return store, nil
	}

	return p.newMemStore(name), nil
}

func (p *Provider) getMemStore(name string) *memStore {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.dbs[strings.ToLower(name)]
}

func (p *Provider) newMemStore(name string) *memStore {
	p.lock.Lock()
	defer p.lock.Unlock()

	if store, ok := p.dbs[strings.ToLower(name)]; ok {
		return store
	}

	store := &memStore{db: make(map[string]entry)}
	p.dbs[strings.ToLower(name)] = store

	return store
}

// Close closes all stores created under this provider.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.dbs = make(map[string]*memStore)

	return nil
}

type entry struct {
	value []byte
	tags  []storage.Tag
}

type memStore struct {
	db   map[string]entry
	lock sync.RWMutex
}

// Put stores the value and tags under key.
func (s *memStore) Put(key string, value []byte, tags ...storage.Tag) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	v := make([]byte, len(value))
	copy(v, value)

	s.db[key] = entry{value: v, tags: append([]storage.Tag(nil), tags...)}

	return nil
}

// Get returns the value stored under key.
func (s *memStore) Get(key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	e, ok := s.db[key]
	if !ok {
		return nil, storage.ErrDataNotFound
	}

	v := make([]byte, len(e.value))
	copy(v, e.value)

	return v, nil
}

// Delete removes the value stored under key.
func (s *memStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.db, key)

	return nil
}

// Query returns all entries matching the tag expression.
func (s *memStore) Query(expression string) ([]storage.Entry, error) {
	name, value, hasValue := strings.Cut(expression, ":")

	s.lock.RLock()
	defer s.lock.RUnlock()

	var results []storage.Entry

	for key, e := range s.db {
		for _, tag := range e.tags {
			if tag.Name != name {
				continue
			}

			if hasValue && tag.Value != value {
				continue
			}

			v := make([]byte, len(e.value))
			copy(v, e.value)

			results = append(results, storage.Entry{
				Key:   key,
				Value: v,
				Tags:  append([]storage.Tag(nil), e.tags...),
			})

			break
		}
	}

	return results, nil
}
