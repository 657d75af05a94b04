/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vdr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

var logger = log.New("didcomm-go/vdr")

const (
	defaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 100
)

// Registry dispatches DID resolution to the resolver accepting the DID
// method and caches successful resolutions per DID string with a bounded
// TTL. The cache is the engine's only shared mutable state; gcache is
// goroutine safe, so concurrent pack/unpack operations resolve freely.
// Entries are evicted on TTL expiry, not on key rotation; callers needing
// freshness use Invalidate or Flush.
type Registry struct {
	resolvers  []VDR
	cache      gcache.Cache
	cacheTTL   time.Duration
	cacheSize  int
	cacheClock gcache.Clock
}

// Option configures the registry.
type Option func(*Registry)

// WithVDR adds a resolver to the registry. Resolvers are consulted in
// registration order.
func WithVDR(v VDR) Option {
	return func(r *Registry) {
		r.resolvers = append(r.resolvers, v)
	}
}

// WithCacheTTL overrides the default document cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.cacheTTL = ttl
	}
}

// WithCacheSize overrides the default document cache capacity.
func WithCacheSize(size int) Option {
	return func(r *Registry) {
		r.cacheSize = size
	}
}

// WithCacheClock injects the clock used for cache expiry. Tests use a
// gcache fake clock to step through TTL windows deterministically.
func WithCacheClock(clock gcache.Clock) Option {
	return func(r *Registry) {
		r.cacheClock = clock
	}
}

// New returns a new resolution registry.
func New(opts ...Option) *Registry {
	registry := &Registry{
		cacheTTL:   defaultCacheTTL,
		cacheSize:  defaultCacheSize,
		cacheClock: gcache.NewRealClock(),
	}

	for _, opt := range opts {
		opt(registry)
	}

	registry.cache = gcache.New(registry.cacheSize).LRU().Clock(registry.cacheClock).Build()

	return registry
}

// Resolve maps a DID string to its DID document, consulting the cache first.
func (r *Registry) Resolve(ctx context.Context, didStr string) (*did.Doc, error) {
	parsed, err := did.Parse(didStr)
	if err != nil {
		return nil, err
	}

	if cached, cacheErr := r.cache.Get(didStr); cacheErr == nil {
		logger.Debugf("resolved %s from cache", didStr)

		return cached.(*did.Doc), nil
	}

	resolver := r.resolver(parsed.Method)
	if resolver == nil {
		return nil, fmt.Errorf("%w: no resolver for method %s", ErrNotFound, parsed.Method)
	}

	doc, err := resolver.Read(ctx, didStr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("resolve %s: %w", didStr, ErrTimeout)
		}

		return nil, fmt.Errorf("resolve %s: %w", didStr, err)
	}

	if cacheErr := r.cache.SetWithExpire(didStr, doc, r.cacheTTL); cacheErr != nil {
		logger.Warnf("failed to cache document for %s: %v", didStr, cacheErr)
	}

	return doc, nil
}

// Invalidate evicts a single DID from the document cache. Deployments that
// rotate keys call this instead of waiting out the TTL.
func (r *Registry) Invalidate(didStr string) {
	r.cache.Remove(didStr)
}

// Flush drops every cached document.
func (r *Registry) Flush() {
	r.cache.Purge()
}

func (r *Registry) resolver(method string) VDR {
	for _, v := range r.resolvers {
		if v.Accept(method) {
			return v
		}
	}

	return nil
}
