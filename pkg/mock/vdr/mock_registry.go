/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vdr provides a mock DID resolver for tests.
package vdr

import (
	"context"
	"fmt"

	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
	"github.com/operatecrypto/didcomm-go/pkg/vdr"
)

// MockRegistry resolves DIDs from a fixed map, or delegates to ResolveFunc
// when set.
type MockRegistry struct {
	Docs        map[string]*did.Doc
	ResolveFunc func(ctx context.Context, didStr string) (*did.Doc, error)
	ResolveErr  error
}

// NewMockRegistry returns a mock registry seeded with the given documents,
// keyed by DID.
func NewMockRegistry(docs ...*did.Doc) *MockRegistry {
	m := &MockRegistry{Docs: make(map[string]*did.Doc)}

	for _, doc := range docs {
		m.Docs[doc.ID] = doc
	}

	return m
}

// Resolve returns the stored document for the DID.
func (m *MockRegistry) Resolve(ctx context.Context, didStr string) (*did.Doc, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, didStr)
	}

	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}

	doc, ok := m.Docs[didStr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vdr.ErrNotFound, didStr)
	}

	return doc, nil
}
