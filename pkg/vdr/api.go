/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vdr resolves DIDs to DID documents through registered resolvers,
// with a bounded-TTL cache keyed by DID string.
package vdr

import (
	"context"
	"errors"

	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

// Resolution failure modes. Network failures are retryable by the caller
// with backoff; the registry does not retry internally.
var (
	// ErrNotFound is returned when no document exists for the DID.
	ErrNotFound = errors.New("did not found")
	// ErrNetworkFailure is returned when the resolution service cannot be
	// reached or answers with an unexpected status.
	ErrNetworkFailure = errors.New("did resolution network failure")
	// ErrMalformedDocument is returned when the resolution service answers
	// with a body that does not deserialize to a DID document.
	ErrMalformedDocument = errors.New("malformed did document")
	// ErrTimeout is returned when resolution exceeds the caller's deadline.
	ErrTimeout = errors.New("did resolution timed out")
)

// VDR resolves DIDs for the methods it accepts.
type VDR interface {
	Read(ctx context.Context, didStr string) (*did.Doc, error)
	Accept(method string) bool
}
