/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "context"

// Handler is a protocol service responsible for a set of message types.
// Handle may return a response message to be packed and sent back, or nil
// when the protocol calls for no reply. Handlers must be idempotent with
// respect to being invoked twice on the same message id; the dispatcher does
// not deduplicate invocations.
type Handler interface {
	// Name is the protocol service name, used in logs.
	Name() string

	// Accept reports whether this handler processes the message type URI.
	Accept(msgType string) bool

	// Handle processes the message, optionally producing a response.
	Handle(ctx context.Context, msg *Message) (*Message, error)
}
