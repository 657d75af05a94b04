/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport defines how packed envelopes leave the agent.
package transport

import "context"

// Outbound delivers a packed envelope to a recipient endpoint.
type Outbound interface {
	// Send delivers the envelope to the endpoint.
	Send(ctx context.Context, envelope []byte, endpoint string) error
}
