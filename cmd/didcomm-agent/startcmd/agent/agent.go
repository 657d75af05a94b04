/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package agent assembles the messaging engine from its parts.
package agent

import (
	"fmt"
	"net/http"

	"github.com/operatecrypto/didcomm-go/pkg/controller/rest"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/dispatcher"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/messenger"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/packer"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/protocol/basicmessage"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/protocol/trustping"
	transporthttp "github.com/operatecrypto/didcomm-go/pkg/didcomm/transport/http"
	"github.com/operatecrypto/didcomm-go/pkg/kms"
	"github.com/operatecrypto/didcomm-go/pkg/secretlock"
	"github.com/operatecrypto/didcomm-go/pkg/secretlock/local"
	"github.com/operatecrypto/didcomm-go/pkg/secretlock/noop"
	"github.com/operatecrypto/didcomm-go/pkg/storage/mem"
	"github.com/operatecrypto/didcomm-go/pkg/store/message"
	"github.com/operatecrypto/didcomm-go/pkg/store/thread"
	"github.com/operatecrypto/didcomm-go/pkg/vdr"
	"github.com/operatecrypto/didcomm-go/pkg/vdr/httpbinding"
)

// Parameters configures the assembled agent.
type Parameters struct {
	// ResolverURL is the base URL of the HTTP binding DID resolver.
	ResolverURL string

	// MasterKey seals stored private keys when set.
	MasterKey []byte
}

// Router assembles the engine and returns its HTTP API router.
func Router(params *Parameters) (http.Handler, error) {
	lock, err := newLock(params.MasterKey)
	if err != nil {
		return nil, err
	}

	provider := mem.NewProvider()

	keyManager, err := kms.New(provider, lock)
	if err != nil {
		return nil, err
	}

	httpVDR, err := httpbinding.New(params.ResolverURL)
	if err != nil {
		return nil, fmt.Errorf("new http resolver: %w", err)
	}

	registry := vdr.New(vdr.WithVDR(httpVDR))

	messages, err := message.New(provider)
	if err != nil {
		return nil, err
	}

	threads, err := thread.New(provider)
	if err != nil {
		return nil, err
	}

	engine := messenger.New(
		packer.New(keyManager, registry),
		keyManager,
		registry,
		dispatcher.New(trustping.New(), basicmessage.New()),
		messages,
		threads,
		messenger.WithOutbound(transporthttp.NewOutbound()),
	)

	return rest.New(engine).Router(), nil
}

func newLock(masterKey []byte) (secretlock.Service, error) {
	if len(masterKey) == 0 {
		return noop.New(), nil
	}

	lock, err := local.New(masterKey)
	if err != nil {
		return nil, fmt.Errorf("new secret lock: %w", err)
	}

	return lock, nil
}
