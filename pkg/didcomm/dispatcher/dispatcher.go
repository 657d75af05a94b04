/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher routes inbound messages to protocol handlers by
// message type. Handlers are consulted in registration order and the
// first one accepting the type wins.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
)

var logger = log.New("didcomm-go/dispatcher")

// Registry holds the ordered set of protocol handlers.
type Registry struct {
	lock     sync.RWMutex
	handlers []service.Handler
}

// New returns a dispatcher registry seeded with the given handlers.
func New(handlers ...service.Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Register appends a handler. It is consulted after all previously
// registered handlers.
func (r *Registry) Register(h service.Handler) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.handlers = append(r.handlers, h)
}

// Dispatch hands the message to the first handler accepting its type and
// returns that handler's reply, if any. A message no handler accepts is
// logged and dropped without error. A handler panic is recovered and
// surfaced as a handler failure.
func (r *Registry) Dispatch(ctx context.Context, msg *service.Message) (reply *service.Message, err error) {
	r.lock.RLock()
	handlers := r.handlers
	r.lock.RUnlock()

	for _, h := range handlers {
		if !h.Accept(msg.Type) {
			continue
		}

		return r.invoke(ctx, h, msg)
	}

	logger.Warnf("no handler for message type %s, dropping message id=%s", msg.Type, msg.ID)

	return nil, nil
}

func (r *Registry) invoke(ctx context.Context, h service.Handler, msg *service.Message) (reply *service.Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reply = nil
			err = fmt.Errorf("handler %s panicked: %v", h.Name(), rec)
		}
	}()

	reply, err = h.Handle(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("handler %s failed: %w", h.Name(), err)
	}

	return reply, nil
}
