/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package trustping implements the trust ping protocol: a minimal
// liveness exchange where a ping elicits a ping response on the same
// thread.
package trustping

import (
	"context"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
)

const (
	// PingMsgType is the message type of a trust ping.
	PingMsgType = "https://didcomm.org/trust-ping/2.0/ping"
	// PingResponseMsgType is the message type of a trust ping response.
	PingResponseMsgType = "https://didcomm.org/trust-ping/2.0/ping-response"
)

var logger = log.New("didcomm-go/trustping")

type pingBody struct {
	Comment           string `json:"comment,omitempty"`
	ResponseRequested *bool  `json:"response_requested,omitempty"`
}

// Service handles trust ping and trust ping response messages.
type Service struct{}

// New returns a trust ping protocol service.
func New() *Service {
	return &Service{}
}

// Name returns the protocol service name.
func (s *Service) Name() string {
	return "trust-ping"
}

// Accept reports whether the message type belongs to this protocol.
func (s *Service) Accept(msgType string) bool {
	return msgType == PingMsgType || msgType == PingResponseMsgType
}

// Handle answers a ping with a ping response addressed back to the sender
// on the ping's thread. A ping whose body sets response_requested to false
// is acknowledged silently. Ping responses terminate the exchange.
func (s *Service) Handle(_ context.Context, msg *service.Message) (*service.Message, error) {
	switch msg.Type {
	case PingMsgType:
		return s.handlePing(msg)
	case PingResponseMsgType:
		logger.Debugf("received ping response id=%s thid=%s from=%s", msg.ID, msg.Thread(), msg.From)
		return nil, nil
	default:
		return nil, nil
	}
}

func (s *Service) handlePing(msg *service.Message) (*service.Message, error) {
	body := &pingBody{}
	if err := msg.Decode(body); err != nil {
		logger.Warnf("malformed ping body id=%s: %v", msg.ID, err)
	}

	if body.ResponseRequested != nil && !*body.ResponseRequested {
		logger.Debugf("ping id=%s does not request a response", msg.ID)
		return nil, nil
	}

	if msg.From == "" {
		logger.Warnf("ping id=%s has no sender, cannot respond", msg.ID)
		return nil, nil
	}

	response := service.New(PingResponseMsgType, msg.To, msg.From)
	response.ThreadID = msg.Thread()

	return response, nil
}
