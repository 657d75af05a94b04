/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package basicmessage implements the basic message protocol for plain
// human-readable messages.
package basicmessage

import (
	"context"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
)

// MsgType is the message type of a basic message.
const MsgType = "https://didcomm.org/basicmessage/2.0/message"

var logger = log.New("didcomm-go/basicmessage")

type messageBody struct {
	Content string `json:"content"`
}

// Service handles basic messages. It records receipt; delivery to an
// application inbox is the message store's concern.
type Service struct{}

// New returns a basic message protocol service.
func New() *Service {
	return &Service{}
}

// Name returns the protocol service name.
func (s *Service) Name() string {
	return "basicmessage"
}

// Accept reports whether the message type belongs to this protocol.
func (s *Service) Accept(msgType string) bool {
	return msgType == MsgType
}

// Handle logs the message content. Basic messages never produce a reply.
func (s *Service) Handle(_ context.Context, msg *service.Message) (*service.Message, error) {
	body := &messageBody{}
	if err := msg.Decode(body); err != nil {
		logger.Warnf("malformed basic message body id=%s: %v", msg.ID, err)
		return nil, nil
	}

	logger.Infof("basic message received id=%s from=%s: %s", msg.ID, msg.From, body.Content)

	return nil, nil
}
