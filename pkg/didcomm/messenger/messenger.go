/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package messenger ties the engine together: it packs and sends outbound
// messages, unpacks and dispatches inbound envelopes, and keeps message
// and thread records consistent across both paths.
package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/dispatcher"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/packer"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/protocol/basicmessage"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/transport"
	"github.com/operatecrypto/didcomm-go/pkg/store/message"
	"github.com/operatecrypto/didcomm-go/pkg/store/thread"
)

// MessagingServiceType is the DID document service type carrying the
// recipient's delivery endpoint.
const MessagingServiceType = "DIDCommMessaging"

var logger = log.New("didcomm-go/messenger")

// ErrUnknownRecipient is returned when an inbound envelope is addressed to
// no DID this agent holds keys for.
var ErrUnknownRecipient = errors.New("envelope addressed to no known recipient")

// KeyResolver identifies which of the agent's DIDs an envelope targets.
type KeyResolver interface {
	KnownDID(kids []string) (string, error)
}

// SendRequest describes an outbound message.
type SendRequest struct {
	From        string                 `json:"from"`
	To          string                 `json:"to"`
	Type        string                 `json:"type,omitempty"`
	Body        map[string]interface{} `json:"body,omitempty"`
	ThreadID    string                 `json:"thread_id,omitempty"`
	Attachments []service.Attachment   `json:"attachments,omitempty"`
}

// SendResult reports the outcome of a send.
type SendResult struct {
	MessageID    string           `json:"message_id"`
	Status       string           `json:"status"`
	SentAt       time.Time        `json:"sent_at"`
	Success      bool             `json:"success"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Envelope     *packer.Envelope `json:"envelope,omitempty"`
}

// ReceiveResult reports the outcome of processing an inbound envelope.
type ReceiveResult struct {
	MessageID        string           `json:"message_id"`
	AlreadyProcessed bool             `json:"already_processed"`
	ProcessingError  string           `json:"processing_error,omitempty"`
	Response         *packer.Envelope `json:"response,omitempty"`
}

// Messenger is the messaging engine.
type Messenger struct {
	packer     *packer.Packer
	keys       KeyResolver
	resolver   packer.Resolver
	dispatcher *dispatcher.Registry
	messages   *message.Store
	threads    *thread.Store
	outbound   transport.Outbound
}

// Opt configures the messenger.
type Opt func(*Messenger)

// WithOutbound enables delivery of packed envelopes to the recipient's
// messaging endpoint. Without it, Send only packs and records.
func WithOutbound(outbound transport.Outbound) Opt {
	return func(m *Messenger) {
		m.outbound = outbound
	}
}

// New assembles a messenger from its collaborators.
func New(p *packer.Packer, keys KeyResolver, resolver packer.Resolver, d *dispatcher.Registry,
	messages *message.Store, threads *thread.Store, opts ...Opt) *Messenger {
	m := &Messenger{
		packer:     p,
		keys:       keys,
		resolver:   resolver,
		dispatcher: d,
		messages:   messages,
		threads:    threads,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Send packs the request into an envelope, records it, and delivers it to
// the recipient's messaging endpoint when an outbound transport is
// configured. Delivery failure marks the record failed but still returns
// the packed envelope.
func (m *Messenger) Send(ctx context.Context, req *SendRequest) (*SendResult, error) {
	msgType := req.Type
	if msgType == "" {
		msgType = basicmessage.MsgType
	}

	msg := service.New(msgType, req.From, req.To)
	msg.Body = req.Body
	msg.ThreadID = req.ThreadID
	msg.Attachments = req.Attachments

	env, err := m.packer.Pack(ctx, msg, req.To, req.From)
	if err != nil {
		return nil, fmt.Errorf("pack message: %w", err)
	}

	if err := m.record(msg, message.DirectionOutbound, message.StatusSent); err != nil {
		return nil, err
	}

	result := &SendResult{
		MessageID: msg.ID,
		Status:    message.StatusSent,
		SentAt:    time.Now().UTC(),
		Success:   true,
		Envelope:  env,
	}

	if m.outbound == nil {
		return result, nil
	}

	if err := m.deliver(ctx, env, req.To); err != nil {
		logger.Warnf("delivery of message %s to %s failed: %v", msg.ID, req.To, err)

		if statusErr := m.messages.UpdateStatus(msg.ID, message.StatusFailed); statusErr != nil {
			logger.Errorf("mark message %s failed: %v", msg.ID, statusErr)
		}

		result.Status = message.StatusFailed
		result.Success = false
		result.ErrorMessage = err.Error()
	}

	return result, nil
}

// Receive unpacks an inbound envelope, records the message, dispatches it
// to protocol handlers, and packs any handler reply. An envelope carrying
// an already processed message id is acknowledged without re-dispatch.
// A handler failure is reported in the result; the record stays.
func (m *Messenger) Receive(ctx context.Context, env *packer.Envelope) (*ReceiveResult, error) {
	kids := make([]string, 0, len(env.Recipients))
	for i := range env.Recipients {
		kids = append(kids, env.Recipients[i].Header.KID)
	}

	recipientDID, err := m.keys.KnownDID(kids)
	if err != nil {
		return nil, ErrUnknownRecipient
	}

	msg, err := m.packer.Unpack(ctx, env, recipientDID)
	if err != nil {
		return nil, fmt.Errorf("unpack envelope: %w", err)
	}

	if err := m.record(msg, message.DirectionInbound, message.StatusReceived); err != nil {
		if errors.Is(err, message.ErrDuplicateMessage) {
			logger.Infof("message %s already processed", msg.ID)

			return &ReceiveResult{MessageID: msg.ID, AlreadyProcessed: true}, nil
		}

		return nil, err
	}

	result := &ReceiveResult{MessageID: msg.ID}

	reply, err := m.dispatcher.Dispatch(ctx, msg)
	if err != nil {
		logger.Errorf("dispatch of message %s failed: %v", msg.ID, err)
		result.ProcessingError = err.Error()

		return result, nil
	}

	if reply == nil {
		return result, nil
	}

	replyEnv, err := m.packer.Pack(ctx, reply, reply.To, reply.From)
	if err != nil {
		logger.Errorf("pack reply to message %s failed: %v", msg.ID, err)
		result.ProcessingError = err.Error()

		return result, nil
	}

	if err := m.record(reply, message.DirectionOutbound, message.StatusSent); err != nil {
		logger.Warnf("record reply %s: %v", reply.ID, err)
	}

	result.Response = replyEnv

	return result, nil
}

// GetMessage returns the record for the given message id.
func (m *Messenger) GetMessage(messageID string) (*message.Record, error) {
	return m.messages.GetByMessageID(messageID)
}

// QueryMessages returns records involving the DID, newest first.
func (m *Messenger) QueryMessages(didStr string, skip, take int) ([]*message.Record, error) {
	return m.messages.QueryByDID(didStr, skip, take)
}

// MarkRead marks a received message as read.
func (m *Messenger) MarkRead(messageID string) error {
	return m.messages.MarkRead(messageID)
}

// DeleteMessage soft deletes a message record.
func (m *Messenger) DeleteMessage(messageID string) error {
	return m.messages.MarkDeleted(messageID)
}

// GetThread returns the thread record and its messages, oldest first.
func (m *Messenger) GetThread(threadID string) (*thread.Record, []*message.Record, error) {
	record, err := m.threads.Get(threadID)
	if err != nil {
		return nil, nil, err
	}

	records, err := m.messages.GetByThread(threadID)
	if err != nil {
		return nil, nil, err
	}

	return record, records, nil
}

func (m *Messenger) record(msg *service.Message, direction, status string) error {
	body, err := json.Marshal(msg.Body)
	if err != nil {
		return fmt.Errorf("encode body of message %s: %w", msg.ID, err)
	}

	now := time.Now().UTC()

	record := &message.Record{
		MessageID:      msg.ID,
		From:           msg.From,
		To:             msg.To,
		Type:           msg.Type,
		Body:           body,
		ThreadID:       msg.Thread(),
		ParentThreadID: msg.ParentThreadID,
		CreatedTime:    msg.CreatedTime,
		Status:         status,
		Direction:      direction,
	}

	switch direction {
	case message.DirectionOutbound:
		record.SentAt = &now
	case message.DirectionInbound:
		record.ReceivedAt = &now
	}

	if err := m.messages.Add(record); err != nil {
		return err
	}

	if _, err := m.threads.Upsert(msg.Thread(), msg.ParentThreadID, msg.From, msg.To); err != nil {
		logger.Warnf("upsert thread %s: %v", msg.Thread(), err)
	}

	return nil
}

func (m *Messenger) deliver(ctx context.Context, env *packer.Envelope, toDID string) error {
	doc, err := m.resolver.Resolve(ctx, toDID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	endpoint, err := doc.ServiceEndpoint(MessagingServiceType)
	if err != nil {
		return fmt.Errorf("recipient endpoint: %w", err)
	}

	payload, err := env.JSONBytes()
	if err != nil {
		return err
	}

	return m.outbound.Send(ctx, payload, endpoint)
}
