/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package service defines the plaintext DIDComm message model and the
// handler contract protocol services implement.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

// ErrMessageValidation is returned when a message fails the structural
// validation gate, before any cryptographic or dispatch work.
var ErrMessageValidation = errors.New("message validation failed")

// Message is a plaintext DIDComm v2 message. It is immutable once packed;
// persisted records reference it, never mutate it.
type Message struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	From           string                 `json:"from,omitempty"`
	To             string                 `json:"to"`
	CreatedTime    int64                  `json:"created_time,omitempty"`
	ExpiresTime    int64                  `json:"expires_time,omitempty"`
	Body           map[string]interface{} `json:"body,omitempty"`
	Attachments    []Attachment           `json:"attachments,omitempty"`
	ThreadID       string                 `json:"thid,omitempty"`
	ParentThreadID string                 `json:"pthid,omitempty"`
	Headers        map[string]interface{} `json:"headers,omitempty"`
}

// Attachment carries supplementary content alongside a message body.
type Attachment struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	Base64      string `json:"base64,omitempty"`
}

// New creates a message with a generated id and creation time in epoch
// milliseconds.
func New(msgType, from, to string) *Message {
	return &Message{
		ID:          uuid.New().String(),
		Type:        msgType,
		From:        from,
		To:          to,
		CreatedTime: time.Now().UnixMilli(),
	}
}

// Validate performs the structural checks required before packing and after
// unpacking: id, type and to are mandatory, type must parse as an absolute
// URI, and to/from must be syntactically valid DIDs. It is a necessary but
// not sufficient check; it does not validate body against the schema the
// type implies.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrMessageValidation)
	}

	if m.Type == "" {
		return fmt.Errorf("%w: empty type", ErrMessageValidation)
	}

	if m.To == "" {
		return fmt.Errorf("%w: empty to", ErrMessageValidation)
	}

	u, err := url.Parse(m.Type)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: type is not an absolute uri: %s", ErrMessageValidation, m.Type)
	}

	if !did.IsValid(m.To) {
		return fmt.Errorf("%w: to is not a valid did: %s", ErrMessageValidation, m.To)
	}

	if m.From != "" && !did.IsValid(m.From) {
		return fmt.Errorf("%w: from is not a valid did: %s", ErrMessageValidation, m.From)
	}

	return nil
}

// MarshalCanonical serializes the message in its canonical wire form.
// encoding/json emits struct fields in declaration order and map keys
// sorted, so equal messages always serialize to equal bytes.
func (m *Message) MarshalCanonical() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return payload, nil
}

// Thread returns the thread this message belongs to: its thid when present,
// otherwise its own id as the thread root.
func (m *Message) Thread() string {
	if m.ThreadID != "" {
		return m.ThreadID
	}

	return m.ID
}

// Decode decodes the message body into a typed struct using its json tags.
func (m *Message) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("new body decoder: %w", err)
	}

	if err := decoder.Decode(m.Body); err != nil {
		return fmt.Errorf("decode message body: %w", err)
	}

	return nil
}
