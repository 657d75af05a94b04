/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package packer builds and opens DIDComm envelopes: JWE-shaped structures
// carrying a message encrypted under a fresh content encryption key, itself
// wrapped per recipient through X25519 key agreement. Authcrypt mode wraps
// with the sender's static key (revealing the sender to recipients);
// anoncrypt wraps with a per-envelope ephemeral key.
package packer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

const (
	encodingType = "didcomm-envelope-enc"
	encAlg       = "C20P"

	algAuthcrypt = "ECDH-1PU+C20PKW"
	algAnoncrypt = "ECDH-ES+C20PKW"
)

var (
	// ErrMalformedEnvelope is returned when an envelope is structurally
	// invalid: bad base64, bad JSON, or missing mandatory fields.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrDecryption is returned on any unpack failure past structural
	// parsing. Key-not-found, unwrap failures and tag mismatches are
	// deliberately indistinguishable to avoid oracle attacks.
	ErrDecryption = errors.New("failed to decrypt envelope")
	// ErrRecipientKeyNotFound is returned at pack time when the recipient's
	// DID document declares no usable key agreement key.
	ErrRecipientKeyNotFound = errors.New("no key agreement key found for recipient")
	// ErrSignatureInvalid is returned when a detached signature cannot be
	// verified. Verification fails closed: any resolution or crypto failure
	// yields this error, never a silently-accepted signature.
	ErrSignatureInvalid = errors.New("signature invalid")
)

// Envelope is the encrypted wire representation of a message. It is
// constructed exactly once at pack time and consumed exactly once at unpack
// time, never mutated.
type Envelope struct {
	Protected  string      `json:"protected"`
	Recipients []Recipient `json:"recipients"`
	IV         string      `json:"iv"`
	CipherText string      `json:"ciphertext"`
	Tag        string      `json:"tag"`
}

// Recipient holds the wrapped content encryption key for one recipient.
// The wrap nonce is prepended to the encrypted key bytes.
type Recipient struct {
	EncryptedKey string          `json:"encrypted_key"`
	Header       RecipientHeader `json:"header"`
}

// RecipientHeader identifies the recipient key and wrap algorithm. EPK
// carries the sender's ephemeral public key in anoncrypt mode. APU and APV
// bind the sender and recipient identifiers into the key derivation for
// domain separation.
type RecipientHeader struct {
	KID string   `json:"kid"`
	Alg string   `json:"alg"`
	EPK *did.JWK `json:"epk,omitempty"`
	APU string   `json:"apu,omitempty"`
	APV string   `json:"apv,omitempty"`
}

type protectedHeader struct {
	Enc  string `json:"enc"`
	Typ  string `json:"typ"`
	Alg  string `json:"alg"`
	SKID string `json:"skid,omitempty"`
}

// ParseEnvelope parses an envelope from its JSON serialization.
func ParseEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}

	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedEnvelope, err.Error())
	}

	if env.Protected == "" || len(env.Recipients) == 0 || env.CipherText == "" || env.Tag == "" {
		return nil, fmt.Errorf("%w: missing fields", ErrMalformedEnvelope)
	}

	return env, nil
}

// JSONBytes serializes the envelope.
func (e *Envelope) JSONBytes() ([]byte, error) {
	return json.Marshal(e)
}
