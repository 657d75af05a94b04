/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	chacha "golang.org/x/crypto/chacha20poly1305"

	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

// Unpack opens an envelope addressed to recipientDID and returns the
// validated plaintext message. A tag mismatch aborts the whole operation;
// no partial plaintext is ever returned. All key-related failures surface
// as the single opaque ErrDecryption.
func (p *Packer) Unpack(ctx context.Context, env *Envelope, recipientDID string) (*service.Message, error) {
	protectedBytes, err := base64.RawURLEncoding.DecodeString(env.Protected)
	if err != nil {
		return nil, fmt.Errorf("%w: protected header", ErrMalformedEnvelope)
	}

	// The protected header is authenticated data. Once it decodes as
	// base64, any defect in its content is indistinguishable from
	// tampering and must not leak a separate error class.
	var prot protectedHeader
	if err = json.Unmarshal(protectedBytes, &prot); err != nil {
		return nil, ErrDecryption
	}

	if prot.Typ != encodingType {
		return nil, ErrDecryption
	}

	iv, err := base64.RawURLEncoding.DecodeString(env.IV)
	if err != nil || len(iv) != chacha.NonceSize {
		return nil, fmt.Errorf("%w: iv", ErrMalformedEnvelope)
	}

	cipherText, err := base64.RawURLEncoding.DecodeString(env.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext", ErrMalformedEnvelope)
	}

	tag, err := base64.RawURLEncoding.DecodeString(env.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: tag", ErrMalformedEnvelope)
	}

	for i := range env.Recipients {
		recipient := &env.Recipients[i]

		if !strings.HasPrefix(recipient.Header.KID, recipientDID+"#") {
			continue
		}

		recipientKey, kmsErr := p.kms.Get(recipient.Header.KID)
		if kmsErr != nil {
			logger.Debugf("recipient key %s not held, trying next recipient", recipient.Header.KID)
			continue
		}

		cek, unwrapErr := p.unwrapCEK(ctx, recipient, &prot, recipientKey)
		if unwrapErr != nil {
			return nil, unwrapErr
		}

		return decryptPayload(cek, iv, cipherText, tag, env.Protected)
	}

	return nil, ErrDecryption
}

// unwrapCEK reverses the pack-time key wrap for one recipient entry. In
// authcrypt mode the sender's public key is recovered by resolving the skid
// claim from the protected header.
func (p *Packer) unwrapCEK(ctx context.Context, recipient *Recipient, prot *protectedHeader,
	recipientKey *crypto.KeyPair) ([]byte, error) {
	var (
		senderPub []byte
		err       error
	)

	switch recipient.Header.Alg {
	case algAuthcrypt:
		senderPub, err = p.senderPublicKey(ctx, prot.SKID)
		if err != nil {
			return nil, err
		}
	case algAnoncrypt:
		if recipient.Header.EPK == nil {
			return nil, ErrDecryption
		}

		senderPub, err = base64.RawURLEncoding.DecodeString(recipient.Header.EPK.X)
		if err != nil {
			return nil, ErrDecryption
		}
	default:
		return nil, ErrDecryption
	}

	z, err := crypto.ECDH(crypto.X25519, recipientKey.PrivateKey, senderPub)
	if err != nil {
		return nil, ErrDecryption
	}

	kek, err := deriveKEK(z, recipient.Header.Alg, recipient.Header.APU, recipient.Header.APV)
	if err != nil {
		return nil, ErrDecryption
	}

	encryptedKey, err := base64.RawURLEncoding.DecodeString(recipient.EncryptedKey)
	if err != nil || len(encryptedKey) <= wrapNonceLen {
		return nil, ErrDecryption
	}

	cipher, err := chacha.New(kek)
	if err != nil {
		return nil, ErrDecryption
	}

	cek, err := cipher.Open(nil, encryptedKey[:wrapNonceLen], encryptedKey[wrapNonceLen:], nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return cek, nil
}

// senderPublicKey resolves the skid claim to the sender's key agreement
// public key. Resolution failures are surfaced as ErrDecryption as well;
// an unpack must not reveal whether the recipient key or the sender lookup
// was at fault.
func (p *Packer) senderPublicKey(ctx context.Context, skid string) ([]byte, error) {
	senderDID, _, found := strings.Cut(skid, "#")
	if !found {
		return nil, ErrDecryption
	}

	doc, err := p.resolver.Resolve(ctx, senderDID)
	if err != nil {
		return nil, ErrDecryption
	}

	methods, err := doc.VerificationMethods(did.KeyAgreement)
	if err != nil {
		return nil, ErrDecryption
	}

	for i := range methods {
		if methods[i].ID != skid {
			continue
		}

		pub, pubErr := methods[i].PublicKeyBytes()
		if pubErr != nil {
			return nil, ErrDecryption
		}

		return pub, nil
	}

	return nil, ErrDecryption
}

func decryptPayload(cek, iv, cipherText, tag []byte, protectedB64 string) (*service.Message, error) {
	cipher, err := chacha.New(cek)
	if err != nil {
		return nil, ErrDecryption
	}

	payload, err := cipher.Open(nil, iv, append(cipherText, tag...), []byte(protectedB64))
	if err != nil {
		return nil, ErrDecryption
	}

	msg := &service.Message{}
	if err = json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("%w: payload", ErrMalformedEnvelope)
	}

	if err = msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}
