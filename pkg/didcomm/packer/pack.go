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

	"github.com/google/tink/go/subtle/random"
	chacha "golang.org/x/crypto/chacha20poly1305"

	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

// Pack validates a message and packs it into an envelope for a single
// recipient. With fromDID set the envelope is authcrypt: the content
// encryption key is wrapped using the sender's static key agreement key,
// authenticating the sender to the recipient. With fromDID empty the
// envelope is anoncrypt: an ephemeral key pair generated for this pack wraps
// the key, and its public half travels in the recipient header.
func (p *Packer) Pack(ctx context.Context, msg *service.Message, toDID, fromDID string) (*Envelope, error) {
	return p.PackForRecipients(ctx, msg, fromDID, []string{toDID})
}

// PackForRecipients packs a message for several recipients sharing the same
// content encryption key, IV, ciphertext and tag, with the key wrapped once
// per recipient.
func (p *Packer) PackForRecipients(ctx context.Context, msg *service.Message, fromDID string,
	toDIDs []string) (*Envelope, error) {
	// fail fast before any cryptographic work
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if len(toDIDs) == 0 {
		return nil, fmt.Errorf("pack: no recipients")
	}

	var (
		senderKey *crypto.KeyPair
		alg       = algAnoncrypt
		skid      string
	)

	if fromDID != "" {
		var err error

		senderKey, err = p.kms.KeyAgreementKey(fromDID)
		if err != nil {
			return nil, fmt.Errorf("pack: sender key agreement key: %w", err)
		}

		alg = algAuthcrypt
		skid = senderKey.KeyID
	}

	// fresh CEK and IV for this single pack operation, never reused
	cek := random.GetRandomBytes(cekSize)
	iv := random.GetRandomBytes(chacha.NonceSize)

	recipients := make([]Recipient, 0, len(toDIDs))

	for _, toDID := range toDIDs {
		doc, err := p.resolver.Resolve(ctx, toDID)
		if err != nil {
			return nil, fmt.Errorf("pack: resolve recipient %s: %w", toDID, err)
		}

		recipient, err := p.wrapCEK(cek, doc, senderKey)
		if err != nil {
			return nil, err
		}

		recipients = append(recipients, *recipient)
	}

	protected, err := json.Marshal(&protectedHeader{
		Enc:  encAlg,
		Typ:  encodingType,
		Alg:  alg,
		SKID: skid,
	})
	if err != nil {
		return nil, fmt.Errorf("pack: marshal protected header: %w", err)
	}

	protectedB64 := base64.RawURLEncoding.EncodeToString(protected)

	payload, err := msg.MarshalCanonical()
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}

	cipher, err := chacha.New(cek)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", crypto.ErrCryptoFailure)
	}

	// ciphertext||tag, with the protected header bound as AAD
	sealed := cipher.Seal(nil, iv, payload, []byte(protectedB64))
	tagOffset := len(sealed) - cipher.Overhead()

	return &Envelope{
		Protected:  protectedB64,
		Recipients: recipients,
		IV:         base64.RawURLEncoding.EncodeToString(iv),
		CipherText: base64.RawURLEncoding.EncodeToString(sealed[:tagOffset]),
		Tag:        base64.RawURLEncoding.EncodeToString(sealed[tagOffset:]),
	}, nil
}

// wrapCEK wraps the content encryption key for one recipient, deriving the
// wrapping key from sender-recipient (authcrypt) or ephemeral-recipient
// (anoncrypt) key agreement.
func (p *Packer) wrapCEK(cek []byte, recipientDoc *did.Doc, senderKey *crypto.KeyPair) (*Recipient, error) {
	kid, recipientPub, err := keyAgreementBytes(recipientDoc)
	if err != nil {
		return nil, err
	}

	header := RecipientHeader{
		KID: kid,
		APV: base64.RawURLEncoding.EncodeToString([]byte(kid)),
	}

	agreementKey := senderKey

	if senderKey != nil {
		header.Alg = algAuthcrypt
		header.APU = base64.RawURLEncoding.EncodeToString([]byte(senderKey.KeyID))
	} else {
		ephemeral, ephErr := crypto.GenerateKeyPair(crypto.X25519)
		if ephErr != nil {
			return nil, fmt.Errorf("pack: generate ephemeral key: %w", ephErr)
		}

		header.Alg = algAnoncrypt
		header.APU = base64.RawURLEncoding.EncodeToString(ephemeral.PublicKey)
		header.EPK = &did.JWK{
			Kty: "OKP",
			Crv: "X25519",
			X:   base64.RawURLEncoding.EncodeToString(ephemeral.PublicKey),
		}

		agreementKey = ephemeral
	}

	z, err := crypto.ECDH(crypto.X25519, agreementKey.PrivateKey, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("pack: key agreement: %w", err)
	}

	kek, err := deriveKEK(z, header.Alg, header.APU, header.APV)
	if err != nil {
		return nil, err
	}

	cipher, err := chacha.New(kek)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", crypto.ErrCryptoFailure)
	}

	nonce := random.GetRandomBytes(wrapNonceLen)
	wrapped := cipher.Seal(nil, nonce, cek, nil)

	return &Recipient{
		EncryptedKey: base64.RawURLEncoding.EncodeToString(append(nonce, wrapped...)),
		Header:       header,
	}, nil
}
