/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

// Sign produces a detached compact JWS over the canonical serialization of
// the message, using the signer's authentication key. It provides
// non-repudiation on top of (or instead of) encryption.
func (p *Packer) Sign(ctx context.Context, msg *service.Message, signerDID string) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	signerKey, err := p.kms.AuthenticationKey(signerDID)
	if err != nil {
		return "", fmt.Errorf("sign: signer authentication key: %w", err)
	}

	alg, err := signatureAlgorithm(signerKey.Type)
	if err != nil {
		return "", err
	}

	key, err := crypto.Signer(signerKey)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	opts := (&jose.SignerOptions{}).WithHeader(jose.HeaderKey("kid"), signerKey.KeyID)

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: key}, opts)
	if err != nil {
		return "", fmt.Errorf("sign: new signer: %w", err)
	}

	payload, err := msg.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign: %w", crypto.ErrCryptoFailure)
	}

	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("sign: serialize: %w", err)
	}

	return compact, nil
}

// Verify checks a detached compact JWS produced by Sign. The claimed signer
// is taken from the signed message's from field; its DID document is
// resolved and each declared authentication key is tried. Verification
// fails closed: any resolution or cryptographic failure yields
// ErrSignatureInvalid, never a signature treated as valid.
func (p *Packer) Verify(ctx context.Context, signedMessage string) (bool, error) {
	jws, err := jose.ParseSigned(signedMessage)
	if err != nil {
		return false, fmt.Errorf("%w: parse: %s", ErrSignatureInvalid, err.Error())
	}

	msg := &service.Message{}
	if err = json.Unmarshal(jws.UnsafePayloadWithoutVerification(), msg); err != nil {
		return false, fmt.Errorf("%w: payload", ErrSignatureInvalid)
	}

	if msg.From == "" {
		return false, fmt.Errorf("%w: no signer claim", ErrSignatureInvalid)
	}

	if kid := signatureKID(jws); kid != "" && !strings.HasPrefix(kid, msg.From+"#") {
		return false, fmt.Errorf("%w: kid does not belong to claimed signer", ErrSignatureInvalid)
	}

	doc, err := p.resolver.Resolve(ctx, msg.From)
	if err != nil {
		return false, fmt.Errorf("%w: resolve signer: %s", ErrSignatureInvalid, err.Error())
	}

	methods, err := doc.VerificationMethods(did.Authentication)
	if err != nil {
		return false, fmt.Errorf("%w: no authentication key for signer", ErrSignatureInvalid)
	}

	for i := range methods {
		kt, ktErr := methods[i].KeyType()
		if ktErr != nil {
			continue
		}

		pubBytes, pubErr := methods[i].PublicKeyBytes()
		if pubErr != nil {
			continue
		}

		pub, pubErr := crypto.PublicKey(kt, pubBytes)
		if pubErr != nil {
			continue
		}

		if _, verifyErr := jws.Verify(pub); verifyErr == nil {
			return true, nil
		}
	}

	return false, ErrSignatureInvalid
}

func signatureAlgorithm(kt crypto.KeyType) (jose.SignatureAlgorithm, error) {
	switch kt {
	case crypto.Ed25519:
		return jose.EdDSA, nil
	case crypto.P256:
		return jose.ES256, nil
	case crypto.RSA:
		return jose.RS256, nil
	default:
		return "", fmt.Errorf("sign: key type %s: %w", kt, crypto.ErrUnsupportedOperation)
	}
}

func signatureKID(jws *jose.JSONWebSignature) string {
	if len(jws.Signatures) == 0 {
		return ""
	}

	return jws.Signatures[0].Header.KeyID
}
