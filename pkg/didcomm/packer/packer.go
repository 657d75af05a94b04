/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
)

var logger = log.New("didcomm-go/didcomm/packer")

const (
	cekSize      = 32
	kekSize      = 32
	wrapNonceLen = 12
)

// KeyManager is the key access surface the packer needs: lookups by key id
// and by DID/purpose. Private key material never leaves the process through
// the packer; wire structures carry key ids only.
type KeyManager interface {
	Get(kid string) (*crypto.KeyPair, error)
	KeyAgreementKey(didStr string) (*crypto.KeyPair, error)
	AuthenticationKey(didStr string) (*crypto.KeyPair, error)
}

// Resolver resolves DIDs to DID documents.
type Resolver interface {
	Resolve(ctx context.Context, didStr string) (*did.Doc, error)
}

// Packer packs plaintext messages into envelopes and back. It is stateless;
// all key material flows through the KeyManager and Resolver it is
// constructed with.
type Packer struct {
	kms      KeyManager
	resolver Resolver
}

// New returns a Packer using the given key manager and resolver.
func New(kms KeyManager, resolver Resolver) *Packer {
	return &Packer{kms: kms, resolver: resolver}
}

// deriveKEK derives the key wrapping key from an agreement secret, bound to
// the wrap algorithm and both parties' identifiers.
func deriveKEK(z []byte, alg, apu, apv string) ([]byte, error) {
	info := []byte(alg + "." + apu + "." + apv)
	kek := make([]byte, kekSize)

	if _, err := io.ReadFull(hkdf.New(sha256.New, z, nil, info), kek); err != nil {
		return nil, fmt.Errorf("derive key wrapping key: %w", crypto.ErrCryptoFailure)
	}

	return kek, nil
}

// keyAgreementBytes finds the first X25519-capable key agreement key in the
// document and returns its id and raw public key bytes.
func keyAgreementBytes(doc *did.Doc) (string, []byte, error) {
	methods, err := doc.VerificationMethods(did.KeyAgreement)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrRecipientKeyNotFound, doc.ID)
	}

	for i := range methods {
		kt, ktErr := methods[i].KeyType()
		if ktErr != nil || kt != crypto.X25519 {
			continue
		}

		pub, pubErr := methods[i].PublicKeyBytes()
		if pubErr != nil {
			logger.Warnf("skipping key %s: %v", methods[i].ID, pubErr)
			continue
		}

		return methods[i].ID, pub, nil
	}

	return "", nil, fmt.Errorf("%w: %s", ErrRecipientKeyNotFound, doc.ID)
}
