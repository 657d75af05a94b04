/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package local implements a secret lock sealing secrets with a local
// AES-GCM master key.
package local

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/google/tink/go/subtle/random"
)

// ErrInvalidMasterKey is returned when the master key has an unsupported size.
var ErrInvalidMasterKey = errors.New("master key must be 16, 24 or 32 bytes")

// Lock seals secrets with AES-GCM under a master key. The nonce is
// prepended to each ciphertext.
type Lock struct {
	aead cipher.AEAD
}

// New returns a lock for the given master key.
func New(masterKey []byte) (*Lock, error) {
	switch len(masterKey) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidMasterKey
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("new master key cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new master key gcm: %w", err)
	}

	return &Lock{aead: aead}, nil
}

// Encrypt seals the plaintext.
func (l *Lock) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := random.GetRandomBytes(uint32(l.aead.NonceSize()))

	return l.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt unseals a ciphertext produced by Encrypt.
func (l *Lock) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < l.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:l.aead.NonceSize()], ciphertext[l.aead.NonceSize():]

	plaintext, err := l.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("unseal secret: %w", err)
	}

	return plaintext, nil
}
