/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package noop implements a secret lock that stores secrets unsealed.
// Intended for tests and development setups without a master key.
package noop

// Lock passes secrets through unchanged.
type Lock struct{}

// New returns a pass-through lock.
func New() *Lock {
	return &Lock{}
}

// Encrypt returns the plaintext unchanged.
func (l *Lock) Encrypt(plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

// Decrypt returns the ciphertext unchanged.
func (l *Lock) Decrypt(ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}
