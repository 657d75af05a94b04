/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package secretlock defines the lock protecting key material at rest.
package secretlock

// Service seals and unseals secrets before they touch storage.
type Service interface {
	// Encrypt seals the plaintext.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt unseals a ciphertext produced by Encrypt.
	Decrypt(ciphertext []byte) ([]byte, error)
}
