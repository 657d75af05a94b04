/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package local

import (
	"testing"

	"github.com/google/tink/go/subtle/random"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		lock, err := New(random.GetRandomBytes(uint32(size)))
		require.NoError(t, err)
		require.NotNil(t, lock)
	}

	t.Run("wrong size", func(t *testing.T) {
		_, err := New(random.GetRandomBytes(20))
		require.ErrorIs(t, err, ErrInvalidMasterKey)

		_, err = New(nil)
		require.ErrorIs(t, err, ErrInvalidMasterKey)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	lock, err := New(random.GetRandomBytes(32))
	require.NoError(t, err)

	secret := []byte("private key material")

	sealed, err := lock.Encrypt(secret)
	require.NoError(t, err)
	require.NotEqual(t, secret, sealed)

	opened, err := lock.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, secret, opened)

	t.Run("distinct nonces", func(t *testing.T) {
		again, err := lock.Encrypt(secret)
		require.NoError(t, err)
		require.NotEqual(t, sealed, again)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0x01

		_, err := lock.Decrypt(tampered)
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := New(random.GetRandomBytes(32))
		require.NoError(t, err)

		_, err = other.Decrypt(sealed)
		require.Error(t, err)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		_, err := lock.Decrypt(sealed[:4])
		require.Error(t, err)
	})
}
