/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	tests := []struct {
		keyType KeyType
		pubLen  int
		privLen int
	}{
		{keyType: Ed25519, pubLen: 32, privLen: 64},
		{keyType: X25519, pubLen: 32, privLen: 32},
		{keyType: Secp256k1, pubLen: 33, privLen: 32},
		{keyType: P256, pubLen: 65, privLen: 32},
	}

	for _, tc := range tests {
		t.Run(string(tc.keyType), func(t *testing.T) {
			kp, err := GenerateKeyPair(tc.keyType)
			require.NoError(t, err)
			require.Equal(t, tc.keyType, kp.Type)
			require.Len(t, kp.PublicKey, tc.pubLen)
			require.Len(t, kp.PrivateKey, tc.privLen)
			require.False(t, kp.CreatedAt.IsZero())
		})
	}

	t.Run("RSA", func(t *testing.T) {
		kp, err := GenerateKeyPair(RSA)
		require.NoError(t, err)
		require.NotEmpty(t, kp.PublicKey)
		require.NotEmpty(t, kp.PrivateKey)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := GenerateKeyPair(KeyType("Curve448"))
		require.ErrorIs(t, err, ErrUnsupportedOperation)
	})
}

func TestECDH(t *testing.T) {
	agreementTypes := []KeyType{X25519, P256, Secp256k1}

	for _, kt := range agreementTypes {
		t.Run(string(kt), func(t *testing.T) {
			alice, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			bob, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			z1, err := ECDH(kt, alice.PrivateKey, bob.PublicKey)
			require.NoError(t, err)

			z2, err := ECDH(kt, bob.PrivateKey, alice.PublicKey)
			require.NoError(t, err)

			require.Equal(t, z1, z2)
			require.NotEmpty(t, z1)
		})
	}

	t.Run("signature-only types", func(t *testing.T) {
		for _, kt := range []KeyType{Ed25519, RSA} {
			kp, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			_, err = ECDH(kt, kp.PrivateKey, kp.PublicKey)
			require.ErrorIs(t, err, ErrUnsupportedOperation)
		}
	})

	t.Run("malformed peer key", func(t *testing.T) {
		alice, err := GenerateKeyPair(Secp256k1)
		require.NoError(t, err)

		_, err = ECDH(Secp256k1, alice.PrivateKey, []byte{0x01, 0x02})
		require.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})
}

func TestSignVerify(t *testing.T) {
	data := []byte("payload to sign")

	for _, kt := range []KeyType{Ed25519, Secp256k1, P256, RSA} {
		t.Run(string(kt), func(t *testing.T) {
			kp, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			sig, err := Sign(kt, data, kp.PrivateKey)
			require.NoError(t, err)
			require.NotEmpty(t, sig)

			ok, err := Verify(kt, data, sig, kp.PublicKey)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = Verify(kt, []byte("different payload"), sig, kp.PublicKey)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}

	t.Run("X25519 cannot sign", func(t *testing.T) {
		kp, err := GenerateKeyPair(X25519)
		require.NoError(t, err)

		_, err = Sign(X25519, data, kp.PrivateKey)
		require.ErrorIs(t, err, ErrUnsupportedOperation)

		_, err = Verify(X25519, data, nil, kp.PublicKey)
		require.ErrorIs(t, err, ErrUnsupportedOperation)
	})

	t.Run("wrong key rejects", func(t *testing.T) {
		signer, err := GenerateKeyPair(Ed25519)
		require.NoError(t, err)

		other, err := GenerateKeyPair(Ed25519)
		require.NoError(t, err)

		sig, err := Sign(Ed25519, data, signer.PrivateKey)
		require.NoError(t, err)

		ok, err := Verify(Ed25519, data, sig, other.PublicKey)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestSigner(t *testing.T) {
	for _, kt := range []KeyType{Ed25519, P256, RSA} {
		t.Run(string(kt), func(t *testing.T) {
			kp, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			signer, err := Signer(kp)
			require.NoError(t, err)
			require.NotNil(t, signer.Public())
		})
	}

	t.Run("X25519 has no signer", func(t *testing.T) {
		kp, err := GenerateKeyPair(X25519)
		require.NoError(t, err)

		_, err = Signer(kp)
		require.ErrorIs(t, err, ErrUnsupportedOperation)
	})
}

func TestPublicKey(t *testing.T) {
	for _, kt := range []KeyType{Ed25519, P256, RSA} {
		t.Run(string(kt), func(t *testing.T) {
			kp, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			pub, err := PublicKey(kt, kp.PublicKey)
			require.NoError(t, err)
			require.NotNil(t, pub)
		})
	}

	t.Run("truncated ed25519 key", func(t *testing.T) {
		_, err := PublicKey(Ed25519, []byte{0x01})
		require.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})
}
