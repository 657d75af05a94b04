/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/x509"
	"fmt"
)

// Signer converts a key pair into a crypto.Signer usable with JOSE
// primitives. Defined for the signature-capable key types.
func Signer(kp *KeyPair) (stdcrypto.Signer, error) {
	switch kp.Type {
	case Ed25519:
		if len(kp.PrivateKey) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("signer: %w", ErrInvalidKeyEncoding)
		}

		return ed25519.PrivateKey(kp.PrivateKey), nil
	case P256:
		return p256PrivateKey(kp.PrivateKey)
	case RSA:
		priv, err := x509.ParsePKCS1PrivateKey(kp.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("signer: %w", ErrInvalidKeyEncoding)
		}

		return priv, nil
	default:
		return nil, fmt.Errorf("signer: key type %s: %w", kp.Type, ErrUnsupportedOperation)
	}
}

// PublicKey converts raw public key bytes into the crypto object verifiers
// expect for the given key type.
func PublicKey(kt KeyType, publicKey []byte) (interface{}, error) {
	switch kt {
	case Ed25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("public key: %w", ErrInvalidKeyEncoding)
		}

		return ed25519.PublicKey(publicKey), nil
	case P256:
		return p256PublicKey(publicKey)
	case RSA:
		pub, err := x509.ParsePKCS1PublicKey(publicKey)
		if err != nil {
			return nil, fmt.Errorf("public key: %w", ErrInvalidKeyEncoding)
		}

		return pub, nil
	default:
		return nil, fmt.Errorf("public key: key type %s: %w", kt, ErrUnsupportedOperation)
	}
}
