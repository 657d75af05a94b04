/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package crypto wraps the curve operations used by the DIDComm envelope
// engine behind a uniform capability set: key generation, Diffie-Hellman
// key agreement, signing and verification. It has no protocol knowledge.
package crypto

import (
	stdcrypto "crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/curve25519"
)

// KeyType is the type of a key pair.
type KeyType string

// Supported key types.
const (
	Ed25519   = KeyType("Ed25519")
	X25519    = KeyType("X25519")
	Secp256k1 = KeyType("Secp256k1")
	P256      = KeyType("P256")
	RSA       = KeyType("RSA")
)

const rsaKeyBits = 2048

var (
	// ErrUnsupportedOperation is returned when an operation is requested on a
	// key type that does not have that capability (eg. ECDH on Ed25519).
	ErrUnsupportedOperation = errors.New("operation not supported for key type")
	// ErrInvalidKeyEncoding is returned when key material cannot be parsed.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")
	// ErrCryptoFailure is returned on any underlying crypto operation failure.
	// It never carries partial secrets.
	ErrCryptoFailure = errors.New("crypto operation failed")
)

// KeyPair holds raw public and private key material along with its type.
// Private key material must never cross the envelope boundary in plaintext;
// wire structures reference it by KeyID only.
type KeyPair struct {
	Type       KeyType
	KeyID      string
	PublicKey  []byte
	PrivateKey []byte
	CreatedAt  time.Time
}

// GenerateKeyPair generates a fresh key pair of the given type.
//
// Raw encodings per type:
//
//	Ed25519   pub: 32-byte ed25519 public key, priv: 64-byte ed25519 private key
//	X25519    pub: 32-byte curve point, priv: 32-byte scalar
//	Secp256k1 pub: 33-byte compressed point, priv: 32-byte scalar
//	P256      pub: 65-byte uncompressed point, priv: 32-byte scalar
//	RSA       pub: PKCS#1 DER, priv: PKCS#1 DER
func GenerateKeyPair(kt KeyType) (*KeyPair, error) {
	var pub, priv []byte

	switch kt {
	case Ed25519:
		edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", ErrCryptoFailure)
		}

		pub, priv = edPub, edPriv
	case X25519:
		priv = make([]byte, curve25519.ScalarSize)
		if _, err := rand.Read(priv); err != nil {
			return nil, fmt.Errorf("generate x25519 key: %w", ErrCryptoFailure)
		}

		var err error

		pub, err = curve25519.X25519(priv, curve25519.Basepoint)
		if err != nil {
			return nil, fmt.Errorf("generate x25519 key: %w", ErrCryptoFailure)
		}
	case Secp256k1:
		k, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate secp256k1 key: %w", ErrCryptoFailure)
		}

		pub, priv = k.PubKey().SerializeCompressed(), k.Serialize()
	case P256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate p-256 key: %w", ErrCryptoFailure)
		}

		pub = elliptic.Marshal(elliptic.P256(), k.X, k.Y)
		priv = make([]byte, 32)
		k.D.FillBytes(priv)
	case RSA:
		k, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate rsa key: %w", ErrCryptoFailure)
		}

		pub = x509.MarshalPKCS1PublicKey(&k.PublicKey)
		priv = x509.MarshalPKCS1PrivateKey(k)
	default:
		return nil, fmt.Errorf("generate key pair: key type %s: %w", kt, ErrUnsupportedOperation)
	}

	return &KeyPair{Type: kt, PublicKey: pub, PrivateKey: priv, CreatedAt: time.Now().UTC()}, nil
}

// ECDH performs Diffie-Hellman key agreement between a private key and a peer
// public key of the given type. It is defined for X25519, P256 and Secp256k1
// only; signature-only types fail with ErrUnsupportedOperation.
func ECDH(kt KeyType, privateKey, peerPublicKey []byte) ([]byte, error) {
	switch kt {
	case X25519:
		z, err := curve25519.X25519(privateKey, peerPublicKey)
		if err != nil {
			return nil, fmt.Errorf("x25519 agreement: %w", ErrCryptoFailure)
		}

		return z, nil
	case P256:
		priv, err := ecdh.P256().NewPrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("p-256 agreement: %w", ErrInvalidKeyEncoding)
		}

		pub, err := ecdh.P256().NewPublicKey(peerPublicKey)
		if err != nil {
			return nil, fmt.Errorf("p-256 agreement: %w", ErrInvalidKeyEncoding)
		}

		z, err := priv.ECDH(pub)
		if err != nil {
			return nil, fmt.Errorf("p-256 agreement: %w", ErrCryptoFailure)
		}

		return z, nil
	case Secp256k1:
		priv, pub, err := parseSecp256k1(privateKey, peerPublicKey)
		if err != nil {
			return nil, err
		}

		return btcec.GenerateSharedSecret(priv, pub), nil
	case Ed25519, RSA:
		return nil, fmt.Errorf("ecdh: key type %s: %w", kt, ErrUnsupportedOperation)
	default:
		return nil, fmt.Errorf("ecdh: key type %s: %w", kt, ErrUnsupportedOperation)
	}
}

// Sign signs data with a private key of the given type. It is defined for
// signature-capable types (Ed25519, ECDSA curves, RSA) and fails with
// ErrUnsupportedOperation for X25519.
func Sign(kt KeyType, data, privateKey []byte) ([]byte, error) {
	switch kt {
	case Ed25519:
		if len(privateKey) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("ed25519 sign: %w", ErrInvalidKeyEncoding)
		}

		return ed25519.Sign(ed25519.PrivateKey(privateKey), data), nil
	case Secp256k1:
		priv, _ := btcec.PrivKeyFromBytes(privateKey)
		digest := sha256.Sum256(data)

		return btcecdsa.Sign(priv, digest[:]).Serialize(), nil
	case P256:
		priv, err := p256PrivateKey(privateKey)
		if err != nil {
			return nil, err
		}

		digest := sha256.Sum256(data)

		sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
		if err != nil {
			return nil, fmt.Errorf("p-256 sign: %w", ErrCryptoFailure)
		}

		return sig, nil
	case RSA:
		priv, err := x509.ParsePKCS1PrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("rsa sign: %w", ErrInvalidKeyEncoding)
		}

		digest := sha256.Sum256(data)

		sig, err := rsa.SignPKCS1v15(rand.Reader, priv, stdcrypto.SHA256, digest[:])
		if err != nil {
			return nil, fmt.Errorf("rsa sign: %w", ErrCryptoFailure)
		}

		return sig, nil
	case X25519:
		return nil, fmt.Errorf("sign: key type %s: %w", kt, ErrUnsupportedOperation)
	default:
		return nil, fmt.Errorf("sign: key type %s: %w", kt, ErrUnsupportedOperation)
	}
}

// Verify verifies a signature over data with a public key of the given type.
func Verify(kt KeyType, data, signature, publicKey []byte) (bool, error) {
	switch kt {
	case Ed25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return false, fmt.Errorf("ed25519 verify: %w", ErrInvalidKeyEncoding)
		}

		return ed25519.Verify(ed25519.PublicKey(publicKey), data, signature), nil
	case Secp256k1:
		pub, err := btcec.ParsePubKey(publicKey)
		if err != nil {
			return false, fmt.Errorf("secp256k1 verify: %w", ErrInvalidKeyEncoding)
		}

		sig, err := btcecdsa.ParseDERSignature(signature)
		if err != nil {
			return false, nil
		}

		digest := sha256.Sum256(data)

		return sig.Verify(digest[:], pub), nil
	case P256:
		pub, err := p256PublicKey(publicKey)
		if err != nil {
			return false, err
		}

		digest := sha256.Sum256(data)

		return ecdsa.VerifyASN1(pub, digest[:], signature), nil
	case RSA:
		pub, err := x509.ParsePKCS1PublicKey(publicKey)
		if err != nil {
			return false, fmt.Errorf("rsa verify: %w", ErrInvalidKeyEncoding)
		}

		digest := sha256.Sum256(data)

		return rsa.VerifyPKCS1v15(pub, stdcrypto.SHA256, digest[:], signature) == nil, nil
	case X25519:
		return false, fmt.Errorf("verify: key type %s: %w", kt, ErrUnsupportedOperation)
	default:
		return false, fmt.Errorf("verify: key type %s: %w", kt, ErrUnsupportedOperation)
	}
}

func parseSecp256k1(privateKey, peerPublicKey []byte) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	if len(privateKey) != 32 {
		return nil, nil, fmt.Errorf("secp256k1: %w", ErrInvalidKeyEncoding)
	}

	priv, _ := btcec.PrivKeyFromBytes(privateKey)

	pub, err := btcec.ParsePubKey(peerPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("secp256k1: %w", ErrInvalidKeyEncoding)
	}

	return priv, pub, nil
}

func p256PrivateKey(privateKey []byte) (*ecdsa.PrivateKey, error) {
	if len(privateKey) != 32 {
		return nil, fmt.Errorf("p-256: %w", ErrInvalidKeyEncoding)
	}

	priv := &ecdsa.PrivateKey{D: new(big.Int).SetBytes(privateKey)}
	priv.Curve = elliptic.P256()
	priv.X, priv.Y = elliptic.P256().ScalarBaseMult(privateKey)

	return priv, nil
}

func p256PublicKey(publicKey []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(elliptic.P256(), publicKey)
	if x == nil {
		return nil, fmt.Errorf("p-256: %w", ErrInvalidKeyEncoding)
	}

	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}
