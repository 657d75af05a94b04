/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"

	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
)

// ErrUnsupportedKeyEncoding is returned when a verification method's key
// material uses an encoding this package cannot decode.
var ErrUnsupportedKeyEncoding = errors.New("unsupported key encoding")

// JWK is the subset of a JSON Web Key carrying public key material. OKP keys
// (Ed25519, X25519) are not representable by go-jose's JSONWebKey for the
// X25519 curve, so the envelope layer exchanges this struct instead.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// Multicodec prefixes used by 2020-era verification method types.
var multicodecPrefixes = map[byte]crypto.KeyType{
	0xed: crypto.Ed25519,
	0xec: crypto.X25519,
}

// PublicKeyBytes extracts the raw public key bytes from whichever encoding
// the verification method uses: JWK, multibase or base58.
func (vm *VerificationMethod) PublicKeyBytes() ([]byte, error) {
	switch {
	case len(vm.PublicKeyJwk) > 0:
		return jwkBytes(vm.PublicKeyJwk)
	case vm.PublicKeyMultibase != "":
		_, data, err := multibase.Decode(vm.PublicKeyMultibase)
		if err != nil {
			return nil, fmt.Errorf("%w: multibase: %s", ErrUnsupportedKeyEncoding, vm.ID)
		}

		// 2020 suites prepend a two-byte multicodec header.
		if len(data) == 34 && data[1] == 0x01 {
			if _, known := multicodecPrefixes[data[0]]; known {
				data = data[2:]
			}
		}

		return data, nil
	case vm.PublicKeyBase58 != "":
		data := base58.Decode(vm.PublicKeyBase58)
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: base58: %s", ErrUnsupportedKeyEncoding, vm.ID)
		}

		return data, nil
	}

	return nil, fmt.Errorf("%w: no key material in %s", ErrUnsupportedKeyEncoding, vm.ID)
}

// KeyType infers the key type from the verification method type, falling
// back to the JWK curve for JsonWebKey2020 methods.
func (vm *VerificationMethod) KeyType() (crypto.KeyType, error) {
	switch vm.Type {
	case "Ed25519VerificationKey2018", "Ed25519VerificationKey2020":
		return crypto.Ed25519, nil
	case "X25519KeyAgreementKey2019", "X25519KeyAgreementKey2020":
		return crypto.X25519, nil
	case "EcdsaSecp256k1VerificationKey2019":
		return crypto.Secp256k1, nil
	case "JsonWebKey2020":
		var key JWK
		if err := json.Unmarshal(vm.PublicKeyJwk, &key); err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedKeyEncoding, vm.ID)
		}

		switch key.Crv {
		case "Ed25519":
			return crypto.Ed25519, nil
		case "X25519":
			return crypto.X25519, nil
		case "P-256":
			return crypto.P256, nil
		case "secp256k1":
			return crypto.Secp256k1, nil
		}

		if key.Kty == "RSA" {
			return crypto.RSA, nil
		}
	}

	return "", fmt.Errorf("%w: method type %s", ErrUnsupportedKeyEncoding, vm.Type)
}

func jwkBytes(raw json.RawMessage) ([]byte, error) {
	var key JWK
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("%w: jwk", ErrUnsupportedKeyEncoding)
	}

	switch key.Kty {
	case "OKP":
		x, err := base64.RawURLEncoding.DecodeString(key.X)
		if err != nil {
			return nil, fmt.Errorf("%w: jwk x", ErrUnsupportedKeyEncoding)
		}

		return x, nil
	case "EC":
		x, err := base64.RawURLEncoding.DecodeString(key.X)
		if err != nil {
			return nil, fmt.Errorf("%w: jwk x", ErrUnsupportedKeyEncoding)
		}

		y, err := base64.RawURLEncoding.DecodeString(key.Y)
		if err != nil {
			return nil, fmt.Errorf("%w: jwk y", ErrUnsupportedKeyEncoding)
		}

		// uncompressed point
		point := make([]byte, 0, 1+len(x)+len(y))
		point = append(point, 0x04)
		point = append(point, x...)
		point = append(point, y...)

		return point, nil
	}

	return nil, fmt.Errorf("%w: jwk kty", ErrUnsupportedKeyEncoding)
}
