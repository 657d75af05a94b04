/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/require"

	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
)

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := Parse("did:web:alice.example.com")
		require.NoError(t, err)
		require.Equal(t, "web", d.Method)
		require.Equal(t, "alice.example.com", d.MethodSpecificID)
		require.Equal(t, "did:web:alice.example.com", d.String())
	})

	t.Run("method specific id with colons", func(t *testing.T) {
		d, err := Parse("did:web:example.com:user:alice")
		require.NoError(t, err)
		require.Equal(t, "web", d.Method)
		require.Equal(t, "example.com:user:alice", d.MethodSpecificID)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, bad := range []string{"", "did:", "did:web", "did:web:", "alice.example.com", "did::abc"} {
			_, err := Parse(bad)
			require.ErrorIs(t, err, ErrInvalidDID, bad)
			require.False(t, IsValid(bad), bad)
		}
	})
}

const testDoc = `{
  "@context": "https://www.w3.org/ns/did/v1",
  "id": "did:web:alice.example.com",
  "verificationMethod": [
    {
      "id": "did:web:alice.example.com#key-1",
      "type": "Ed25519VerificationKey2018",
      "controller": "did:web:alice.example.com",
      "publicKeyBase58": "B12NYF8RrR3h41TDCTJojY59usg3mbtbjnFs7Eud1Y6u"
    },
    {
      "id": "did:web:alice.example.com#key-2",
      "type": "X25519KeyAgreementKey2019",
      "controller": "did:web:alice.example.com",
      "publicKeyBase58": "JhNWeSVLMYccCk7iopQW4guaSJTojqpMEELgSLhKwRr"
    }
  ],
  "authentication": ["did:web:alice.example.com#key-1"],
  "keyAgreement": ["did:web:alice.example.com#key-2"],
  "service": [
    {
      "id": "did:web:alice.example.com#messaging",
      "type": "DIDCommMessaging",
      "serviceEndpoint": "https://alice.example.com/didcomm"
    }
  ]
}`

func TestParseDocument(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		doc, err := ParseDocument([]byte(testDoc))
		require.NoError(t, err)
		require.Equal(t, "did:web:alice.example.com", doc.ID)
		require.Equal(t, StringOrArray{"https://www.w3.org/ns/did/v1"}, doc.Context)
		require.Len(t, doc.VerificationMethod, 2)
		require.Len(t, doc.Authentication, 1)
	})

	t.Run("context as array", func(t *testing.T) {
		doc, err := ParseDocument([]byte(`{
			"@context": ["https://www.w3.org/ns/did/v1", "https://w3id.org/security/v2"],
			"id": "did:web:alice.example.com"
		}`))
		require.NoError(t, err)
		require.Len(t, doc.Context, 2)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"@context": "https://www.w3.org/ns/did/v1"}`))
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseDocument([]byte("not a document"))
		require.Error(t, err)
	})
}

func TestVerificationMethods(t *testing.T) {
	doc, err := ParseDocument([]byte(testDoc))
	require.NoError(t, err)

	t.Run("resolves references", func(t *testing.T) {
		methods, err := doc.VerificationMethods(Authentication)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		require.Equal(t, "did:web:alice.example.com#key-1", methods[0].ID)
	})

	t.Run("embedded method", func(t *testing.T) {
		embedded, err := ParseDocument([]byte(`{
			"id": "did:web:bob.example.com",
			"keyAgreement": [{
				"id": "did:web:bob.example.com#key-1",
				"type": "X25519KeyAgreementKey2019",
				"publicKeyBase58": "JhNWeSVLMYccCk7iopQW4guaSJTojqpMEELgSLhKwRr"
			}]
		}`))
		require.NoError(t, err)

		methods, err := embedded.VerificationMethods(KeyAgreement)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		require.Equal(t, "did:web:bob.example.com#key-1", methods[0].ID)
	})

	t.Run("no key for purpose", func(t *testing.T) {
		_, err := doc.VerificationMethods(CapabilityInvocation)
		require.ErrorIs(t, err, ErrNoKeyForPurpose)
	})

	t.Run("dangling reference skipped by default", func(t *testing.T) {
		dangling := &Doc{
			ID:                 doc.ID,
			VerificationMethod: doc.VerificationMethod,
			Authentication: []VerificationRef{
				{ID: "did:web:alice.example.com#missing"},
				{ID: "did:web:alice.example.com#key-1"},
			},
		}

		methods, err := dangling.VerificationMethods(Authentication)
		require.NoError(t, err)
		require.Len(t, methods, 1)
	})

	t.Run("dangling reference fails under strict policy", func(t *testing.T) {
		dangling := &Doc{
			ID:                 doc.ID,
			VerificationMethod: doc.VerificationMethod,
			Authentication: []VerificationRef{
				{ID: "did:web:alice.example.com#missing"},
				{ID: "did:web:alice.example.com#key-1"},
			},
		}

		_, err := dangling.VerificationMethods(Authentication, WithStrictReferences())
		require.ErrorIs(t, err, ErrDanglingReference)
	})

	t.Run("all references dangling", func(t *testing.T) {
		dangling := &Doc{
			ID:             doc.ID,
			Authentication: []VerificationRef{{ID: "did:web:alice.example.com#missing"}},
		}

		_, err := dangling.VerificationMethods(Authentication)
		require.ErrorIs(t, err, ErrNoKeyForPurpose)
	})
}

func TestSelectKey(t *testing.T) {
	doc, err := ParseDocument([]byte(testDoc))
	require.NoError(t, err)

	vm, err := doc.SelectKey(KeyAgreement)
	require.NoError(t, err)
	require.Equal(t, "did:web:alice.example.com#key-2", vm.ID)

	t.Run("first declared wins", func(t *testing.T) {
		multi := &Doc{
			ID: doc.ID,
			VerificationMethod: append(doc.VerificationMethod, VerificationMethod{
				ID:              "did:web:alice.example.com#key-3",
				Type:            "X25519KeyAgreementKey2019",
				PublicKeyBase58: doc.VerificationMethod[1].PublicKeyBase58,
			}),
			KeyAgreement: []VerificationRef{
				{ID: "did:web:alice.example.com#key-2"},
				{ID: "did:web:alice.example.com#key-3"},
			},
		}

		vm, err := multi.SelectKey(KeyAgreement)
		require.NoError(t, err)
		require.Equal(t, "did:web:alice.example.com#key-2", vm.ID)
	})
}

func TestServiceEndpoint(t *testing.T) {
	doc, err := ParseDocument([]byte(testDoc))
	require.NoError(t, err)

	t.Run("string endpoint", func(t *testing.T) {
		endpoint, err := doc.ServiceEndpoint("DIDCommMessaging")
		require.NoError(t, err)
		require.Equal(t, "https://alice.example.com/didcomm", endpoint)
	})

	t.Run("type match is case insensitive", func(t *testing.T) {
		endpoint, err := doc.ServiceEndpoint("didcommmessaging")
		require.NoError(t, err)
		require.Equal(t, "https://alice.example.com/didcomm", endpoint)
	})

	t.Run("object endpoint", func(t *testing.T) {
		objDoc := &Doc{
			ID: doc.ID,
			Service: []Service{{
				Type:            "DIDCommMessaging",
				ServiceEndpoint: json.RawMessage(`{"uri": "https://alice.example.com/didcomm", "accept": ["didcomm/v2"]}`),
			}},
		}

		endpoint, err := objDoc.ServiceEndpoint("DIDCommMessaging")
		require.NoError(t, err)
		require.Equal(t, "https://alice.example.com/didcomm", endpoint)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := doc.ServiceEndpoint("LinkedDomains")
		require.ErrorIs(t, err, ErrServiceNotFound)
	})
}

func TestPublicKeyBytes(t *testing.T) {
	kp, err := crypto.GenerateKeyPair(crypto.X25519)
	require.NoError(t, err)

	t.Run("base58", func(t *testing.T) {
		vm := &VerificationMethod{
			ID:              "did:web:alice.example.com#key-1",
			Type:            "X25519KeyAgreementKey2019",
			PublicKeyBase58: base58.Encode(kp.PublicKey),
		}

		got, err := vm.PublicKeyBytes()
		require.NoError(t, err)
		require.Equal(t, kp.PublicKey, got)
	})

	t.Run("multibase with multicodec header", func(t *testing.T) {
		prefixed := append([]byte{0xec, 0x01}, kp.PublicKey...)

		encoded, err := multibase.Encode(multibase.Base58BTC, prefixed)
		require.NoError(t, err)

		vm := &VerificationMethod{
			ID:                 "did:web:alice.example.com#key-1",
			Type:               "X25519KeyAgreementKey2020",
			PublicKeyMultibase: encoded,
		}

		got, err := vm.PublicKeyBytes()
		require.NoError(t, err)
		require.Equal(t, kp.PublicKey, got)
	})

	t.Run("okp jwk", func(t *testing.T) {
		vm := &VerificationMethod{
			ID:   "did:web:alice.example.com#key-1",
			Type: "JsonWebKey2020",
			PublicKeyJwk: json.RawMessage(`{"kty": "OKP", "crv": "X25519", "x": "` +
				base64.RawURLEncoding.EncodeToString(kp.PublicKey) + `"}`),
		}

		got, err := vm.PublicKeyBytes()
		require.NoError(t, err)
		require.Equal(t, kp.PublicKey, got)
	})

	t.Run("ec jwk yields uncompressed point", func(t *testing.T) {
		p256, err := crypto.GenerateKeyPair(crypto.P256)
		require.NoError(t, err)

		x := p256.PublicKey[1:33]
		y := p256.PublicKey[33:]

		vm := &VerificationMethod{
			ID:   "did:web:alice.example.com#key-1",
			Type: "JsonWebKey2020",
			PublicKeyJwk: json.RawMessage(`{"kty": "EC", "crv": "P-256", "x": "` +
				base64.RawURLEncoding.EncodeToString(x) + `", "y": "` +
				base64.RawURLEncoding.EncodeToString(y) + `"}`),
		}

		got, err := vm.PublicKeyBytes()
		require.NoError(t, err)
		require.Equal(t, p256.PublicKey, got)
	})

	t.Run("no key material", func(t *testing.T) {
		vm := &VerificationMethod{ID: "did:web:alice.example.com#key-1", Type: "Ed25519VerificationKey2018"}

		_, err := vm.PublicKeyBytes()
		require.ErrorIs(t, err, ErrUnsupportedKeyEncoding)
	})
}

func TestKeyTypeMapping(t *testing.T) {
	tests := []struct {
		vm       VerificationMethod
		expected crypto.KeyType
	}{
		{vm: VerificationMethod{Type: "Ed25519VerificationKey2018"}, expected: crypto.Ed25519},
		{vm: VerificationMethod{Type: "Ed25519VerificationKey2020"}, expected: crypto.Ed25519},
		{vm: VerificationMethod{Type: "X25519KeyAgreementKey2019"}, expected: crypto.X25519},
		{vm: VerificationMethod{Type: "EcdsaSecp256k1VerificationKey2019"}, expected: crypto.Secp256k1},
		{
			vm: VerificationMethod{
				Type:         "JsonWebKey2020",
				PublicKeyJwk: json.RawMessage(`{"kty": "EC", "crv": "P-256"}`),
			},
			expected: crypto.P256,
		},
		{
			vm: VerificationMethod{
				Type:         "JsonWebKey2020",
				PublicKeyJwk: json.RawMessage(`{"kty": "RSA"}`),
			},
			expected: crypto.RSA,
		},
	}

	for _, tc := range tests {
		kt, err := tc.vm.KeyType()
		require.NoError(t, err)
		require.Equal(t, tc.expected, kt)
	}

	t.Run("unknown method type", func(t *testing.T) {
		vm := VerificationMethod{Type: "Bls12381G2Key2020"}

		_, err := vm.KeyType()
		require.ErrorIs(t, err, ErrUnsupportedKeyEncoding)
	})
}
