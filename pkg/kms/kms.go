/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package kms manages key pairs for DIDs. Keys are persisted with their
// private material sealed by a secret lock, and looked up by key ID or by
// the DID and purpose they serve.
package kms

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/operatecrypto/didcomm-go/pkg/didcomm/crypto"
	"github.com/operatecrypto/didcomm-go/pkg/secretlock"
	"github.com/operatecrypto/didcomm-go/pkg/storage"
)

// StoreName is the name space of the underlying store.
const StoreName = "keys"

// Purpose describes what a key is used for.
type Purpose string

// Key purposes.
const (
	KeyAgreement   = Purpose("keyAgreement")
	Authentication = Purpose("authentication")
)

const (
	tagDID     = "keyDID"
	tagPurpose = "purpose"
)

// ErrKeyNotFound is returned when no key matches the lookup.
var ErrKeyNotFound = errors.New("key not found")

type keyRecord struct {
	KeyID            string         `json:"key_id"`
	DID              string         `json:"did"`
	Purpose          Purpose        `json:"purpose"`
	Type             crypto.KeyType `json:"type"`
	PublicKey        []byte         `json:"public_key"`
	SealedPrivateKey []byte         `json:"sealed_private_key"`
	CreatedAt        time.Time      `json:"created_at"`
	Revoked          bool           `json:"revoked,omitempty"`
}

// KeyManager stores and serves key pairs.
type KeyManager struct {
	store storage.Store
	lock  secretlock.Service
}

// New returns a key manager over the given provider, sealing private keys
// with the given lock.
func New(provider storage.Provider, lock secretlock.Service) (*KeyManager, error) {
	store, err := provider.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}

	return &KeyManager{store: store, lock: lock}, nil
}

// Create generates a fresh key pair of the given type for the DID and
// purpose, and persists it. The key ID is the DID followed by a fragment.
func (k *KeyManager) Create(didStr string, purpose Purpose, kt crypto.KeyType) (*crypto.KeyPair, error) {
	kp, err := crypto.GenerateKeyPair(kt)
	if err != nil {
		return nil, fmt.Errorf("create key for %s: %w", didStr, err)
	}

	kp.KeyID = didStr + "#" + uuid.New().String()

	if err := k.save(didStr, purpose, kp); err != nil {
		return nil, err
	}

	return kp, nil
}

// Import persists an existing key pair for the DID and purpose. The key
// pair must carry a key ID scoped to the DID.
func (k *KeyManager) Import(didStr string, purpose Purpose, kp *crypto.KeyPair) error {
	if kp.KeyID == "" || !strings.HasPrefix(kp.KeyID, didStr+"#") {
		return fmt.Errorf("key id %q is not scoped to %s", kp.KeyID, didStr)
	}

	return k.save(didStr, purpose, kp)
}

// Get returns the key pair with the given key ID.
func (k *KeyManager) Get(kid string) (*crypto.KeyPair, error) {
	record, err := k.get(kid)
	if err != nil {
		return nil, err
	}

	return k.unseal(record)
}

// KeyAgreementKey returns the DID's key agreement key.
func (k *KeyManager) KeyAgreementKey(didStr string) (*crypto.KeyPair, error) {
	return k.byPurpose(didStr, KeyAgreement)
}

// AuthenticationKey returns the DID's authentication key.
func (k *KeyManager) AuthenticationKey(didStr string) (*crypto.KeyPair, error) {
	return k.byPurpose(didStr, Authentication)
}

// KnownDID returns the first stored DID whose key ID prefixes any of the
// given key IDs. It lets an agent recognize which of its identities an
// envelope is addressed to.
func (k *KeyManager) KnownDID(kids []string) (string, error) {
	for _, kid := range kids {
		didStr, _, ok := strings.Cut(kid, "#")
		if !ok {
			continue
		}

		entries, err := k.store.Query(tagDID + ":" + didStr)
		if err != nil {
			return "", fmt.Errorf("query keys for %s: %w", didStr, err)
		}

		for i := range entries {
			record := &keyRecord{}
			if err := json.Unmarshal(entries[i].Value, record); err != nil {
				return "", fmt.Errorf("decode key %s: %w", entries[i].Key, err)
			}

			if !record.Revoked {
				return didStr, nil
			}
		}
	}

	return "", ErrKeyNotFound
}

// Revoke marks the key with the given key ID as revoked. Revoked keys are
// no longer served.
func (k *KeyManager) Revoke(kid string) error {
	record, err := k.get(kid)
	if err != nil {
		return err
	}

	record.Revoked = true

	return k.put(record)
}

func (k *KeyManager) byPurpose(didStr string, purpose Purpose) (*crypto.KeyPair, error) {
	entries, err := k.store.Query(tagDID + ":" + didStr)
	if err != nil {
		return nil, fmt.Errorf("query keys for %s: %w", didStr, err)
	}

	var newest *keyRecord

	for i := range entries {
		record := &keyRecord{}
		if err := json.Unmarshal(entries[i].Value, record); err != nil {
			return nil, fmt.Errorf("decode key %s: %w", entries[i].Key, err)
		}

		if record.Revoked || record.Purpose != purpose {
			continue
		}

		if newest == nil || record.CreatedAt.After(newest.CreatedAt) {
			newest = record
		}
	}

	if newest == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrKeyNotFound, didStr, purpose)
	}

	return k.unseal(newest)
}

func (k *KeyManager) save(didStr string, purpose Purpose, kp *crypto.KeyPair) error {
	sealed, err := k.lock.Encrypt(kp.PrivateKey)
	if err != nil {
		return fmt.Errorf("seal key %s: %w", kp.KeyID, err)
	}

	createdAt := kp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return k.put(&keyRecord{
		KeyID:            kp.KeyID,
		DID:              didStr,
		Purpose:          purpose,
		Type:             kp.Type,
		PublicKey:        kp.PublicKey,
		SealedPrivateKey: sealed,
		CreatedAt:        createdAt,
	})
}

func (k *KeyManager) get(kid string) (*keyRecord, error) {
	data, err := k.store.Get(kid)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
		}

		return nil, fmt.Errorf("get key %s: %w", kid, err)
	}

	record := &keyRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("decode key %s: %w", kid, err)
	}

	if record.Revoked {
		return nil, fmt.Errorf("%w: %s is revoked", ErrKeyNotFound, kid)
	}

	return record, nil
}

func (k *KeyManager) put(record *keyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode key %s: %w", record.KeyID, err)
	}

	tags := []storage.Tag{
		{Name: tagDID, Value: record.DID},
		{Name: tagPurpose, Value: string(record.Purpose)},
	}

	if err := k.store.Put(record.KeyID, data, tags...); err != nil {
		return fmt.Errorf("store key %s: %w", record.KeyID, err)
	}

	return nil
}

func (k *KeyManager) unseal(record *keyRecord) (*crypto.KeyPair, error) {
	priv, err := k.lock.Decrypt(record.SealedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("unseal key %s: %w", record.KeyID, err)
	}

	return &crypto.KeyPair{
		Type:       record.Type,
		KeyID:      record.KeyID,
		PublicKey:  record.PublicKey,
		PrivateKey: priv,
		CreatedAt:  record.CreatedAt,
	}, nil
}
