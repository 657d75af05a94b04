/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/operatecrypto/didcomm-go/pkg/storage"
)

func TestProvider(t *testing.T) {
	provider := NewProvider()

	t.Run("same name returns same store", func(t *testing.T) {
		s1, err := provider.OpenStore("test")
		require.NoError(t, err)

		require.NoError(t, s1.Put("k", []byte("v")))

		s2, err := provider.OpenStore("TEST")
		require.NoError(t, err)

		v, err := s2.Get("k")
		require.NoError(t, err)
		require.Equal(t, []byte("v"), v)
	})

	t.Run("close drops stores", func(t *testing.T) {
		s, err := provider.OpenStore("dropped")
		require.NoError(t, err)
		require.NoError(t, s.Put("k", []byte("v")))

		require.NoError(t, provider.Close())

		s, err = provider.OpenStore("dropped")
		require.NoError(t, err)

		_, err = s.Get("k")
		require.ErrorIs(t, err, storage.ErrDataNotFound)
	})
}

func TestStore(t *testing.T) {
	newStore := func(t *testing.T) storage.Store {
		t.Helper()

		s, err := NewProvider().OpenStore(t.Name())
		require.NoError(t, err)

		return s
	}

	t.Run("put get delete", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Put("k", []byte("v1")))
		require.NoError(t, s.Put("k", []byte("v2")))

		v, err := s.Get("k")
		require.NoError(t, err)
		require.Equal(t, []byte("v2"), v)

		require.NoError(t, s.Delete("k"))

		_, err = s.Get("k")
		require.ErrorIs(t, err, storage.ErrDataNotFound)

		require.NoError(t, s.Delete("k"))
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Put("k", []byte("abc")))

		v, err := s.Get("k")
		require.NoError(t, err)

		v[0] = 'x'

		fresh, err := s.Get("k")
		require.NoError(t, err)
		require.Equal(t, []byte("abc"), fresh)
	})

	t.Run("query by tag name and value", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Put("m1", []byte("1"), storage.Tag{Name: "did", Value: "did:web:alice.example.com"}))
		require.NoError(t, s.Put("m2", []byte("2"), storage.Tag{Name: "did", Value: "did:web:bob.example.com"}))
		require.NoError(t, s.Put("m3", []byte("3"), storage.Tag{Name: "thread", Value: "t1"}))

		entries, err := s.Query("did:did:web:alice.example.com")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "m1", entries[0].Key)

		all, err := s.Query("did")
		require.NoError(t, err)
		require.Len(t, all, 2)

		none, err := s.Query("did:did:web:eve.example.com")
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("put replaces tags", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Put("k", []byte("v"), storage.Tag{Name: "old"}))
		require.NoError(t, s.Put("k", []byte("v"), storage.Tag{Name: "new"}))

		entries, err := s.Query("old")
		require.NoError(t, err)
		require.Empty(t, entries)

		entries, err = s.Query("new")
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})
}
