/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package message

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	mockstorage "github.com/operatecrypto/didcomm-go/pkg/mock/storage"
	"github.com/operatecrypto/didcomm-go/pkg/storage/mem"
)

const (
	aliceDID = "did:web:alice.example.com"
	bobDID   = "did:web:bob.example.com"
	msgType  = "https://didcomm.org/basicmessage/2.0/message"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(mem.NewProvider())
	require.NoError(t, err)

	return s
}

func newRecord(id string, createdTime int64) *Record {
	return &Record{
		MessageID:   id,
		From:        aliceDID,
		To:          bobDID,
		Type:        msgType,
		Body:        json.RawMessage(`{"content":"hi"}`),
		ThreadID:    "thread-1",
		CreatedTime: createdTime,
		Status:      StatusReceived,
		Direction:   DirectionInbound,
	}
}

func TestAdd(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Add(newRecord("m1", 1)))

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := s.Add(newRecord("m1", 2))
		require.ErrorIs(t, err, ErrDuplicateMessage)
	})

	t.Run("id reusable after soft delete", func(t *testing.T) {
		require.NoError(t, s.MarkDeleted("m1"))
		require.NoError(t, s.Add(newRecord("m1", 3)))
	})
}

func TestGetByMessageID(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Add(newRecord("m1", 1)))

	record, err := s.GetByMessageID("m1")
	require.NoError(t, err)
	require.Equal(t, bobDID, record.To)
	require.False(t, record.CreatedAt.IsZero())

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.GetByMessageID("ghost")
		require.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("deleted record hidden", func(t *testing.T) {
		require.NoError(t, s.MarkDeleted("m1"))

		_, err := s.GetByMessageID("m1")
		require.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestGetByThread(t *testing.T) {
	s := newStore(t)

	// inserted out of order on purpose
	require.NoError(t, s.Add(newRecord("m2", 20)))
	require.NoError(t, s.Add(newRecord("m1", 10)))
	require.NoError(t, s.Add(newRecord("m3", 30)))

	other := newRecord("m4", 5)
	other.ThreadID = "thread-2"
	require.NoError(t, s.Add(other))

	records, err := s.GetByThread("thread-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "m1", records[0].MessageID)
	require.Equal(t, "m2", records[1].MessageID)
	require.Equal(t, "m3", records[2].MessageID)
}

func TestQueryByDID(t *testing.T) {
	s := newStore(t)

	for i, id := range []string{"m1", "m2", "m3", "m4"} {
		require.NoError(t, s.Add(newRecord(id, int64(i+1))))
	}

	t.Run("newest first", func(t *testing.T) {
		records, err := s.QueryByDID(aliceDID, 0, 0)
		require.NoError(t, err)
		require.Len(t, records, 4)
		require.Equal(t, "m4", records[0].MessageID)
		require.Equal(t, "m1", records[3].MessageID)
	})

	t.Run("matches sender and recipient", func(t *testing.T) {
		records, err := s.QueryByDID(bobDID, 0, 0)
		require.NoError(t, err)
		require.Len(t, records, 4)
	})

	t.Run("paging", func(t *testing.T) {
		records, err := s.QueryByDID(aliceDID, 1, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, "m3", records[0].MessageID)
		require.Equal(t, "m2", records[1].MessageID)
	})

	t.Run("skip past the end", func(t *testing.T) {
		records, err := s.QueryByDID(aliceDID, 10, 2)
		require.NoError(t, err)
		require.Empty(t, records)
	})

	t.Run("deleted records excluded", func(t *testing.T) {
		require.NoError(t, s.MarkDeleted("m4"))

		records, err := s.QueryByDID(aliceDID, 0, 0)
		require.NoError(t, err)
		require.Len(t, records, 3)
	})
}

func TestMarkRead(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Add(newRecord("m1", 1)))
	require.NoError(t, s.MarkRead("m1"))

	record, err := s.GetByMessageID("m1")
	require.NoError(t, err)
	require.Equal(t, StatusRead, record.Status)

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, s.MarkRead("m1"))
	})

	t.Run("only received messages", func(t *testing.T) {
		sent := newRecord("m2", 2)
		sent.Status = StatusSent
		sent.Direction = DirectionOutbound
		require.NoError(t, s.Add(sent))

		require.Error(t, s.MarkRead("m2"))
	})
}

func TestUpdateStatus(t *testing.T) {
	s := newStore(t)

	pending := newRecord("m1", 1)
	pending.Status = StatusPending
	pending.Direction = DirectionOutbound
	require.NoError(t, s.Add(pending))

	require.NoError(t, s.UpdateStatus("m1", StatusSent))
	require.NoError(t, s.UpdateStatus("m1", StatusFailed))

	t.Run("no backwards transition", func(t *testing.T) {
		err := s.UpdateStatus("m1", StatusPending)
		require.Error(t, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		err := s.UpdateStatus("m1", "archived")
		require.Error(t, err)
	})
}

func TestStorageErrors(t *testing.T) {
	t.Run("open store fails", func(t *testing.T) {
		provider := mockstorage.NewMockProvider()
		provider.ErrOpenStore = errors.New("open failed")

		_, err := New(provider)
		require.Error(t, err)
		require.Contains(t, err.Error(), "open failed")
	})

	t.Run("put fails", func(t *testing.T) {
		provider := mockstorage.NewMockProvider()

		inner, err := provider.OpenStore(StoreName)
		require.NoError(t, err)

		provider.Stores[StoreName] = &mockstorage.MockStore{Inner: inner, ErrPut: errors.New("put failed")}

		s, err := New(provider)
		require.NoError(t, err)

		err = s.Add(newRecord("m1", 1))
		require.Error(t, err)
		require.Contains(t, err.Error(), "put failed")
	})

	t.Run("query fails", func(t *testing.T) {
		provider := mockstorage.NewMockProvider()

		inner, err := provider.OpenStore(StoreName)
		require.NoError(t, err)

		provider.Stores[StoreName] = &mockstorage.MockStore{Inner: inner, ErrQuery: errors.New("query failed")}

		s, err := New(provider)
		require.NoError(t, err)

		_, err = s.QueryByDID(aliceDID, 0, 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "query failed")
	})
}

func TestAddConcurrentSameID(t *testing.T) {
	s := newStore(t)

	const writers = 8

	start := make(chan struct{})
	results := make(chan error, writers)

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			<-start
			results <- s.Add(newRecord("m1", 1))
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	var accepted, rejected int

	for err := range results {
		if err == nil {
			accepted++
			continue
		}

		require.ErrorIs(t, err, ErrDuplicateMessage)
		rejected++
	}

	require.Equal(t, 1, accepted)
	require.Equal(t, writers-1, rejected)
}

func TestUpdateStatusNoSidewaysMoves(t *testing.T) {
	s := newStore(t)

	outbound := newRecord("m1", 1)
	outbound.Status = StatusSent
	outbound.Direction = DirectionOutbound
	require.NoError(t, s.Add(outbound))

	t.Run("sent to received rejected", func(t *testing.T) {
		require.Error(t, s.UpdateStatus("m1", StatusReceived))
	})

	t.Run("reapplying current status allowed", func(t *testing.T) {
		require.NoError(t, s.UpdateStatus("m1", StatusSent))
	})

	inbound := newRecord("m2", 2)
	inbound.Status = StatusReceived
	inbound.Direction = DirectionInbound
	require.NoError(t, s.Add(inbound))
	require.NoError(t, s.MarkRead("m2"))

	t.Run("read to failed rejected", func(t *testing.T) {
		require.Error(t, s.UpdateStatus("m2", StatusFailed))
	})
}
