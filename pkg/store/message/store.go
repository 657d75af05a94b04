/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package message persists message records with idempotent writes and
// forward-only delivery status.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/operatecrypto/didcomm-go/pkg/storage"
)

// StoreName is the name space of the underlying store.
const StoreName = "messages"

// Status of a message record. Status only moves forward: a message marked
// read never reverts to received.
const (
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusReceived = "received"
	StatusRead     = "read"
	StatusFailed   = "failed"
)

// Direction of a message record.
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"
)

const (
	tagDID    = "did"
	tagThread = "thread"
)

// ErrDuplicateMessage is returned when a record with the same message ID
// already exists.
var ErrDuplicateMessage = errors.New("duplicate message")

// ErrRecordNotFound is returned when no record exists for the message ID.
var ErrRecordNotFound = errors.New("message record not found")

// Rank orders the statuses a record moves through. Equal rank marks
// statuses on divergent branches (outbound sent vs inbound received),
// not interchangeable ones.
var statusRank = map[string]int{
	StatusPending:  0,
	StatusSent:     1,
	StatusReceived: 1,
	StatusFailed:   2,
	StatusRead:     2,
}

// Record is the persisted form of a message.
type Record struct {
	MessageID      string          `json:"message_id"`
	From           string          `json:"from,omitempty"`
	To             string          `json:"to"`
	Type           string          `json:"type"`
	Body           json.RawMessage `json:"body,omitempty"`
	ThreadID       string          `json:"thread_id"`
	ParentThreadID string          `json:"parent_thread_id,omitempty"`
	CreatedTime    int64           `json:"created_time"`
	Status         string          `json:"status"`
	Direction      string          `json:"direction"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	ReceivedAt     *time.Time      `json:"received_at,omitempty"`
	Deleted        bool            `json:"deleted,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Store provides persistence for message records. Mutating operations are
// serialized so the message ID uniqueness check and the write behind it act
// as one step regardless of the backing provider.
type Store struct {
	store storage.Store
	mu    sync.Mutex
}

// New returns a message store backed by the given provider.
func New(provider storage.Provider) (*Store, error) {
	store, err := provider.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}

	return &Store{store: store}, nil
}

// Add persists a new record. Adding a record whose message ID already
// exists and is not soft deleted returns ErrDuplicateMessage.
func (s *Store) Add(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.get(record.MessageID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	if existing != nil && !existing.Deleted {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, record.MessageID)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	return s.put(record)
}

// GetByMessageID returns the record for the given message ID. Soft deleted
// records are not returned.
func (s *Store) GetByMessageID(messageID string) (*Record, error) {
	record, err := s.get(messageID)
	if err != nil {
		return nil, err
	}

	if record.Deleted {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, messageID)
	}

	return record, nil
}

// GetByThread returns all records on the given thread, oldest first.
func (s *Store) GetByThread(threadID string) ([]*Record, error) {
	entries, err := s.store.Query(tagThread + ":" + threadID)
	if err != nil {
		return nil, fmt.Errorf("query thread %s: %w", threadID, err)
	}

	records, err := decodeLive(entries)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedTime < records[j].CreatedTime
	})

	return records, nil
}

// QueryByDID returns records where the DID is sender or recipient, newest
// first, paged by skip and take. A non-positive take returns all remaining
// records.
func (s *Store) QueryByDID(didStr string, skip, take int) ([]*Record, error) {
	entries, err := s.store.Query(tagDID + ":" + didStr)
	if err != nil {
		return nil, fmt.Errorf("query did %s: %w", didStr, err)
	}

	records, err := decodeLive(entries)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedTime > records[j].CreatedTime
	})

	if skip > 0 {
		if skip >= len(records) {
			return nil, nil
		}

		records = records[skip:]
	}

	if take > 0 && take < len(records) {
		records = records[:take]
	}

	return records, nil
}

// MarkRead moves a received record to the read status. Marking an already
// read record is a no-op. Records in any other status are left untouched.
func (s *Store) MarkRead(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.GetByMessageID(messageID)
	if err != nil {
		return err
	}

	if record.Status == StatusRead {
		return nil
	}

	if record.Status != StatusReceived {
		return fmt.Errorf("message %s is %s, only received messages can be marked read",
			messageID, record.Status)
	}

	record.Status = StatusRead
	record.UpdatedAt = time.Now().UTC()

	return s.put(record)
}

// UpdateStatus moves a record to a new status. Transitions are strictly
// forward: moves to a lower rank and sideways moves between distinct
// statuses of equal rank (sent to received, read to failed) are rejected.
// Re-applying the current status is allowed.
func (s *Store) UpdateStatus(messageID, status string) error {
	newRank, ok := statusRank[status]
	if !ok {
		return fmt.Errorf("unknown status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.GetByMessageID(messageID)
	if err != nil {
		return err
	}

	if record.Status != status && statusRank[record.Status] >= newRank {
		return fmt.Errorf("message %s cannot move from %s to %s", messageID, record.Status, status)
	}

	record.Status = status
	record.UpdatedAt = time.Now().UTC()

	return s.put(record)
}

// MarkDeleted soft deletes a record. The record stays in the store but is
// excluded from reads and queries, and its message ID may be reused.
func (s *Store) MarkDeleted(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.GetByMessageID(messageID)
	if err != nil {
		return err
	}

	record.Deleted = true
	record.UpdatedAt = time.Now().UTC()

	return s.put(record)
}

func (s *Store) get(messageID string) (*Record, error) {
	data, err := s.store.Get(messageID)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, messageID)
		}

		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}

	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", messageID, err)
	}

	return record, nil
}

func (s *Store) put(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", record.MessageID, err)
	}

	tags := []storage.Tag{
		{Name: tagThread, Value: record.ThreadID},
		{Name: tagDID, Value: record.To},
	}

	if record.From != "" {
		tags = append(tags, storage.Tag{Name: tagDID, Value: record.From})
	}

	if err := s.store.Put(record.MessageID, data, tags...); err != nil {
		return fmt.Errorf("store message %s: %w", record.MessageID, err)
	}

	return nil
}

func decodeLive(entries []storage.Entry) ([]*Record, error) {
	records := make([]*Record, 0, len(entries))

	for i := range entries {
		record := &Record{}
		if err := json.Unmarshal(entries[i].Value, record); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", entries[i].Key, err)
		}

		if record.Deleted {
			continue
		}

		records = append(records, record)
	}

	return records, nil
}
