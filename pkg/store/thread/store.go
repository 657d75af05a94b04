/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package thread tracks conversation threads and their participants.
package thread

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/operatecrypto/didcomm-go/pkg/storage"
)

// StoreName is the name space of the underlying store.
const StoreName = "threads"

// ErrThreadNotFound is returned when no record exists for the thread ID.
var ErrThreadNotFound = errors.New("thread not found")

// Record describes a conversation thread.
type Record struct {
	ThreadID       string    `json:"thread_id"`
	ParentThreadID string    `json:"parent_thread_id,omitempty"`
	Participants   []string  `json:"participants"`
	Subject        string    `json:"subject,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store provides persistence for thread records.
type Store struct {
	store storage.Store
}

// New returns a thread store backed by the given provider.
func New(provider storage.Provider) (*Store, error) {
	store, err := provider.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("open thread store: %w", err)
	}

	return &Store{store: store}, nil
}

// Upsert creates the thread if absent, otherwise merges the given
// participants into the existing record and bumps its update time.
func (s *Store) Upsert(threadID, parentThreadID string, participants ...string) (*Record, error) {
	now := time.Now().UTC()

	record, err := s.Get(threadID)
	if err != nil {
		if !errors.Is(err, ErrThreadNotFound) {
			return nil, err
		}

		record = &Record{
			ThreadID:       threadID,
			ParentThreadID: parentThreadID,
			CreatedAt:      now,
		}
	}

	for _, p := range participants {
		if p == "" || contains(record.Participants, p) {
			continue
		}

		record.Participants = append(record.Participants, p)
	}

	record.UpdatedAt = now

	if err := s.put(record); err != nil {
		return nil, err
	}

	return record, nil
}

// Get returns the record for the given thread ID.
func (s *Store) Get(threadID string) (*Record, error) {
	data, err := s.store.Get(threadID)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
		}

		return nil, fmt.Errorf("get thread %s: %w", threadID, err)
	}

	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", threadID, err)
	}

	return record, nil
}

func (s *Store) put(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", record.ThreadID, err)
	}

	if err := s.store.Put(record.ThreadID, data); err != nil {
		return fmt.Errorf("store thread %s: %w", record.ThreadID, err)
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}

	return false
}
