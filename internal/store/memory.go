package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore backs test and ephemeral deployments with a plain map. The
// semantics are identical to the durable stores.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]HoleCardRecord
	maxSeats int
}

func NewMemoryStore(maxSeats int) *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]HoleCardRecord),
		maxSeats: maxSeats,
	}
}

func (s *MemoryStore) Set(_ context.Context, record HoleCardRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	key := recordKey(record.TableID, record.HandID, record.SeatIndex)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; exists {
		return ErrAlreadyExists
	}
	s.records[key] = record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tableID, handID string, seatIndex int) (*HoleCardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.records[recordKey(tableID, handID, seatIndex)]
	if !exists {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStore) Has(_ context.Context, tableID, handID string, seatIndex int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.records[recordKey(tableID, handID, seatIndex)]
	return exists, nil
}

func (s *MemoryStore) Delete(_ context.Context, tableID, handID string, seatIndex int) error {
	key := recordKey(tableID, handID, seatIndex)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; !exists {
		return ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) GetHand(_ context.Context, tableID, handID string) ([]HoleCardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []HoleCardRecord
	for seat := 0; seat < s.maxSeats; seat++ {
		if record, exists := s.records[recordKey(tableID, handID, seat)]; exists {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *MemoryStore) DeleteHand(_ context.Context, tableID, handID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for seat := 0; seat < s.maxSeats; seat++ {
		key := recordKey(tableID, handID, seat)
		if _, exists := s.records[key]; exists {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, record := range s.records {
		if record.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}
