package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore keeps one JSON file per (table, hand) holding the full seat
// array. Writes are whole-file replace via a temp file and rename, so a
// reader never observes a partial hand.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	maxSeats int
}

func NewFileStore(dir string, maxSeats int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create hole card dir: %w", err)
	}
	return &FileStore{
		dir:      dir,
		maxSeats: maxSeats,
	}, nil
}

func (s *FileStore) handPath(tableID, handID string) string {
	// Ids are decimal strings, but sanitize anyway so a hostile id cannot
	// escape the storage directory.
	clean := func(id string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
				return r
			}
			return '_'
		}, id)
	}
	return filepath.Join(s.dir, fmt.Sprintf("hand_%s_%s.json", clean(tableID), clean(handID)))
}

// readHand loads the seat array for a hand. A corrupt file is treated as
// empty and removed rather than wedging the hand forever.
func (s *FileStore) readHand(tableID, handID string) ([]HoleCardRecord, error) {
	path := s.handPath(tableID, handID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hand file: %w", err)
	}

	var records []HoleCardRecord
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("Removing corrupt hand file", "path", path, "error", err)
		os.Remove(path)
		return nil, nil
	}
	return records, nil
}

// writeHand replaces the seat array for a hand. An empty array deletes the
// file.
func (s *FileStore) writeHand(tableID, handID string, records []HoleCardRecord) error {
	return s.publish(s.handPath(tableID, handID), records)
}

// publish replaces a hand file atomically via temp file and rename. An
// empty array deletes the file.
func (s *FileStore) publish(path string, records []HoleCardRecord) error {
	if len(records) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove hand file: %w", err)
		}
		return nil
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SeatIndex < records[j].SeatIndex
	})

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal hand records: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "hand_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp hand file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write hand file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close hand file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish hand file: %w", err)
	}
	return nil
}

func (s *FileStore) Set(_ context.Context, record HoleCardRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHand(record.TableID, record.HandID)
	if err != nil {
		return err
	}
	for _, existing := range records {
		if existing.SeatIndex == record.SeatIndex {
			return ErrAlreadyExists
		}
	}
	return s.writeHand(record.TableID, record.HandID, append(records, record))
}

func (s *FileStore) Get(_ context.Context, tableID, handID string, seatIndex int) (*HoleCardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHand(tableID, handID)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.SeatIndex == seatIndex {
			return &record, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Has(ctx context.Context, tableID, handID string, seatIndex int) (bool, error) {
	_, err := s.Get(ctx, tableID, handID, seatIndex)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Delete(_ context.Context, tableID, handID string, seatIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHand(tableID, handID)
	if err != nil {
		return err
	}

	kept := records[:0]
	found := false
	for _, record := range records {
		if record.SeatIndex == seatIndex {
			found = true
			continue
		}
		kept = append(kept, record)
	}
	if !found {
		return ErrNotFound
	}
	return s.writeHand(tableID, handID, kept)
}

func (s *FileStore) GetHand(_ context.Context, tableID, handID string) ([]HoleCardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHand(tableID, handID)
	if err != nil {
		return nil, err
	}

	var inRange []HoleCardRecord
	for _, record := range records {
		if record.SeatIndex < s.maxSeats {
			inRange = append(inRange, record)
		}
	}
	return inRange, nil
}

func (s *FileStore) DeleteHand(_ context.Context, tableID, handID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHand(tableID, handID)
	if err != nil {
		return 0, err
	}
	if err := s.writeHand(tableID, handID, nil); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *FileStore) DeleteOlderThan(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list hole card dir: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "hand_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var records []HoleCardRecord
		if err := json.Unmarshal(data, &records); err != nil {
			slog.Warn("Removing corrupt hand file", "path", path, "error", err)
			os.Remove(path)
			continue
		}

		kept := records[:0]
		for _, record := range records {
			if record.CreatedAt.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, record)
		}
		if len(kept) == len(records) {
			continue
		}
		if err := s.publish(path, kept); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}
